package sql

type DataType int

const (
	BooleanType DataType = iota + 1
	FloatType
	IntegerType
	StringType
	TimestampType
)

func (dt DataType) String() string {
	switch dt {
	case BooleanType:
		return "BOOL"
	case FloatType:
		return "DOUBLE"
	case IntegerType:
		return "INT"
	case StringType:
		return "VARCHAR"
	case TimestampType:
		return "TIMESTAMP"
	}

	return ""
}
