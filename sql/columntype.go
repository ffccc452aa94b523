package sql

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type ColumnUpdate struct {
	Column Identifier
	Value  Value
}

const (
	MaxColumnSize = math.MaxUint32 - 1
)

type ColumnType struct {
	Type DataType

	// Size of the column in bytes for integers and in characters for character columns
	Size uint32

	NotNull bool // not allowed to be NULL
}

var (
	IdColType         = ColumnType{Type: IntegerType, Size: 8, NotNull: true}
	Int64ColType      = ColumnType{Type: IntegerType, Size: 8, NotNull: true}
	NullInt64ColType  = ColumnType{Type: IntegerType, Size: 8}
	Float64ColType    = ColumnType{Type: FloatType, NotNull: true}
	BoolColType       = ColumnType{Type: BooleanType, NotNull: true}
	StringColType     = ColumnType{Type: StringType, Size: 4096, NotNull: true}
	NullStringColType = ColumnType{Type: StringType, Size: 4096}
	TimeColType       = ColumnType{Type: TimestampType, NotNull: true}
)

func (ct ColumnType) DataType() string {
	switch ct.Type {
	case BooleanType:
		return "BOOL"
	case StringType:
		if ct.Size == MaxColumnSize {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", ct.Size)
	case FloatType:
		return "DOUBLE"
	case IntegerType:
		switch ct.Size {
		case 2:
			return "SMALLINT"
		case 4:
			return "INT"
		case 8:
			return "BIGINT"
		}
	case TimestampType:
		return "TIMESTAMP"
	}
	return ""
}

// ConvertValue coerces v to the type of the column or fails because the value
// has an incompatible type. A nil value converts to nil unless the column is
// NOT NULL.
func (ct ColumnType) ConvertValue(n Identifier, v Value) (Value, error) {
	if v == nil {
		if ct.NotNull {
			return nil, fmt.Errorf(`column "%s" may not be NULL`, n)
		}
		return nil, nil
	}

	switch ct.Type {
	case BooleanType:
		if sv, ok := v.(StringValue); ok {
			s := strings.Trim(string(sv), " \t\n")
			if s == "t" || s == "true" || s == "y" || s == "yes" || s == "on" || s == "1" {
				return BoolValue(true), nil
			} else if s == "f" || s == "false" || s == "n" || s == "no" || s == "off" || s == "0" {
				return BoolValue(false), nil
			} else {
				return nil, fmt.Errorf(`column "%s": expected a boolean value: %v`, n, v)
			}
		} else if _, ok := v.(BoolValue); !ok {
			return nil, fmt.Errorf(`column "%s": expected a boolean value: %v`, n, v)
		}
	case StringType:
		if i, ok := v.(Int64Value); ok {
			return StringValue(strconv.FormatInt(int64(i), 10)), nil
		} else if f, ok := v.(Float64Value); ok {
			return StringValue(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
		} else if _, ok := v.(StringValue); !ok {
			return nil, fmt.Errorf(`column "%s": expected a string value: %v`, n, v)
		}
	case FloatType:
		if i, ok := v.(Int64Value); ok {
			return Float64Value(i), nil
		} else if s, ok := v.(StringValue); ok {
			d, err := strconv.ParseFloat(strings.Trim(string(s), " \t\n"), 64)
			if err != nil {
				return nil, fmt.Errorf(`column "%s": expected a float: %v: %s`, n, v, err)
			}
			return Float64Value(d), nil
		} else if _, ok := v.(Float64Value); !ok {
			return nil, fmt.Errorf(`column "%s": expected a float value: %v`, n, v)
		}
	case IntegerType:
		if f, ok := v.(Float64Value); ok {
			return Int64Value(f), nil
		} else if s, ok := v.(StringValue); ok {
			i, err := strconv.ParseInt(strings.Trim(string(s), " \t\n"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf(`column "%s": expected an integer: %v: %s`, n, v, err)
			}
			return Int64Value(i), nil
		} else if _, ok := v.(Int64Value); !ok {
			return nil, fmt.Errorf(`column "%s": expected an integer value: %v`, n, v)
		}
	case TimestampType:
		if s, ok := v.(StringValue); ok {
			t, err := time.Parse(TimeFormat, strings.Trim(string(s), " \t\n"))
			if err != nil {
				return nil, fmt.Errorf(`column "%s": expected a timestamp: %v: %s`, n, v, err)
			}
			return TimeValue(t), nil
		} else if _, ok := v.(TimeValue); !ok {
			return nil, fmt.Errorf(`column "%s": expected a timestamp value: %v`, n, v)
		}
	default:
		panic(fmt.Sprintf("sql: expected a valid data type; got %v", ct.Type))
	}

	return v, nil
}
