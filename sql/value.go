package sql

import (
	"fmt"
	"strings"
	"time"
)

const (
	NullString  = "NULL"
	TrueString  = "true"
	FalseString = "false"

	TimeFormat = "2006-01-02 15:04:05.999999"
)

type Value interface {
	fmt.Stringer

	// return -1 if v1 < v2
	// return 0 if v1 == v2
	// return 1 if v1 > v2
	Compare(v2 Value) (int, error)
}

type BoolValue bool

func (b BoolValue) String() string {
	if b {
		return TrueString
	}
	return FalseString
}

func (b1 BoolValue) Compare(v2 Value) (int, error) {
	if b2, ok := v2.(BoolValue); ok {
		if b1 {
			if b2 {
				return 0, nil
			}
			return 1, nil
		} else {
			if b2 {
				return -1, nil
			}
			return 0, nil
		}
	}
	return 0, fmt.Errorf("sql: want boolean got %v", v2)
}

type Int64Value int64

func (i Int64Value) String() string {
	return fmt.Sprintf("%v", int64(i))
}

func (i1 Int64Value) Compare(v2 Value) (int, error) {
	switch v2 := v2.(type) {
	case Int64Value:
		if i1 < v2 {
			return -1, nil
		} else if i1 > v2 {
			return 1, nil
		}
		return 0, nil
	case Float64Value:
		if Float64Value(i1) < v2 {
			return -1, nil
		} else if Float64Value(i1) > v2 {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("sql: want number got %v", v2)
}

type Float64Value float64

func (d Float64Value) String() string {
	return fmt.Sprintf("%v", float64(d))
}

func (d1 Float64Value) Compare(v2 Value) (int, error) {
	switch v2 := v2.(type) {
	case Int64Value:
		if d1 < Float64Value(v2) {
			return -1, nil
		} else if d1 > Float64Value(v2) {
			return 1, nil
		}
		return 0, nil
	case Float64Value:
		if d1 < v2 {
			return -1, nil
		} else if d1 > v2 {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("sql: want number got %v", v2)
}

type StringValue string

func (s StringValue) String() string {
	return fmt.Sprintf("'%s'", string(s))
}

func (s1 StringValue) Compare(v2 Value) (int, error) {
	if s2, ok := v2.(StringValue); ok {
		return strings.Compare(string(s1), string(s2)), nil
	}
	return 0, fmt.Errorf("sql: want string got %v", v2)
}

type TimeValue time.Time

func (t TimeValue) String() string {
	return fmt.Sprintf("'%s'", time.Time(t).Format(TimeFormat))
}

func (t1 TimeValue) Compare(v2 Value) (int, error) {
	if t2, ok := v2.(TimeValue); ok {
		if time.Time(t1).Before(time.Time(t2)) {
			return -1, nil
		} else if time.Time(t1).After(time.Time(t2)) {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("sql: want timestamp got %v", v2)
}

// Compare is a total order over values, nulls first and values of different
// types ordered by type: boolean, number, string, timestamp. It is used for
// primary key and index ordering.
func Compare(v1, v2 Value) int {
	if v1 == nil {
		if v2 == nil {
			return 0
		}
		return -1
	}
	if v2 == nil {
		return 1
	}
	r1 := typeRank(v1)
	r2 := typeRank(v2)
	if r1 < r2 {
		return -1
	} else if r1 > r2 {
		return 1
	}
	cmp, err := v1.Compare(v2)
	if err != nil {
		panic(fmt.Sprintf("sql: unexpected types for Compare: %v %v", v1, v2))
	}
	return cmp
}

func typeRank(v Value) int {
	switch v.(type) {
	case BoolValue:
		return 1
	case Int64Value, Float64Value:
		return 2
	case StringValue:
		return 3
	case TimeValue:
		return 4
	}
	panic(fmt.Sprintf("sql: unexpected type for Value: %T: %v", v, v))
}

func Format(v Value) string {
	if v == nil {
		return NullString
	}

	return v.String()
}
