package sql_test

import (
	"testing"
	"time"

	"github.com/leftmike/duet/sql"
)

func TestCompare(t *testing.T) {
	early := sql.TimeValue(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC))
	late := sql.TimeValue(time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC))

	cases := []struct {
		v1, v2 sql.Value
		cmp    int
	}{
		{nil, sql.BoolValue(true), -1},
		{nil, nil, 0},

		{sql.BoolValue(false), nil, 1},
		{sql.BoolValue(true), sql.BoolValue(true), 0},
		{sql.BoolValue(false), sql.BoolValue(false), 0},
		{sql.BoolValue(false), sql.BoolValue(true), -1},
		{sql.BoolValue(true), sql.BoolValue(false), 1},
		{sql.BoolValue(false), sql.Float64Value(1.23), -1},

		{sql.Float64Value(1.23), sql.BoolValue(false), 1},
		{sql.Float64Value(1.23), sql.Int64Value(123), -1},
		{sql.Float64Value(1.23), sql.StringValue("abc"), -1},
		{sql.Float64Value(1.23), sql.Float64Value(2.34), -1},
		{sql.Float64Value(1.23), sql.Float64Value(1.23), 0},
		{sql.Float64Value(1.23), sql.Float64Value(0.12), 1},

		{sql.Int64Value(123), sql.BoolValue(false), 1},
		{sql.Int64Value(123), sql.Float64Value(1.23), 1},
		{sql.Int64Value(123), sql.StringValue("abc"), -1},
		{sql.Int64Value(123), sql.Int64Value(234), -1},
		{sql.Int64Value(123), sql.Int64Value(123), 0},
		{sql.Int64Value(123), sql.Int64Value(12), 1},

		{sql.StringValue("abc"), sql.BoolValue(false), 1},
		{sql.StringValue("abc"), sql.Float64Value(1.23), 1},
		{sql.StringValue("abc"), sql.Int64Value(123), 1},
		{sql.StringValue("def"), sql.StringValue("ghi"), -1},
		{sql.StringValue("def"), sql.StringValue("def"), 0},
		{sql.StringValue("def"), sql.StringValue("abc"), 1},

		{early, sql.StringValue("abc"), 1},
		{early, late, -1},
		{late, early, 1},
		{early, early, 0},
	}

	for _, c := range cases {
		cmp := sql.Compare(c.v1, c.v2)
		if cmp != c.cmp {
			t.Errorf("Compare(%v, %v) got %d want %d", c.v1, c.v2, cmp, c.cmp)
		}
	}
}

func TestCompareError(t *testing.T) {
	cases := []struct {
		v1, v2 sql.Value
	}{
		{sql.BoolValue(true), sql.Int64Value(1)},
		{sql.Int64Value(1), sql.StringValue("abc")},
		{sql.StringValue("abc"), sql.BoolValue(true)},
		{sql.TimeValue(time.Now()), sql.Int64Value(1)},
	}

	for _, c := range cases {
		if _, err := c.v1.Compare(c.v2); err == nil {
			t.Errorf("%v.Compare(%v) did not fail", c.v1, c.v2)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		v sql.Value
		s string
	}{
		{nil, "NULL"},
		{sql.BoolValue(true), "true"},
		{sql.Int64Value(123), "123"},
		{sql.Float64Value(1.25), "1.25"},
		{sql.StringValue("abc"), "'abc'"},
	}

	for _, c := range cases {
		if s := sql.Format(c.v); s != c.s {
			t.Errorf("Format(%v) got %s want %s", c.v, s, c.s)
		}
	}
}
