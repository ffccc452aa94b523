package testutil

import (
	"sort"
	"strings"

	"github.com/leftmike/duet/sql"
)

// SortRows orders rows by the column at col; tests use it to compare scan
// results independent of iteration order.
func SortRows(col int, rows [][]sql.Value) {
	sort.Slice(rows, func(i, j int) bool {
		return sql.Compare(rows[i][col], rows[j][col]) < 0
	})
}

// RowsEqual compares two row sets value by value.
func RowsEqual(rows1, rows2 [][]sql.Value) bool {
	if len(rows1) != len(rows2) {
		return false
	}
	for rdx := range rows1 {
		if len(rows1[rdx]) != len(rows2[rdx]) {
			return false
		}
		for cdx := range rows1[rdx] {
			if sql.Compare(rows1[rdx][cdx], rows2[rdx][cdx]) != 0 {
				return false
			}
		}
	}
	return true
}

// FormatRows renders rows one per line for diffable test output.
func FormatRows(rows [][]sql.Value) string {
	var sb strings.Builder
	for _, row := range rows {
		for cdx, v := range row {
			if cdx > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(sql.Format(v))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
