package table

import (
	"slices"
	"strings"
	"time"
)

// Compare orders two cells: null first, then numbers, booleans, times and
// strings each by their natural order. Cells of different kinds compare by
// their formatted text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	switch x := a.(type) {
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(Format(a), Format(b))
}

// SortBy returns a copy of t with rows in ascending order of column name,
// nulls first and ties in their original order. An unknown column returns t.
func SortBy(t *Table, name string) *Table {
	idx := t.Index(name)
	if idx < 0 {
		return t
	}
	rows := slices.Clone(t.Rows)
	slices.SortStableFunc(rows, func(a, b []any) int {
		return Compare(a[idx], b[idx])
	})
	return &Table{Columns: t.Columns, Rows: rows}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}
