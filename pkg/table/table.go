// CLAUDE:SUMMARY In-memory typed table (ordered columns + rows of nullable cells) shared by every pipeline stage.
package table

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the inferred type of a column.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindDate
	KindDateTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	default:
		return "string"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name; unknown names decode as KindString.
func (k *Kind) UnmarshalText(text []byte) error {
	for c := KindString; c <= KindDateTime; c++ {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	*k = KindString
	return nil
}

// Column is a named, typed column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Table holds ordered columns and row-ordered records. A nil cell is null.
// Cells hold one of: nil, string, int64, float64, bool, time.Time.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// New returns an empty table with the given columns.
func New(cols ...Column) *Table {
	return &Table{Columns: cols}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the column with exactly this name, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Has reports whether a column with exactly this name exists.
func (t *Table) Has(name string) bool {
	return t.Index(name) >= 0
}

// AppendRow adds a row, padding or truncating it to the column count.
func (t *Table) AppendRow(row []any) {
	t.Rows = append(t.Rows, fitRow(row, len(t.Columns)))
}

// Clone returns a copy sharing cell values but not slices.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: append([]Column(nil), t.Columns...),
		Rows:    make([][]any, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// Slice returns rows [from, to) as a new table with the same columns.
func (t *Table) Slice(from, to int) *Table {
	if from < 0 {
		from = 0
	}
	if to > len(t.Rows) {
		to = len(t.Rows)
	}
	out := &Table{Columns: append([]Column(nil), t.Columns...)}
	if from < to {
		out.Rows = append([][]any(nil), t.Rows[from:to]...)
	}
	return out
}

// Select projects the named columns, in the given order. Unknown names are skipped.
func (t *Table) Select(names ...string) *Table {
	idx := make([]int, 0, len(names))
	out := &Table{}
	for _, n := range names {
		if i := t.Index(n); i >= 0 {
			idx = append(idx, i)
			out.Columns = append(out.Columns, t.Columns[i])
		}
	}
	out.Rows = make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]any, len(idx))
		for j, i := range idx {
			nr[j] = row[i]
		}
		out.Rows[r] = nr
	}
	return out
}

// Filter returns the rows for which keep returns true.
func (t *Table) Filter(keep func(row []any) bool) *Table {
	out := &Table{Columns: append([]Column(nil), t.Columns...)}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

func fitRow(row []any, n int) []any {
	if len(row) == n {
		return row
	}
	out := make([]any, n)
	copy(out, row)
	return out
}

// DateLayout and DateTimeLayout are used when cells are rendered as text.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Format renders a cell as text. Null renders as "".
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(DateLayout)
		}
		return x.Format(DateTimeLayout)
	default:
		return fmt.Sprint(x)
	}
}

// Format renders a cell of this column, using the column kind to pick the time layout.
func (c Column) Format(v any) string {
	if ts, ok := v.(time.Time); ok {
		if c.Kind == KindDate {
			return ts.Format(DateLayout)
		}
		return ts.Format(DateTimeLayout)
	}
	return Format(v)
}
