package hydro

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/imgw-export/pkg/table"
)

// TimestampLayout is the format of the hydro API *_data_pomiaru columns.
const TimestampLayout = "2006-01-02 15:04:05"

// Interval is an aggregation bucket width.
type Interval int

const (
	IntervalNone Interval = iota
	IntervalHourly
	IntervalDaily
	IntervalWeekly
	IntervalMonthly
)

var intervalNames = []struct {
	key, label, duration string
}{
	IntervalNone:    {"none", "Brak (surowe dane)", ""},
	IntervalHourly:  {"hourly", "Godzinowy", "1h"},
	IntervalDaily:   {"daily", "Dzienny", "1d"},
	IntervalWeekly:  {"weekly", "Tygodniowy", "1w"},
	IntervalMonthly: {"monthly", "Miesięczny", "1mo"},
}

// Intervals returns every interval in display order.
func Intervals() []Interval {
	return []Interval{IntervalNone, IntervalHourly, IntervalDaily, IntervalWeekly, IntervalMonthly}
}

func (i Interval) String() string {
	if i < 0 || int(i) >= len(intervalNames) {
		return fmt.Sprintf("Interval(%d)", int(i))
	}
	return intervalNames[i].key
}

// Label returns the Polish display label.
func (i Interval) Label() string {
	if i < 0 || int(i) >= len(intervalNames) {
		return i.String()
	}
	return intervalNames[i].label
}

// ParseInterval accepts a key ("daily"), a display label ("Dzienny") or a
// duration token ("1d"). The empty string is IntervalNone.
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return IntervalNone, nil
	}
	for i, n := range intervalNames {
		if strings.EqualFold(s, n.key) || s == n.label || (n.duration != "" && s == n.duration) {
			return Interval(i), nil
		}
	}
	return IntervalNone, fmt.Errorf("unknown aggregation interval %q", s)
}

// Truncate returns the start of the bucket containing ts. Weeks start on Monday.
func (i Interval) Truncate(ts time.Time) time.Time {
	y, m, d := ts.Date()
	switch i {
	case IntervalHourly:
		return time.Date(y, m, d, ts.Hour(), 0, 0, 0, ts.Location())
	case IntervalDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, ts.Location())
	case IntervalWeekly:
		back := (int(ts.Weekday()) + 6) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, ts.Location())
	case IntervalMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, ts.Location())
	}
	return ts
}

type group struct {
	key   []any
	sum   float64
	count int
}

// Aggregate averages valueCol per station and interval bucket of dateCol.
// Timestamps that do not parse and values that are not numeric become null.
// Rows are grouped by the present station columns and the truncated date and
// sorted by those columns ascending, nulls first. With IntervalNone, or when
// either column is missing, t is returned unchanged.
func Aggregate(t *table.Table, dateCol, valueCol string, interval Interval) *table.Table {
	if interval == IntervalNone || !t.Has(dateCol) || !t.Has(valueCol) {
		return t
	}
	station := presentColumns(t, StationColumns)
	keyIdx := make([]int, 0, len(station)+1)
	for _, c := range station {
		keyIdx = append(keyIdx, t.Index(c))
	}
	di, vi := t.Index(dateCol), t.Index(valueCol)

	groups := make(map[string]*group)
	var order []*group
	for _, row := range t.Rows {
		key := make([]any, 0, len(keyIdx)+1)
		for _, i := range keyIdx {
			key = append(key, row[i])
		}
		var bucket any
		if ts, ok := parseTimestamp(row[di]); ok {
			bucket = interval.Truncate(ts)
		}
		key = append(key, bucket)

		id := groupID(key)
		g, ok := groups[id]
		if !ok {
			g = &group{key: key}
			groups[id] = g
			order = append(order, g)
		}
		if v, ok := toFloat(row[vi]); ok {
			g.sum += v
			g.count++
		}
	}

	slices.SortStableFunc(order, func(a, b *group) int {
		for i := range a.key {
			if c := table.Compare(a.key[i], b.key[i]); c != 0 {
				return c
			}
		}
		return 0
	})

	out := &table.Table{Rows: make([][]any, 0, len(order))}
	for _, i := range keyIdx {
		out.Columns = append(out.Columns, t.Columns[i])
	}
	out.Columns = append(out.Columns,
		table.Column{Name: dateCol, Kind: table.KindDateTime},
		table.Column{Name: valueCol, Kind: table.KindFloat},
	)
	for _, g := range order {
		var mean any
		if g.count > 0 {
			mean = g.sum / float64(g.count)
		}
		out.Rows = append(out.Rows, append(append([]any(nil), g.key...), mean))
	}
	return out
}

func groupID(key []any) string {
	var b strings.Builder
	for _, v := range key {
		if v == nil {
			b.WriteString("\x00null")
		} else {
			b.WriteString(table.Format(v))
		}
		b.WriteByte('\x1f')
	}
	return b.String()
}

func parseTimestamp(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		ts, err := time.Parse(TimestampLayout, strings.TrimSpace(x))
		return ts, err == nil
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, !math.IsNaN(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && !math.IsNaN(f)
	}
	return 0, false
}
