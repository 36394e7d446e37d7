// CLAUDE:SUMMARY Column matching by normalized name plus the opportunistic transforms built on it (date synthesis, station and date-range filters).
package table

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateColumn is the name of the synthesized calendar-date column.
const DateColumn = "Data"

// Candidate labels for the date parts, in priority order.
var (
	YearCandidates  = []string{"Rok", "Rok hydrologiczny"}
	MonthCandidates = []string{"Miesiac", "Miesiąc", "Miesiac kalendarzowy", "Miesiąc kalendarzowy"}
	DayCandidates   = []string{"Dzien", "Dzień"}
)

// FindColumn returns the actual name of the first column whose normalized
// name equals a normalized candidate. Candidates are tried in order.
func FindColumn(t *Table, candidates ...string) (string, bool) {
	normalized := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		key := Normalize(c.Name)
		if _, exists := normalized[key]; !exists {
			normalized[key] = c.Name
		}
	}
	for _, cand := range candidates {
		if name, ok := normalized[Normalize(cand)]; ok {
			return name, true
		}
	}
	return "", false
}

// AddDateColumn sets a Data column built from year, month and (optional,
// default 1) day columns, appending it unless one exists. Without a year or month column t is returned as is.
// Parts that are not valid integers, or that form no real date, yield null.
func AddDateColumn(t *Table) *Table {
	yearCol, ok := FindColumn(t, YearCandidates...)
	if !ok {
		return t
	}
	monthCol, ok := FindColumn(t, MonthCandidates...)
	if !ok {
		return t
	}
	dayIdx := -1
	if dayCol, ok := FindColumn(t, DayCandidates...); ok {
		dayIdx = t.Index(dayCol)
	}
	yi, mi := t.Index(yearCol), t.Index(monthCol)

	// An existing Data column is replaced in place.
	di := t.Index(DateColumn)
	out := &Table{Columns: append([]Column(nil), t.Columns...), Rows: make([][]any, len(t.Rows))}
	if di < 0 {
		di = len(out.Columns)
		out.Columns = append(out.Columns, Column{Name: DateColumn})
	}
	out.Columns[di].Kind = KindDate

	for r, row := range t.Rows {
		day := any(int64(1))
		if dayIdx >= 0 {
			day = row[dayIdx]
		}
		nr := make([]any, len(out.Columns))
		copy(nr, row)
		nr[di] = buildDate(row[yi], row[mi], day)
		out.Rows[r] = nr
	}
	return out
}

func buildDate(y, m, d any) any {
	year, ok1 := toInt(y)
	month, ok2 := toInt(m)
	day, ok3 := toInt(d)
	if !ok1 || !ok2 || !ok3 {
		return nil
	}
	ts := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if ts.Year() != year || int(ts.Month()) != month || ts.Day() != day {
		return nil
	}
	return ts
}

// toInt casts a cell to an integer the way a numeric cast would: whole floats
// and numeric strings are accepted, anything else is not.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// FilterByStation keeps rows whose station column contains query,
// case-insensitively. An empty query or an unresolvable station column
// returns t unchanged. Null station cells never match.
func FilterByStation(t *Table, query string, candidates []string) *Table {
	if query == "" {
		return t
	}
	col, ok := FindColumn(t, candidates...)
	if !ok {
		return t
	}
	idx := t.Index(col)
	needle := strings.ToLower(query)
	return t.Filter(func(row []any) bool {
		if row[idx] == nil {
			return false
		}
		return strings.Contains(strings.ToLower(Format(row[idx])), needle)
	})
}

// FilterDateRange keeps rows whose Data value lies within [from, to]
// (inclusive, compared by calendar day). Without a Data column t is returned unchanged.
func FilterDateRange(t *Table, from, to time.Time) *Table {
	idx := t.Index(DateColumn)
	if idx < 0 {
		return t
	}
	lo, hi := truncateDay(from), truncateDay(to)
	return t.Filter(func(row []any) bool {
		ts, ok := row[idx].(time.Time)
		if !ok {
			return false
		}
		d := truncateDay(ts)
		return !d.Before(lo) && !d.After(hi)
	})
}

func truncateDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
