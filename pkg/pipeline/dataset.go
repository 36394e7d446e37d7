package pipeline

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hazyhaar/imgw-export/pkg/export"
	"github.com/hazyhaar/imgw-export/pkg/hydro"
	"github.com/hazyhaar/imgw-export/pkg/table"
)

// Dataset is the normalized result of a fetch, ready for preview or export.
type Dataset struct {
	SourceKey  string
	Frequency  string
	IsAPI      bool
	Entries    []string
	Entry      string
	Table      *table.Table
	Categories []hydro.Category
}

// Workbook is an exported spreadsheet.
type Workbook struct {
	Filename string
	MimeType string
	Sheets   []string
	Data     []byte
}

// Export writes ds as a workbook. Hydro API datasets get one sheet per
// category; everything else is chunked into sheets named Dane, Dane1, ...
// A category larger than maxRows is chunked the same way under its label.
// maxRows 0 uses the service default.
func (s *Service) Export(ds *Dataset, maxRows int) (*Workbook, error) {
	if ds == nil || ds.Table == nil {
		return nil, &InputError{Field: "dataset", Reason: "nothing to export"}
	}
	if maxRows == 0 {
		maxRows = s.maxRows
	}
	if err := ValidateMaxRows(maxRows); err != nil {
		return nil, err
	}

	var (
		data   []byte
		err    error
		layout string
		names  []string
	)
	if len(ds.Categories) > 0 {
		layout = "sheets"
		var sheets []export.Sheet
		for _, c := range ds.Categories {
			chunks := table.Chunk(c.Table, maxRows)
			for i, chunk := range chunks {
				name := c.Label
				if len(chunks) > 1 {
					name = fmt.Sprintf("%s%d", c.Label, i+1)
				}
				sheets = append(sheets, export.Sheet{Name: name, Table: chunk})
			}
		}
		for _, sh := range sheets {
			names = append(names, export.SheetName(sh.Name))
		}
		data, err = export.WriteSheets(sheets)
	} else {
		layout = "chunks"
		chunks := table.Chunk(ds.Table, maxRows)
		for i := range chunks {
			name := export.DefaultSheetPrefix
			if len(chunks) > 1 {
				name = fmt.Sprintf("%s%d", export.DefaultSheetPrefix, i+1)
			}
			names = append(names, name)
		}
		data, err = export.WriteChunks(chunks, export.DefaultSheetPrefix)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", ds.SourceKey, err)
	}

	if s.metrics != nil {
		s.metrics.Exports.WithLabelValues(layout).Inc()
		s.metrics.ExportBytes.Observe(float64(len(data)))
	}
	wb := &Workbook{
		Filename: export.Filename(ds.SourceKey, ds.Frequency, ds.IsAPI),
		MimeType: export.MimeType,
		Sheets:   names,
		Data:     data,
	}
	s.logger.Info("workbook exported", "file", wb.Filename, "sheets", len(names), "bytes", len(data))
	return wb, nil
}

// Preview is a JSON-friendly excerpt of a dataset.
type Preview struct {
	SourceKey  string            `json:"source"`
	Frequency  string            `json:"frequency,omitempty"`
	Entries    []string          `json:"entries,omitempty"`
	Entry      string            `json:"entry,omitempty"`
	DateColumn string            `json:"date_column,omitempty"`
	Table      TablePreview      `json:"table"`
	Stats      Stats             `json:"stats"`
	Categories []CategoryPreview `json:"categories,omitempty"`
}

// TablePreview holds the columns and the first rows of a table, rendered as text.
type TablePreview struct {
	Columns   []table.Column `json:"columns"`
	Rows      [][]string     `json:"rows"`
	TotalRows int            `json:"total_rows"`
}

// CategoryPreview is the preview of one hydro category.
type CategoryPreview struct {
	Label string       `json:"label"`
	Table TablePreview `json:"table"`
}

// Stats summarizes the whole dataset table, not only the previewed rows.
type Stats struct {
	Records int           `json:"records"`
	Unique  []UniqueCount `json:"unique,omitempty"`
	Dates   *DateRange    `json:"dates,omitempty"`
}

// UniqueCount is the number of distinct values, null included, in the
// column chosen for a group.
type UniqueCount struct {
	Group  string `json:"group"`
	Column string `json:"column"`
	Count  int    `json:"count"`
}

// DateRange is the earliest and latest non-null value of the date column,
// as YYYY-MM-DD.
type DateRange struct {
	Column string `json:"column"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// DefaultPreviewRows bounds the rows rendered by Preview when no limit is given.
const DefaultPreviewRows = 200

// previewDateColumns are tried in order: Data for archival tables, dtime
// for API snapshots.
var previewDateColumns = []string{table.DateColumn, "dtime"}

// uniqueGroups lists the lowercase column names counted per group. The
// first text column, in table order, matching a group is used.
var uniqueGroups = []struct {
	name    string
	columns []string
}{
	{"stations", []string{"nazwa stacji", "nazwa wodowskazu", "wodowskaz", "stacja", "nazwa_stacji"}},
	{"rivers", []string{"rzeka"}},
	{"provinces", []string{"wojewodztwo", "województwo"}},
}

// Preview renders the first limit rows of the dataset, sorted ascending by
// its date column when it has one, with statistics and category previews.
func (ds *Dataset) Preview(limit int) Preview {
	if limit <= 0 {
		limit = DefaultPreviewRows
	}
	t := ds.Table
	dateCol := previewDateColumn(t)
	if dateCol != "" {
		t = table.SortBy(t, dateCol)
	}
	p := Preview{
		SourceKey:  ds.SourceKey,
		Frequency:  ds.Frequency,
		Entries:    ds.Entries,
		Entry:      ds.Entry,
		DateColumn: dateCol,
		Table:      previewTable(t, limit),
		Stats:      tableStats(t, dateCol),
	}
	for _, c := range ds.Categories {
		p.Categories = append(p.Categories, CategoryPreview{Label: c.Label, Table: previewTable(c.Table, limit)})
	}
	return p
}

func previewDateColumn(t *table.Table) string {
	for _, name := range previewDateColumns {
		if t.Has(name) {
			return name
		}
	}
	return ""
}

func previewTable(t *table.Table, limit int) TablePreview {
	head := t.Slice(0, limit)
	rows := make([][]string, len(head.Rows))
	for r, row := range head.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = t.Columns[i].Format(v)
		}
		rows[r] = cells
	}
	return TablePreview{Columns: t.Columns, Rows: rows, TotalRows: t.Len()}
}

func tableStats(t *table.Table, dateCol string) Stats {
	st := Stats{Records: t.Len()}

	used := make(map[int]bool)
	for _, g := range uniqueGroups {
		for i, c := range t.Columns {
			if used[i] || c.Kind != table.KindString || c.Name == dateCol || !slices.Contains(g.columns, strings.ToLower(c.Name)) {
				continue
			}
			used[i] = true
			st.Unique = append(st.Unique, UniqueCount{Group: g.name, Column: c.Name, Count: distinct(t, i)})
			break
		}
	}

	if dateCol != "" {
		st.Dates = dateRange(t, dateCol)
	}
	return st
}

func distinct(t *table.Table, i int) int {
	seen := make(map[any]struct{})
	for _, row := range t.Rows {
		seen[row[i]] = struct{}{}
	}
	return len(seen)
}

// dateRange returns nil when the column holds no values.
func dateRange(t *table.Table, name string) *DateRange {
	idx := t.Index(name)
	var lo, hi any
	for _, row := range t.Rows {
		v := row[idx]
		if v == nil {
			continue
		}
		if lo == nil || table.Compare(v, lo) < 0 {
			lo = v
		}
		if hi == nil || table.Compare(v, hi) > 0 {
			hi = v
		}
	}
	if lo == nil {
		return nil
	}
	return &DateRange{Column: name, From: dayOf(lo), To: dayOf(hi)}
}

func dayOf(v any) string {
	if ts, ok := v.(time.Time); ok {
		return ts.Format(table.DateLayout)
	}
	s := []rune(table.Format(v))
	if len(s) > len(table.DateLayout) {
		s = s[:len(table.DateLayout)]
	}
	return string(s)
}
