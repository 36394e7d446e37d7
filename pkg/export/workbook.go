// CLAUDE:SUMMARY Serializes tables into an in-memory .xlsx workbook (excelize stream writer), one sheet per chunk or named table.
package export

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/hazyhaar/imgw-export/pkg/table"
)

// MimeType is the content type of the produced workbook.
const MimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DefaultSheetPrefix names chunk sheets when no prefix is given.
const DefaultSheetPrefix = "Dane"

// MaxSheetNameLen is the Excel sheet-name limit, in characters.
const MaxSheetNameLen = 31

// Sheet is a named table to export.
type Sheet struct {
	Name  string
	Table *table.Table
}

// WriteChunks writes one sheet per chunk. A single chunk is named prefix,
// several are named prefix1, prefix2, ...
func WriteChunks(chunks []*table.Table, prefix string) ([]byte, error) {
	if prefix == "" {
		prefix = DefaultSheetPrefix
	}
	sheets := make([]Sheet, len(chunks))
	for i, c := range chunks {
		name := prefix
		if len(chunks) > 1 {
			name = fmt.Sprintf("%s%d", prefix, i+1)
		}
		sheets[i] = Sheet{Name: name, Table: c}
	}
	return WriteSheets(sheets)
}

// WriteSheets writes one sheet per entry, in order. Names pass through
// SheetName; two names equal after truncation share a sheet
// and the later one wins. Each sheet holds a header row then the data rows.
func WriteSheets(sheets []Sheet) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	first := f.GetSheetName(0)
	for i, s := range sheets {
		name := SheetName(s.Name)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s.Table); err != nil {
			return nil, fmt.Errorf("write sheet %q: %w", name, err)
		}
		slog.Debug("sheet written", "sheet", name, "rows", s.Table.Len())
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	slog.Debug("workbook exported", "sheets", len(sheets), "bytes", buf.Len())
	return buf.Bytes(), nil
}

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

// SheetName makes name a valid Excel sheet name: the characters :\/?*[]
// become "_", it is truncated to MaxSheetNameLen characters and stripped of
// leading and trailing apostrophes. A name left empty becomes DefaultSheetPrefix.
func SheetName(name string) string {
	r := []rune(sheetNameReplacer.Replace(name))
	if len(r) > MaxSheetNameLen {
		r = r[:MaxSheetNameLen]
	}
	name = strings.Trim(string(r), "'")
	if name == "" {
		return DefaultSheetPrefix
	}
	return name
}

func writeSheet(f *excelize.File, sheet string, t *table.Table) error {
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}
	if t == nil {
		return sw.Flush()
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}
	for r, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = cellValue(t.Columns[i], v)
		}
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// cellValue keeps numbers, booleans and text as they are and writes times
// as text, so no cell carries a number format.
func cellValue(c table.Column, v any) any {
	if _, ok := v.(time.Time); ok {
		return c.Format(v)
	}
	return v
}

// Filename returns imgw_{sourceKey}_{frequency}.xlsx with spaces in the
// frequency replaced by underscores, or imgw_{sourceKey}_api.xlsx.
func Filename(sourceKey, frequency string, isAPI bool) string {
	label := strings.ReplaceAll(frequency, " ", "_")
	if isAPI || label == "" {
		label = "api"
	}
	return fmt.Sprintf("imgw_%s_%s.xlsx", sourceKey, label)
}

// Save writes data to path on fs, creating parent directories.
func Save(fs afero.Fs, path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
