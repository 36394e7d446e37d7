// CLAUDE:SUMMARY Encoding/delimiter-agnostic parser turning raw IMGW file bytes into a typed Table (never fails).
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// InferRows bounds how many leading rows are sampled for column type inference.
const InferRows = 1000

// decoder is one candidate in the decode chain.
type decoder struct {
	name   string
	decode func([]byte) (string, bool)
}

// decoders are tried in order; the first strict success wins.
var decoders = []decoder{
	{"utf-8", decodeUTF8},
	{"windows-1250", strictCharmap(charmap.Windows1250, 0x81, 0x83, 0x88, 0x90, 0x98)},
	{"iso-8859-1", strictCharmap(charmap.ISO8859_1)},
}

func decodeUTF8(data []byte) (string, bool) {
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

// strictCharmap rejects input containing bytes the code page leaves undefined.
func strictCharmap(cm *charmap.Charmap, undefined ...byte) func([]byte) (string, bool) {
	return func(data []byte) (string, bool) {
		for _, b := range undefined {
			if bytes.IndexByte(data, b) >= 0 {
				return "", false
			}
		}
		out, err := cm.NewDecoder().Bytes(data)
		if err != nil || strings.ContainsRune(string(out), utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

// Decode converts bytes to text. It never fails: when every strict attempt is
// rejected the data is force-decoded as Latin-1.
func Decode(data []byte) string {
	text, _ := DecodeWithName(data)
	return text
}

// DecodeWithName is Decode that also reports the encoding that was used.
func DecodeWithName(data []byte) (string, string) {
	for _, d := range decoders {
		if s, ok := d.decode(data); ok {
			return s, d.name
		}
	}
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(out), "iso-8859-1 (forced)"
}

// Delimiters are sniffed in this priority order.
var Delimiters = []rune{';', ',', '\t', '|'}

// SniffDelimiter returns the first candidate delimiter present in sample.
// ok is false when none is present and the text should be split on whitespace.
func SniffDelimiter(sample string) (rune, bool) {
	for _, d := range Delimiters {
		if strings.ContainsRune(sample, d) {
			return d, true
		}
	}
	return 0, false
}

// Parse decodes data, sniffs the delimiter from the first non-blank line and
// reads a table whose first record is the header. Ragged rows are truncated
// or padded, unreadable records are dropped and cells that do not fit the
// inferred column type become null.
func Parse(data []byte) *Table {
	text := Decode(data)
	text = strings.TrimPrefix(text, "\ufeff")

	sample := firstNonBlankLine(text)
	delim, ok := SniffDelimiter(sample)

	var records [][]string
	if ok {
		records = readDelimited(text, delim)
	} else {
		records = readWhitespace(text)
	}
	return fromRecords(records)
}

func firstNonBlankLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func readDelimited(text string, delim rune) [][]string {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = delim != '\t'

	var records [][]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		if isBlankRecord(record) {
			continue
		}
		records = append(records, record)
	}
	return records
}

func readWhitespace(text string) [][]string {
	var records [][]string
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		records = append(records, fields)
	}
	return records
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func fromRecords(records [][]string) *Table {
	if len(records) == 0 {
		return &Table{}
	}

	header := headerNames(records[0])
	body := records[1:]

	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Kind: inferKind(body, i)}
	}

	t := &Table{Columns: cols, Rows: make([][]any, 0, len(body))}
	for _, record := range body {
		row := make([]any, len(cols))
		for i := range cols {
			if i < len(record) {
				row[i] = coerce(strings.TrimSpace(record[i]), cols[i].Kind)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// headerNames trims names, fills blanks and disambiguates duplicates.
func headerNames(record []string) []string {
	seen := make(map[string]int, len(record))
	names := make([]string, len(record))
	for i, h := range record {
		name := strings.Trim(strings.TrimSpace(h), `"`)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_duplicated_%d", name, n)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// inferKind picks the narrowest kind that fits every non-empty sampled cell.
func inferKind(body [][]string, col int) Kind {
	isInt, isFloat, isBool, seen := true, true, true, false
	for r := 0; r < len(body) && r < InferRows; r++ {
		if col >= len(body[r]) {
			continue
		}
		cell := strings.TrimSpace(body[r][col])
		if cell == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, ok := parseFloat(cell); !ok {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(cell); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return KindString
		}
	}
	switch {
	case !seen:
		return KindString
	case isInt:
		return KindInt
	case isFloat:
		return KindFloat
	case isBool:
		return KindBool
	}
	return KindString
}

func parseBool(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, "true"):
		return true, true
	case strings.EqualFold(s, "false"):
		return false, true
	}
	return false, false
}

// parseFloat accepts a decimal comma as found in Polish-locale files.
func parseFloat(s string) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func coerce(cell string, k Kind) any {
	if cell == "" {
		return nil
	}
	switch k {
	case KindInt:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil
		}
		return v
	case KindFloat:
		v, ok := parseFloat(cell)
		if !ok {
			return nil
		}
		return v
	case KindBool:
		v, ok := parseBool(cell)
		if !ok {
			return nil
		}
		return v
	default:
		return cell
	}
}
