// CLAUDE:SUMMARY Legend (info file) parsing into ordered column names and all-or-nothing positional rename.
package table

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// legendPatterns are tried in order; the first capture group of the first
// match is the column name. A trailing numeric annotation ("12", "3/4") is dropped.
var legendPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^([A-Za-z\x{00C0}-\x{017F}].*?)(?:\s+\d+(?:/\d+)?)?$`),
}

// ParseLegend extracts column names from the free text of an IMGW info file.
// Lines that match no pattern contribute nothing.
func ParseLegend(text string) []string {
	var columns []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cleaned := whitespaceRun.ReplaceAllString(line, " ")
		if name, ok := matchLegendLine(cleaned); ok {
			columns = append(columns, name)
		}
	}
	return columns
}

func matchLegendLine(line string) (string, bool) {
	for _, re := range legendPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if name := strings.Trim(m[1], "- "); name != "" {
			return name, true
		}
	}
	return "", false
}

// ApplyLegend renames columns positionally when the legend has exactly one
// name per column. Any other length leaves t unchanged.
func ApplyLegend(t *Table, legend []string) *Table {
	if len(legend) == 0 || len(legend) != len(t.Columns) {
		return t
	}
	out := &Table{Columns: make([]Column, len(t.Columns)), Rows: t.Rows}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: legend[i], Kind: c.Kind}
	}
	return out
}
