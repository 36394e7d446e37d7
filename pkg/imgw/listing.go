// CLAUDE:SUMMARY Parses Apache-style HTML index pages into DirectoryEntry values (goquery) and formats them for display.
package imgw

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DirectoryEntry is one link of a directory listing.
type DirectoryEntry struct {
	Name  string `json:"name"`
	Href  string `json:"href"`
	IsDir bool   `json:"is_dir"`
}

// Display prefixes for FormatEntries.
const (
	DirLabel  = "[DIR]"
	FileLabel = "[PLIK]"
)

// ListDirectory fetches an index page and parses its entries.
func (f *Fetcher) ListDirectory(ctx context.Context, url string) ([]DirectoryEntry, error) {
	html, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	entries := ParseDirectory(html)
	f.logger.Debug("directory listed", "url", url, "entries", len(entries))
	return entries, nil
}

// ParseDirectory extracts every <a href> of an index page. Parent links are
// skipped; an href ending in "/" marks a directory, whose trailing slash is
// stripped from the name. Malformed pages yield fewer entries, never an error.
func ParseDirectory(html []byte) []DirectoryEntry {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}
	var entries []DirectoryEntry
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		name := s.Text()
		if isParent(name) || isParent(href) || name == "" {
			return
		}
		entries = append(entries, DirectoryEntry{
			Name:  strings.TrimRight(name, "/"),
			Href:  href,
			IsDir: strings.HasSuffix(href, "/"),
		})
	})
	return entries
}

func isParent(s string) bool {
	return s == ".." || s == "../"
}

// FormatEntries renders entries as "[DIR] name" or "[PLIK] name".
func FormatEntries(entries []DirectoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		label := FileLabel
		if e.IsDir {
			label = DirLabel
		}
		out[i] = fmt.Sprintf("%s %s", label, e.Name)
	}
	return out
}

// ParseEntryLabel strips the display prefix added by FormatEntries.
func ParseEntryLabel(label string) string {
	for _, p := range []string{DirLabel + " ", FileLabel + " "} {
		if rest, ok := strings.CutPrefix(label, p); ok {
			return rest
		}
	}
	return label
}
