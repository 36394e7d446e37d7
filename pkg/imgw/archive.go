package imgw

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
)

// PlaceholderName keys the single entry of a payload that is not a zip archive.
const PlaceholderName = "plik"

var zipMagic = []byte("PK\x03\x04")

// IsZip reports whether data starts with the zip local-file signature.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// Expand returns the non-directory entries of a zip payload by name, or
// {PlaceholderName: data} when data is not a zip. A payload with the zip
// signature that cannot be read fails with an ArchiveError.
func Expand(data []byte) (map[string][]byte, error) {
	if !IsZip(data) {
		return map[string][]byte{PlaceholderName: data}, nil
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ArchiveError{Err: err}
	}

	entries := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &ArchiveError{Err: fmt.Errorf("open entry %s: %w", f.Name, err)}
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &ArchiveError{Err: fmt.Errorf("read entry %s: %w", f.Name, err)}
		}
		entries[f.Name] = b
	}
	return entries, nil
}

// EntryNames returns the names of entries in lexical order.
func EntryNames(entries map[string][]byte) []string {
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
