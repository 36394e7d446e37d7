package table

// Chunk splits t into contiguous slices of maxRows rows; the last slice may
// be shorter. A table that fits, or a non-positive maxRows, yields one chunk.
func Chunk(t *Table, maxRows int) []*Table {
	if maxRows <= 0 || t.Len() <= maxRows {
		return []*Table{t}
	}
	chunks := make([]*Table, 0, (t.Len()+maxRows-1)/maxRows)
	for offset := 0; offset < t.Len(); offset += maxRows {
		chunks = append(chunks, t.Slice(offset, offset+maxRows))
	}
	return chunks
}
