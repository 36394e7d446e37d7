// CLAUDE:SUMMARY Flattens IMGW API JSON (array of objects or single object) into a Table, preserving key order.
package table

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// FromJSON converts an API response into a table: an array yields one row per
// object element, a single object yields one row. Empty bodies, other JSON
// values and undecodable input yield an empty table. Array elements that are
// not objects, or are empty objects, are skipped.
func FromJSON(data []byte) *Table {
	text := strings.TrimSpace(strings.TrimPrefix(Decode(data), "\ufeff"))
	if text == "" {
		return &Table{}
	}

	var objects []*orderedmap.OrderedMap[string, json.RawMessage]
	switch text[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal([]byte(text), &elems); err != nil {
			slog.Warn("api response is not valid JSON", "error", err)
			return &Table{}
		}
		for i, raw := range elems {
			obj, ok := decodeObject(raw)
			if !ok {
				slog.Debug("skipping non-object array element", "index", i)
				continue
			}
			objects = append(objects, obj)
		}
	case '{':
		obj, ok := decodeObject(json.RawMessage(text))
		if !ok {
			slog.Debug("api response object is empty or undecodable")
			return &Table{}
		}
		objects = append(objects, obj)
	default:
		return &Table{}
	}
	return fromObjects(objects)
}

func decodeObject(raw json.RawMessage) (*orderedmap.OrderedMap[string, json.RawMessage], bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	obj := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, obj); err != nil || obj.Len() == 0 {
		return nil, false
	}
	return obj, true
}

func fromObjects(objects []*orderedmap.OrderedMap[string, json.RawMessage]) *Table {
	var names []string
	index := make(map[string]int)
	for _, obj := range objects {
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			if _, ok := index[pair.Key]; !ok {
				index[pair.Key] = len(names)
				names = append(names, pair.Key)
			}
		}
	}

	t := &Table{Columns: make([]Column, len(names)), Rows: make([][]any, len(objects))}
	for r, obj := range objects {
		row := make([]any, len(names))
		for pair := obj.Oldest(); pair != nil; pair = pair.Next() {
			row[index[pair.Key]] = jsonValue(pair.Value)
		}
		t.Rows[r] = row
	}
	for i, name := range names {
		t.Columns[i] = Column{Name: name, Kind: unifyColumn(t.Rows, i)}
	}
	return t
}

func jsonValue(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case nil, string, bool:
		return x
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw)
		}
		return buf.String()
	}
}

// unifyColumn picks a kind for column i and converts its cells to match it.
func unifyColumn(rows [][]any, i int) Kind {
	ints, floats, bools, seen := 0, 0, 0, 0
	for _, row := range rows {
		switch row[i].(type) {
		case nil:
			continue
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		}
		seen++
	}
	switch {
	case seen == 0:
		return KindString
	case ints == seen:
		return KindInt
	case ints+floats == seen:
		for _, row := range rows {
			if n, ok := row[i].(int64); ok {
				row[i] = float64(n)
			}
		}
		return KindFloat
	case bools == seen:
		return KindBool
	}
	for _, row := range rows {
		if row[i] != nil {
			if _, ok := row[i].(string); !ok {
				row[i] = Format(row[i])
			}
		}
	}
	return KindString
}
