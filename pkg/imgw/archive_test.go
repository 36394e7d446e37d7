package imgw

import (
	"archive/zip"
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func buildZip(t *testing.T, files map[string]string, dirs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, d := range dirs {
		if _, err := zw.Create(d); err != nil {
			t.Fatalf("create dir %s: %v", d, err)
		}
	}
	for _, name := range EntryNames(toBytes(files)) {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		w.Write([]byte(files[name]))
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func toBytes(m map[string]string) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = []byte(v)
	}
	return out
}

func TestExpand_Zip(t *testing.T) {
	files := map[string]string{
		"k_d_01_2020.csv": "a;b\n1;2\n",
		"k_d_t_2020.csv":  "c;d\n3;4\n",
	}
	data := buildZip(t, files, "nested/")

	got, err := Expand(data)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if !reflect.DeepEqual(got, toBytes(files)) {
		t.Errorf("Expand = %v", got)
	}
	if names := EntryNames(got); names[0] != "k_d_01_2020.csv" {
		t.Errorf("first entry = %q", names[0])
	}
}

func TestExpand_PlainPayload(t *testing.T) {
	data := []byte("a;b\n1;2\n")
	got, err := Expand(data)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[PlaceholderName], data) {
		t.Errorf("Expand = %v", got)
	}
}

func TestExpand_Corrupt(t *testing.T) {
	_, err := Expand([]byte("PK\x03\x04 truncated archive"))
	var ae *ArchiveError
	if !errors.As(err, &ae) {
		t.Fatalf("err = %v, want ArchiveError", err)
	}
}
