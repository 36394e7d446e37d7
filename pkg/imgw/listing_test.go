package imgw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestParseDirectory(t *testing.T) {
	html := []byte(`<a href="a.txt">a.txt</a><a href="sub/">sub/</a><a href="../">..</a>`)
	got := ParseDirectory(html)
	want := []DirectoryEntry{
		{Name: "a.txt", Href: "a.txt", IsDir: false},
		{Name: "sub", Href: "sub/", IsDir: true},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDirectory = %+v, want %+v", got, want)
	}
}

func TestParseDirectory_ApacheIndex(t *testing.T) {
	html := []byte(`<html><body><h1>Index of /dane</h1><table>
<tr><td><a href="/data/">Parent Directory</a></td></tr>
<tr><td><a href="../">../</a></td></tr>
<tr><td><a href="1951_1955/">1951_1955/</a></td><td>2023-01-01</td></tr>
<tr><td><a href="codz_1951_01.zip">codz_1951_01.zip</a></td></tr>
<tr><td><a href="codz_info.txt">codz_info.txt</a></td></tr>
</table></body></html>`)
	got := ParseDirectory(html)
	if len(got) != 4 {
		t.Fatalf("entries = %d, want 4: %+v", len(got), got)
	}
	if got[1].Name != "1951_1955" || !got[1].IsDir {
		t.Errorf("entry 1 = %+v", got[1])
	}
	if got[3].Name != "codz_info.txt" || got[3].IsDir {
		t.Errorf("entry 3 = %+v", got[3])
	}
}

func TestParseDirectory_Garbage(t *testing.T) {
	if got := ParseDirectory([]byte("not html at all <<<")); len(got) != 0 {
		t.Errorf("entries = %+v, want none", got)
	}
}

func TestListDirectory(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="dobowe/">dobowe/</a><a href="opis.txt">opis.txt</a>`))
	}))
	defer ts.Close()

	f := NewFetcher(WithAllowedHost(hostOf(t, ts.URL)))
	entries, err := f.ListDirectory(context.Background(), ts.URL+"/")
	if err != nil {
		t.Fatalf("ListDirectory: %v", err)
	}
	if len(entries) != 2 || !entries[0].IsDir || entries[1].IsDir {
		t.Errorf("entries = %+v", entries)
	}
}

func TestFormatAndParseEntryLabel(t *testing.T) {
	entries := []DirectoryEntry{{Name: "dobowe", IsDir: true}, {Name: "k_d_2020.csv"}}
	labels := FormatEntries(entries)
	want := []string{"[DIR] dobowe", "[PLIK] k_d_2020.csv"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("FormatEntries = %v, want %v", labels, want)
	}
	for i, l := range labels {
		if got := ParseEntryLabel(l); got != entries[i].Name {
			t.Errorf("ParseEntryLabel(%q) = %q, want %q", l, got, entries[i].Name)
		}
	}
	if got := ParseEntryLabel("plain"); got != "plain" {
		t.Errorf("ParseEntryLabel(plain) = %q", got)
	}
}
