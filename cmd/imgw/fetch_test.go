package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

func newFetchFixture(t *testing.T) (*pipeline.Service, string) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/file.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Nazwa stacji;Rok;Miesiąc;Stan\nKRAKÓW;2020;1;231\nKRAKÓW;2020;2;198\nTYNIEC;2020;1;87\n"))
	})
	mux.HandleFunc("/api/data/synop", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id_stacji":"12295","stacja":"Białystok","temperatura":"4.1"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, _ := url.Parse(srv.URL)
	cfg := defaultConfig()
	cfg.AllowedHost = u.Host
	cfg.BaseURL = srv.URL + "/data/"
	cfg.APIBaseURL = srv.URL + "/api/data"
	cfg.MaxRetries = 1
	return newService(cfg, discardLogger(), nil), srv.URL
}

func TestRunFetch_Archival(t *testing.T) {
	svc, base := newFetchFixture(t)
	fs := afero.NewMemMapFs()

	path, err := runFetch(context.Background(), svc, fs, fetchFlags{
		source:    source.Climate,
		frequency: "miesięczne",
		url:       base + "/data/file.csv",
		station:   "krak",
		from:      "2020-02-01",
		to:        "2020-12-31",
		outputDir: "out",
	})
	if err != nil {
		t.Fatalf("runFetch: %v", err)
	}
	if path != "out/imgw_climate_miesięczne.xlsx" {
		t.Errorf("path = %q", path)
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Dane")
	if err != nil {
		t.Fatal(err)
	}
	// header + one February row for Kraków
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][0] != "KRAKÓW" || rows[1][4] != "2020-02-01" {
		t.Errorf("row = %v", rows[1])
	}
}

func TestRunFetch_API(t *testing.T) {
	svc, _ := newFetchFixture(t)
	fs := afero.NewMemMapFs()

	path, err := runFetch(context.Background(), svc, fs, fetchFlags{source: source.SynopAPI, outputDir: "."})
	if err != nil {
		t.Fatalf("runFetch: %v", err)
	}
	if path != "imgw_synop_api_api.xlsx" {
		t.Errorf("path = %q", path)
	}
	if ok, _ := afero.Exists(fs, path); !ok {
		t.Error("workbook not written")
	}
}

func TestRunFetch_Rejects(t *testing.T) {
	svc, base := newFetchFixture(t)
	fs := afero.NewMemMapFs()

	tests := []struct {
		name string
		f    fetchFlags
	}{
		{"unknown source", fetchFlags{source: "radar"}},
		{"max rows", fetchFlags{source: source.Climate, maxRows: 1000}},
		{"bad date", fetchFlags{source: source.Climate, url: base + "/data/file.csv", from: "2020/01/01", to: "2020-02-01"}},
		{"bad interval", fetchFlags{source: source.HydroAPI, interval: "yearly"}},
		{"foreign host", fetchFlags{source: source.Climate, url: "https://example.com/file.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runFetch(context.Background(), svc, fs, tt.f); err == nil {
				t.Error("expected error")
			}
		})
	}

	_, err := runFetch(context.Background(), svc, fs, fetchFlags{source: source.Climate, url: "https://example.com/x.csv"})
	var ve *imgw.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("err = %v, want ValidationError", err)
	}
}
