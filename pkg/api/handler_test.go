package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/hazyhaar/imgw-export/pkg/export"
	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

const upstreamCSV = "k1;k2;k3;k4\n150180010;KRAKÓW;2020;1\n150190020;TYNIEC;2020;2\n"

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="dobowe/">dobowe/</a><a href="plik.csv">plik.csv</a>`))
	})
	mux.HandleFunc("/data/plik.csv", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(upstreamCSV)) })
	mux.HandleFunc("/data/info.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Kod stacji 9\nNazwa stacji 30\nRok 4\nMiesiąc 2\n"))
	})
	mux.HandleFunc("/data/broken.zip", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("PK\x03\x04broken")) })
	mux.HandleFunc("/data/down.csv", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/api/data/hydro", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id_stacji":"1","stacja":"Kraków","stan_wody":"230","stan_wody_data_pomiaru":"2024-03-01 10:00:00"}]`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T, upstream *httptest.Server) http.Handler {
	t.Helper()
	u, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	fetcher := imgw.NewFetcher(imgw.WithAllowedHost(u.Host), imgw.WithMaxAttempts(1), imgw.WithLogger(logger))
	client := imgw.NewClient(fetcher, upstream.URL+"/api/data")
	catalog := source.NewCatalog(upstream.URL+"/data/", upstream.URL+"/api/data")
	svc := pipeline.NewService(fetcher, client, catalog, pipeline.WithLogger(logger))
	return NewRouter(svc, source.NewChecker(catalog, logger, nil), logger)
}

func do(t *testing.T, h http.Handler, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSources(t *testing.T) {
	h := newTestRouter(t, newUpstream(t))

	rec := do(t, h, http.MethodGet, "/v1/sources", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp sourcesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Sources) != 5 || len(resp.Intervals) != 5 || resp.MaxRows.Min != 50000 {
		t.Errorf("resp = %+v", resp)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestErrorStatuses(t *testing.T) {
	up := newUpstream(t)
	h := newTestRouter(t, up)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"foreign host", httpArchivalRequest{Source: "climate", URL: "https://example.com/a.csv"}, http.StatusBadRequest},
		{"unknown source", httpArchivalRequest{Source: "radar"}, http.StatusNotFound},
		{"upstream down", httpArchivalRequest{Source: "climate", URL: up.URL + "/data/down.csv"}, http.StatusBadGateway},
		{"corrupt zip", httpArchivalRequest{Source: "climate", URL: up.URL + "/data/broken.zip"}, http.StatusUnprocessableEntity},
		{"bad date", httpArchivalRequest{Source: "climate", From: "01.01.2020", To: "2020-02-01"}, http.StatusBadRequest},
		{"bad frequency", httpArchivalRequest{Source: "climate", Frequency: "roczne"}, http.StatusBadRequest},
		{"invalid json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/archival", "", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
			if !strings.Contains(rec.Body.String(), `"error"`) {
				t.Errorf("body = %s, want error field", rec.Body)
			}
		})
	}
}

func TestArchival_SessionLegend(t *testing.T) {
	up := newUpstream(t)
	h := newTestRouter(t, up)

	rec := do(t, h, http.MethodPost, "/v1/legend", "alice", httpURLRequest{URL: up.URL + "/data/info.txt"})
	if rec.Code != http.StatusOK {
		t.Fatalf("legend status = %d: %s", rec.Code, rec.Body)
	}

	req := httpArchivalRequest{Source: "climate", URL: up.URL + "/data/plik.csv", Station: "krak"}

	var alice pipeline.Preview
	rec = do(t, h, http.MethodPost, "/v1/archival", "alice", req)
	if rec.Code != http.StatusOK {
		t.Fatalf("archival status = %d: %s", rec.Code, rec.Body)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &alice); err != nil {
		t.Fatal(err)
	}
	if alice.Table.TotalRows != 1 {
		t.Errorf("alice rows = %d, want 1", alice.Table.TotalRows)
	}
	last := alice.Table.Columns[len(alice.Table.Columns)-1]
	if last.Name != "Data" {
		t.Errorf("alice last column = %q, want Data", last.Name)
	}
	if got := alice.Table.Rows[0][len(alice.Table.Rows[0])-1]; got != "2020-01-01" {
		t.Errorf("alice date = %q", got)
	}

	// bob has no legend: no station column resolves, nothing is filtered.
	var bob pipeline.Preview
	rec = do(t, h, http.MethodPost, "/v1/archival", "bob", req)
	if err := json.Unmarshal(rec.Body.Bytes(), &bob); err != nil {
		t.Fatal(err)
	}
	if bob.Table.TotalRows != 2 || bob.Table.Columns[0].Name != "k1" {
		t.Errorf("bob = %+v", bob.Table)
	}

	rec = do(t, h, http.MethodGet, "/v1/session", "alice", nil)
	var sess pipeline.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatal(err)
	}
	if sess.ID != "alice" || len(sess.Legend) != 4 || len(sess.Entries) != 1 {
		t.Errorf("session = %+v", sess)
	}
}

func TestDirectory(t *testing.T) {
	up := newUpstream(t)
	h := newTestRouter(t, up)

	rec := do(t, h, http.MethodPost, "/v1/directory", "", httpURLRequest{URL: up.URL + "/data/"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp directoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Labels) != 2 || resp.Labels[0] != "[DIR] dobowe" || resp.Labels[1] != "[PLIK] plik.csv" {
		t.Errorf("labels = %v", resp.Labels)
	}
}

func TestAPIExport(t *testing.T) {
	h := newTestRouter(t, newUpstream(t))

	rec := do(t, h, http.MethodPost, "/v1/api/export", "", httpAPIRequest{Source: "hydro_api", Interval: "daily"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != export.MimeType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "imgw_hydro_api_api.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("body is not an xlsx container")
	}
}

func TestExport_MaxRowsBounds(t *testing.T) {
	up := newUpstream(t)
	h := newTestRouter(t, up)

	for _, n := range []int{10, 600000} {
		rec := do(t, h, http.MethodPost, "/v1/archival/export", "",
			httpArchivalRequest{Source: "climate", URL: up.URL + "/data/plik.csv", MaxRows: n})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("max_rows %d: status = %d, want 400", n, rec.Code)
		}
	}

	rec := do(t, h, http.MethodPost, "/v1/api", "", httpAPIRequest{Source: "hydro_api", Interval: "fortnightly"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad interval: status = %d, want 400", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, newUpstream(t))
	rec := do(t, h, http.MethodOptions, "/v1/archival", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
