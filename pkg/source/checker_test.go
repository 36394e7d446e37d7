package source

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hazyhaar/imgw-export/pkg/observability"
)

func TestCheckAll_Mixed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	catalog := NewCatalog(srv.URL+"/data/", srv.URL+"/api")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	metrics := observability.NewMetricsForTesting()
	checker := NewChecker(catalog, logger, metrics)

	results := checker.CheckAll(context.Background())
	if len(results) != 5 {
		t.Fatalf("results = %d, want 5", len(results))
	}

	byKey := make(map[string]Status)
	for _, st := range checker.Statuses() {
		byKey[st.Key] = st
	}
	for _, key := range []string{HydroArchival, Climate} {
		if !byKey[key].OK() {
			t.Errorf("%s status = %+v, want ok", key, byKey[key])
		}
		if got := testutil.ToFloat64(metrics.SourceUp.WithLabelValues(key)); got != 1 {
			t.Errorf("%s up = %v, want 1", key, got)
		}
	}
	for _, key := range []string{HydroAPI, SynopAPI, MeteoAPI} {
		if byKey[key].StatusCode != http.StatusInternalServerError {
			t.Errorf("%s status = %d, want 500", key, byKey[key].StatusCode)
		}
		if got := testutil.ToFloat64(metrics.SourceUp.WithLabelValues(key)); got != 0 {
			t.Errorf("%s up = %v, want 0", key, got)
		}
	}
}

func TestCheckAll_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	checker := NewChecker(NewCatalog(base+"/", base+"/api"), logger, nil)

	for _, st := range checker.CheckAll(context.Background()) {
		if st.StatusCode != 0 || st.Error == "" {
			t.Errorf("%s = %+v, want network error", st.Key, st)
		}
	}
}

func TestSchedule_InvalidSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	checker := NewChecker(Default(), logger, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := checker.Schedule(ctx, "not a cron spec"); err == nil {
		t.Error("expected error for invalid spec")
	}
	if err := checker.Schedule(ctx, "0 */6 * * *"); err != nil {
		t.Errorf("Schedule: %v", err)
	}
}
