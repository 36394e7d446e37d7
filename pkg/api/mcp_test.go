package api

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/hazyhaar/imgw-export/pkg/hydro"
	"github.com/hazyhaar/imgw-export/pkg/kit"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
)

func TestDecodeArchivalArgs(t *testing.T) {
	req, err := decodeArchivalArgs(map[string]any{
		"source":  "climate",
		"station": " Kraków ",
		"from":    "2020-01-01",
		"to":      "2020-12-31",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.SourceKey != "climate" || req.Station != "Kraków" {
		t.Errorf("req = %+v", req)
	}
	if req.From == nil || req.To == nil || req.To.Year() != 2020 {
		t.Errorf("range = %v..%v", req.From, req.To)
	}

	if _, err := decodeArchivalArgs(map[string]any{"from": "yesterday"}); err == nil {
		t.Error("expected error for bad date")
	}
}

func TestDecodeAPIArgs(t *testing.T) {
	req, err := decodeAPIArgs(map[string]any{
		"source":     "hydro_api",
		"station_id": float64(150190340),
		"interval":   "Dzienny",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.StationID != 150190340 || req.Interval != hydro.IntervalDaily {
		t.Errorf("req = %+v", req)
	}

	if _, err := decodeAPIArgs(map[string]any{"station_id": 1.5}); err == nil {
		t.Error("expected error for fractional id")
	}
	if _, err := decodeAPIArgs(map[string]any{"station_id": "abc"}); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		v    any
		want int
		ok   bool
	}{
		{nil, 0, true},
		{float64(200000), 200000, true},
		{"50000", 50000, true},
		{"", 0, true},
		{true, 0, false},
	}
	for _, tt := range tests {
		got, err := intArg(map[string]any{"n": tt.v}, "n")
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("intArg(%v) = %d, %v", tt.v, got, err)
		}
	}
}

func TestSaveEndpoint(t *testing.T) {
	fs := afero.NewMemMapFs()
	wb := &pipeline.Workbook{Filename: "imgw_climate_dobowe.xlsx", Sheets: []string{"Dane"}, Data: []byte("PK")}
	var fake kit.Endpoint = func(context.Context, any) (any, error) { return wb, nil }

	resp, err := saveEndpoint(fake, fs, "out")(context.Background(), &exportReq{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	saved := resp.(savedWorkbook)
	if saved.Path != "out/imgw_climate_dobowe.xlsx" || saved.Bytes != 2 {
		t.Errorf("saved = %+v", saved)
	}
	if ok, _ := afero.Exists(fs, saved.Path); !ok {
		t.Error("workbook not written")
	}
}
