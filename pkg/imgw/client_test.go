package imgw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCategoryURL(t *testing.T) {
	c := NewClient(NewFetcher(), "")
	tests := []struct {
		q    Query
		want string
	}{
		{Query{Endpoint: EndpointHydro}, DefaultAPIBaseURL + "/hydro"},
		{Query{Endpoint: EndpointSynop, StationID: 12375}, DefaultAPIBaseURL + "/synop/id/12375"},
		{Query{Endpoint: EndpointSynop, StationName: "Bielsko Biała"}, DefaultAPIBaseURL + "/synop/station/bielskobiala"},
		{Query{Endpoint: EndpointSynop, StationID: 12375, StationName: "Kraków"}, DefaultAPIBaseURL + "/synop/id/12375"},
		{Query{Endpoint: EndpointMeteo, Format: FormatJSON}, DefaultAPIBaseURL + "/meteo"},
		{Query{Endpoint: EndpointMeteo, Format: FormatCSV}, DefaultAPIBaseURL + "/meteo/format/csv"},
		{Query{Endpoint: EndpointHydro, StationName: "Łódź", Format: FormatXML}, DefaultAPIBaseURL + "/hydro/station/lodz/format/xml"},
	}
	for _, tt := range tests {
		if got := c.CategoryURL(tt.q); got != tt.want {
			t.Errorf("CategoryURL(%+v) = %q, want %q", tt.q, got, tt.want)
		}
	}
}

func TestFetchTable(t *testing.T) {
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`[{"id_stacji":"150190340","stacja":"Kraków-Bielany","stan_wody":"231"},
{"id_stacji":"150190390","stacja":"Proszowice","stan_wody":null}]`))
	}))
	defer ts.Close()

	c := NewClient(NewFetcher(WithAllowedHost(hostOf(t, ts.URL))), ts.URL+"/api/data/")
	tbl, err := c.FetchTable(context.Background(), Query{Endpoint: EndpointHydro, StationName: "Kraków", Format: FormatCSV})
	if err != nil {
		t.Fatalf("FetchTable: %v", err)
	}
	if path != "/api/data/hydro/station/krakow" {
		t.Errorf("path = %q", path)
	}
	if tbl.Len() != 2 {
		t.Fatalf("rows = %d, want 2", tbl.Len())
	}
	if names := tbl.Names(); len(names) != 3 || names[0] != "id_stacji" || names[2] != "stan_wody" {
		t.Errorf("columns = %v", names)
	}
}

func TestFetchCategory_RequiresEndpoint(t *testing.T) {
	c := NewClient(NewFetcher(), "")
	if _, err := c.FetchCategory(context.Background(), Query{}); err == nil {
		t.Error("expected error for empty endpoint")
	}
}
