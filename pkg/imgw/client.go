// CLAUDE:SUMMARY IMGW public API client: builds /{endpoint}[/id|/station][/format] URLs and flattens JSON responses into tables.
package imgw

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hazyhaar/imgw-export/pkg/table"
)

// Public endpoints of the IMGW data host.
const (
	DefaultArchiveBaseURL = "https://danepubliczne.imgw.pl/data/dane_pomiarowo_obserwacyjne/"
	DefaultAPIBaseURL     = "https://danepubliczne.imgw.pl/api/data"
)

// API endpoints and response formats.
const (
	EndpointHydro = "hydro"
	EndpointSynop = "synop"
	EndpointMeteo = "meteo"

	FormatJSON = "json"
	FormatXML  = "xml"
	FormatCSV  = "csv"
	FormatHTML = "html"
)

// Query selects an API endpoint and optional station filter.
// StationID 0 means no id; it takes priority over StationName.
type Query struct {
	Endpoint    string
	Format      string
	StationID   int
	StationName string
}

// Client talks to the IMGW API through a Fetcher.
type Client struct {
	fetcher *Fetcher
	baseURL string
}

// NewClient creates a Client rooted at baseURL (DefaultAPIBaseURL when empty).
func NewClient(f *Fetcher, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	return &Client{fetcher: f, baseURL: strings.TrimRight(baseURL, "/")}
}

// CategoryURL builds {base}/{endpoint}[/id/{id}|/station/{name}][/format/{fmt}].
// The station name is normalized (lower-case, no diacritics, no spaces).
func (c *Client) CategoryURL(q Query) string {
	u := c.baseURL + "/" + q.Endpoint
	switch {
	case q.StationID > 0:
		u += fmt.Sprintf("/id/%d", q.StationID)
	case q.StationName != "":
		if name := table.Normalize(q.StationName); name != "" {
			u += "/station/" + url.PathEscape(name)
		}
	}
	if q.Format != "" && q.Format != FormatJSON {
		u += "/format/" + q.Format
	}
	return u
}

// FetchCategory returns the raw response body for q.
func (c *Client) FetchCategory(ctx context.Context, q Query) ([]byte, error) {
	if q.Endpoint == "" {
		return nil, fmt.Errorf("api query: endpoint is required")
	}
	return c.fetcher.Fetch(ctx, c.CategoryURL(q))
}

// FetchTable fetches q as JSON and flattens it into a table.
func (c *Client) FetchTable(ctx context.Context, q Query) (*table.Table, error) {
	q.Format = FormatJSON
	data, err := c.FetchCategory(ctx, q)
	if err != nil {
		return nil, err
	}
	return table.FromJSON(data), nil
}
