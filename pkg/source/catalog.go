// CLAUDE:SUMMARY Immutable catalog of IMGW data sources (archival and API) keyed by source key.
package source

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/hazyhaar/imgw-export/pkg/imgw"
)

// Source describes one selectable dataset.
type Source struct {
	Key               string   `json:"key"`
	Label             string   `json:"label"`
	BaseURL           string   `json:"base_url"`
	StationCandidates []string `json:"station_candidates"`
	IsAPI             bool     `json:"is_api"`
	Endpoint          string   `json:"endpoint,omitempty"`
}

// Source keys.
const (
	HydroArchival = "hydro_archival"
	Climate       = "climate"
	HydroAPI      = "hydro_api"
	SynopAPI      = "synop_api"
	MeteoAPI      = "meteo_api"
)

// Frequencies are the archival sampling frequencies offered for export naming.
var Frequencies = []string{"dobowe", "miesięczne", "surowe 10-min"}

// ValidFrequency reports whether f is one of Frequencies.
func ValidFrequency(f string) bool {
	return slices.Contains(Frequencies, f)
}

// Catalog is a read-only lookup of sources by key.
type Catalog struct {
	sources map[string]Source
}

// NewCatalog builds the catalog for the given archive and API roots. Empty
// roots fall back to the public IMGW endpoints.
func NewCatalog(archiveBaseURL, apiBaseURL string) *Catalog {
	if archiveBaseURL == "" {
		archiveBaseURL = imgw.DefaultArchiveBaseURL
	}
	if !strings.HasSuffix(archiveBaseURL, "/") {
		archiveBaseURL += "/"
	}
	if apiBaseURL == "" {
		apiBaseURL = imgw.DefaultAPIBaseURL
	}
	apiBaseURL = strings.TrimRight(apiBaseURL, "/")

	list := []Source{
		{
			Key:               HydroArchival,
			Label:             "Dane hydrologiczne archiwalne",
			BaseURL:           archiveBaseURL,
			StationCandidates: []string{"Nazwa stacji", "Nazwa wodowskazu", "Wodowskaz"},
		},
		{
			Key:               Climate,
			Label:             "Dane klimatyczne archiwalne",
			BaseURL:           archiveBaseURL + "dane_meteorologiczne/",
			StationCandidates: []string{"Nazwa stacji", "Stacja", "Stacja synoptyczna"},
		},
		{
			Key:               HydroAPI,
			Label:             "Dane hydrologiczne operacyjne (API)",
			BaseURL:           apiBaseURL + "/" + imgw.EndpointHydro,
			StationCandidates: []string{"stacja", "nazwa_stacji", "rzeka"},
			IsAPI:             true,
			Endpoint:          imgw.EndpointHydro,
		},
		{
			Key:               SynopAPI,
			Label:             "Dane synoptyczne (API)",
			BaseURL:           apiBaseURL + "/" + imgw.EndpointSynop,
			StationCandidates: []string{"stacja", "nazwa_stacji"},
			IsAPI:             true,
			Endpoint:          imgw.EndpointSynop,
		},
		{
			Key:               MeteoAPI,
			Label:             "Dane meteorologiczne (API)",
			BaseURL:           apiBaseURL + "/" + imgw.EndpointMeteo,
			StationCandidates: []string{"stacja", "nazwa_stacji"},
			IsAPI:             true,
			Endpoint:          imgw.EndpointMeteo,
		},
	}

	c := &Catalog{sources: make(map[string]Source, len(list))}
	for _, s := range list {
		c.sources[s.Key] = s
	}
	return c
}

// Default returns the catalog for the public IMGW endpoints.
func Default() *Catalog {
	return NewCatalog("", "")
}

// Get returns the source with key, or an error if there is none.
func (c *Catalog) Get(key string) (Source, error) {
	s, ok := c.sources[key]
	if !ok {
		return Source{}, fmt.Errorf("unknown source: %q", key)
	}
	s.StationCandidates = slices.Clone(s.StationCandidates)
	return s, nil
}

// All returns every source sorted by key.
func (c *Catalog) All() []Source {
	out := make([]Source, 0, len(c.sources))
	for _, s := range c.sources {
		s.StationCandidates = slices.Clone(s.StationCandidates)
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Archival returns the file-based sources sorted by key.
func (c *Catalog) Archival() []Source {
	return c.filter(false)
}

// API returns the API sources sorted by key.
func (c *Catalog) API() []Source {
	return c.filter(true)
}

func (c *Catalog) filter(api bool) []Source {
	var out []Source
	for _, s := range c.All() {
		if s.IsAPI == api {
			out = append(out, s)
		}
	}
	return out
}
