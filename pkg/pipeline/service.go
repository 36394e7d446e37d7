// CLAUDE:SUMMARY Composes acquisition, normalization and export into the archival and API flows, with per-session legend and listing state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/imgw-export/pkg/hydro"
	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/observability"
	"github.com/hazyhaar/imgw-export/pkg/source"
	"github.com/hazyhaar/imgw-export/pkg/table"
)

// Bounds and default of the rows-per-sheet setting.
const (
	MinRowsPerSheet     = 50000
	MaxRowsPerSheet     = 500000
	DefaultRowsPerSheet = 200000
)

// ValidateMaxRows checks n against [MinRowsPerSheet, MaxRowsPerSheet].
func ValidateMaxRows(n int) error {
	if n < MinRowsPerSheet || n > MaxRowsPerSheet {
		return &InputError{Field: "max_rows", Reason: fmt.Sprintf("must be between %d and %d, got %d", MinRowsPerSheet, MaxRowsPerSheet, n)}
	}
	return nil
}

// Service runs the pipeline.
type Service struct {
	fetcher  *imgw.Fetcher
	client   *imgw.Client
	catalog  *source.Catalog
	sessions *Sessions
	logger   *slog.Logger
	metrics  *observability.Metrics
	maxRows  int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records parsed tables and exports.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSessions replaces the session store.
func WithSessions(ss *Sessions) Option {
	return func(s *Service) { s.sessions = ss }
}

// WithMaxRows sets the default rows per sheet used when an export names none.
func WithMaxRows(n int) Option {
	return func(s *Service) { s.maxRows = n }
}

// NewService wires a Service over a fetcher, an API client and a catalog.
func NewService(f *imgw.Fetcher, c *imgw.Client, catalog *source.Catalog, opts ...Option) *Service {
	s := &Service{
		fetcher: f,
		client:  c,
		catalog: catalog,
		logger:  slog.Default(),
		maxRows: DefaultRowsPerSheet,
	}
	for _, o := range opts {
		o(s)
	}
	if s.sessions == nil {
		s.sessions = NewSessions(nil)
	}
	return s
}

// Catalog returns the source catalog.
func (s *Service) Catalog() *source.Catalog { return s.catalog }

// Session returns a snapshot of a session.
func (s *Service) Session(id string) Session { return s.sessions.Get(id) }

// Legend fetches a legend file, parses its column names and stores them in
// the session, replacing any previous legend. An empty result is not an error.
func (s *Service) Legend(ctx context.Context, sessionID, url string) ([]string, error) {
	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	legend := table.ParseLegend(table.Decode(data))
	s.sessions.SetLegend(sessionID, legend)
	if len(legend) == 0 {
		s.logger.Warn("legend yielded no columns", "url", url)
	}
	return legend, nil
}

// ListDirectory lists an archive directory page.
func (s *Service) ListDirectory(ctx context.Context, url string) ([]imgw.DirectoryEntry, error) {
	return s.fetcher.ListDirectory(ctx, url)
}

// ArchivalRequest selects an archival file and the filters applied to it.
type ArchivalRequest struct {
	SourceKey string
	Frequency string
	URL       string // defaults to the source base URL
	Station   string
	Entry     string // archive entry; defaults to the first by name
	From, To  *time.Time
}

// FetchArchival downloads a file, expands it, parses the selected entry and
// applies the session legend, the station filter, date synthesis and the
// optional date range. Only acquisition and input errors are returned.
func (s *Service) FetchArchival(ctx context.Context, sessionID string, req ArchivalRequest) (*Dataset, error) {
	src, err := s.source(req.SourceKey)
	if err != nil {
		return nil, err
	}
	if src.IsAPI {
		return nil, &InputError{Field: "source", Reason: fmt.Sprintf("%s is an API source", src.Key)}
	}
	freq := req.Frequency
	if freq == "" {
		freq = source.Frequencies[0]
	}
	if !source.ValidFrequency(freq) {
		return nil, &InputError{Field: "frequency", Reason: fmt.Sprintf("%q is not one of %v", freq, source.Frequencies)}
	}
	if (req.From == nil) != (req.To == nil) {
		return nil, &InputError{Field: "date range", Reason: "both from and to are required"}
	}
	if req.From != nil && req.To.Before(*req.From) {
		return nil, &InputError{Field: "date range", Reason: "to is before from"}
	}
	url := req.URL
	if url == "" {
		url = src.BaseURL
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	entries, err := imgw.Expand(data)
	if err != nil {
		return nil, err
	}
	names := imgw.EntryNames(entries)
	s.sessions.SetEntries(sessionID, names)
	if len(names) == 0 {
		return nil, &InputError{Field: "url", Reason: "archive holds no files"}
	}

	entry := req.Entry
	if entry == "" {
		entry = names[0]
	}
	payload, ok := entries[entry]
	if !ok {
		return nil, &InputError{Field: "entry", Reason: fmt.Sprintf("%q not in archive (have %v)", entry, names)}
	}

	t := table.Parse(payload)
	s.observeParsed(t)
	if legend := s.sessions.Get(sessionID).Legend; len(legend) > 0 {
		if len(legend) != len(t.Columns) {
			s.logger.Debug("legend not applied", "legend", len(legend), "columns", len(t.Columns))
		}
		t = table.ApplyLegend(t, legend)
	}
	t = table.FilterByStation(t, req.Station, src.StationCandidates)
	t = table.AddDateColumn(t)
	if req.From != nil {
		t = table.FilterDateRange(t, *req.From, *req.To)
	}

	s.logger.Info("archival data ready",
		"source", src.Key, "url", url, "entry", entry, "rows", t.Len(), "columns", len(t.Columns))
	return &Dataset{
		SourceKey: src.Key,
		Frequency: freq,
		Entries:   names,
		Entry:     entry,
		Table:     t,
	}, nil
}

// APIRequest selects an API source, an optional station and, for the hydro
// endpoint, an aggregation interval.
type APIRequest struct {
	SourceKey   string
	StationID   int
	StationName string
	Interval    hydro.Interval
}

// FetchAPI fetches the current snapshot of an API source. Hydro snapshots
// are also split into categories, each aggregated over req.Interval.
func (s *Service) FetchAPI(ctx context.Context, req APIRequest) (*Dataset, error) {
	src, err := s.source(req.SourceKey)
	if err != nil {
		return nil, err
	}
	if !src.IsAPI {
		return nil, &InputError{Field: "source", Reason: fmt.Sprintf("%s is not an API source", src.Key)}
	}
	if req.StationID < 0 {
		return nil, &InputError{Field: "station_id", Reason: "must not be negative"}
	}

	t, err := s.client.FetchTable(ctx, imgw.Query{
		Endpoint:    src.Endpoint,
		StationID:   req.StationID,
		StationName: req.StationName,
	})
	if err != nil {
		return nil, err
	}
	s.observeParsed(t)

	ds := &Dataset{SourceKey: src.Key, IsAPI: true, Table: t}
	if src.Endpoint == imgw.EndpointHydro {
		for _, c := range hydro.Split(t) {
			c.Table = hydro.Aggregate(c.Table, c.DateColumn, c.ValueColumn, req.Interval)
			ds.Categories = append(ds.Categories, c)
		}
	}
	if t.Len() == 0 {
		s.logger.Warn("api returned no data", "source", src.Key, "station_id", req.StationID, "station", req.StationName)
	}
	s.logger.Info("api data ready",
		"source", src.Key, "rows", t.Len(), "columns", len(t.Columns), "categories", len(ds.Categories))
	return ds, nil
}

func (s *Service) source(key string) (source.Source, error) {
	src, err := s.catalog.Get(key)
	if err != nil {
		return source.Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	return src, nil
}

func (s *Service) observeParsed(t *table.Table) {
	if s.metrics == nil {
		return
	}
	s.metrics.TablesParsed.Inc()
	s.metrics.RowsParsed.Add(float64(t.Len()))
}
