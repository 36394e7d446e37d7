package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/imgw-export/pkg/hydro"
	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/kit"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/source"
	"github.com/hazyhaar/imgw-export/pkg/table"
)

// Shared request/response types used by both HTTP and MCP transports.

type sourcesResponse struct {
	Sources     []source.Source `json:"sources"`
	Frequencies []string        `json:"frequencies"`
	Intervals   []intervalInfo  `json:"intervals"`
	MaxRows     maxRowsInfo     `json:"max_rows"`
}

type intervalInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type maxRowsInfo struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Default int `json:"default"`
}

type statusResponse struct {
	Sources []source.Status `json:"sources"`
}

type legendReq struct {
	URL string
}

type legendResponse struct {
	Columns []string `json:"columns"`
}

type directoryReq struct {
	URL string
}

type directoryResponse struct {
	Entries []imgw.DirectoryEntry `json:"entries"`
	Labels  []string              `json:"labels"`
}

type archivalReq struct {
	Request     pipeline.ArchivalRequest
	PreviewRows int
}

type apiReq struct {
	Request     pipeline.APIRequest
	PreviewRows int
}

// exportReq carries exactly one of Archival or API.
type exportReq struct {
	Archival *pipeline.ArchivalRequest
	API      *pipeline.APIRequest
	MaxRows  int
}

type endpoints struct {
	sources   kit.Endpoint
	status    kit.Endpoint
	session   kit.Endpoint
	legend    kit.Endpoint
	directory kit.Endpoint
	archival  kit.Endpoint
	api       kit.Endpoint
	export    kit.Endpoint
}

func newEndpoints(svc *pipeline.Service, checker *source.Checker, logger *slog.Logger) *endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Logging(logger, name)(ep)
	}
	return &endpoints{
		sources:   wrap("list_sources", sourcesEndpoint(svc)),
		status:    wrap("check_sources", statusEndpoint(checker)),
		session:   wrap("session", sessionEndpoint(svc)),
		legend:    wrap("fetch_legend", legendEndpoint(svc)),
		directory: wrap("list_directory", directoryEndpoint(svc)),
		archival:  wrap("fetch_archival", archivalEndpoint(svc)),
		api:       wrap("fetch_api", apiEndpoint(svc)),
		export:    wrap("export", exportEndpoint(svc)),
	}
}

func sourcesEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		resp := sourcesResponse{
			Sources:     svc.Catalog().All(),
			Frequencies: source.Frequencies,
			MaxRows: maxRowsInfo{
				Min:     pipeline.MinRowsPerSheet,
				Max:     pipeline.MaxRowsPerSheet,
				Default: pipeline.DefaultRowsPerSheet,
			},
		}
		for _, i := range hydro.Intervals() {
			resp.Intervals = append(resp.Intervals, intervalInfo{Key: i.String(), Label: i.Label()})
		}
		return resp, nil
	}
}

// statusEndpoint runs a fresh check. A nil checker reports nothing.
func statusEndpoint(checker *source.Checker) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if checker == nil {
			return statusResponse{Sources: []source.Status{}}, nil
		}
		return statusResponse{Sources: checker.CheckAll(ctx)}, nil
	}
}

func sessionEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		return svc.Session(kit.GetSessionID(ctx)), nil
	}
}

func legendEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*legendReq)
		if req.URL == "" {
			return nil, &pipeline.InputError{Field: "url", Reason: "required"}
		}
		cols, err := svc.Legend(ctx, kit.GetSessionID(ctx), req.URL)
		if err != nil {
			return nil, err
		}
		if cols == nil {
			cols = []string{}
		}
		return legendResponse{Columns: cols}, nil
	}
}

func directoryEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*directoryReq)
		if req.URL == "" {
			return nil, &pipeline.InputError{Field: "url", Reason: "required"}
		}
		entries, err := svc.ListDirectory(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []imgw.DirectoryEntry{}
		}
		return directoryResponse{Entries: entries, Labels: imgw.FormatEntries(entries)}, nil
	}
}

func archivalEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*archivalReq)
		ds, err := svc.FetchArchival(ctx, kit.GetSessionID(ctx), req.Request)
		if err != nil {
			return nil, err
		}
		return ds.Preview(req.PreviewRows), nil
	}
}

func apiEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*apiReq)
		ds, err := svc.FetchAPI(ctx, req.Request)
		if err != nil {
			return nil, err
		}
		return ds.Preview(req.PreviewRows), nil
	}
}

// exportEndpoint fetches the dataset again and returns a *pipeline.Workbook.
func exportEndpoint(svc *pipeline.Service) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*exportReq)
		if req.MaxRows != 0 {
			if err := pipeline.ValidateMaxRows(req.MaxRows); err != nil {
				return nil, err
			}
		}
		var (
			ds  *pipeline.Dataset
			err error
		)
		switch {
		case req.Archival != nil:
			ds, err = svc.FetchArchival(ctx, kit.GetSessionID(ctx), *req.Archival)
		case req.API != nil:
			ds, err = svc.FetchAPI(ctx, *req.API)
		default:
			return nil, &pipeline.InputError{Field: "request", Reason: "no dataset selected"}
		}
		if err != nil {
			return nil, err
		}
		return svc.Export(ds, req.MaxRows)
	}
}

// parseDateRange parses optional YYYY-MM-DD bounds.
func parseDateRange(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseDate("from", from)
	if err != nil {
		return nil, nil, err
	}
	t, err := parseDate("to", to)
	if err != nil {
		return nil, nil, err
	}
	return f, t, nil
}

func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse(table.DateLayout, s)
	if err != nil {
		return nil, &pipeline.InputError{Field: field, Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return &ts, nil
}

func parseInterval(s string) (hydro.Interval, error) {
	i, err := hydro.ParseInterval(s)
	if err != nil {
		return 0, &pipeline.InputError{Field: "interval", Reason: err.Error()}
	}
	return i, nil
}
