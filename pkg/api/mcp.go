package api

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"

	"github.com/hazyhaar/imgw-export/pkg/export"
	"github.com/hazyhaar/imgw-export/pkg/kit"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

// MCPOptions configures the MCP tool set.
type MCPOptions struct {
	Checker   *source.Checker // nil disables live checks
	Fs        afero.Fs        // where export tools write workbooks
	OutputDir string
	Logger    *slog.Logger
}

type savedWorkbook struct {
	Path   string   `json:"path"`
	Sheets []string `json:"sheets"`
	Bytes  int      `json:"bytes"`
}

// RegisterMCPTools registers the export pipeline as MCP tools. All calls
// share the default session.
func RegisterMCPTools(srv *server.MCPServer, svc *pipeline.Service, opts MCPOptions) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	ep := newEndpoints(svc, opts.Checker, opts.Logger)
	saveTo := saveEndpoint(ep.export, opts.Fs, opts.OutputDir)

	kit.RegisterMCPTool(srv, mcp.NewTool("list_sources",
		mcp.WithDescription("List IMGW data sources, archival frequencies, aggregation intervals and rows-per-sheet bounds."),
	), ep.sources, noArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("check_sources",
		mcp.WithDescription("HEAD every source base URL and report its HTTP status."),
	), ep.status, noArgs)

	kit.RegisterMCPTool(srv, mcp.NewTool("fetch_legend",
		mcp.WithDescription("Download an IMGW info/legend file and remember its column names for the next archival fetch."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Legend file URL on danepubliczne.imgw.pl")),
	), ep.legend, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return withSession(&legendReq{URL: strArg(req.GetArguments(), "url")}), nil
	})

	kit.RegisterMCPTool(srv, mcp.NewTool("list_directory",
		mcp.WithDescription("List the files and sub-directories of an IMGW archive directory page."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Directory URL on danepubliczne.imgw.pl")),
	), ep.directory, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return withSession(&directoryReq{URL: strArg(req.GetArguments(), "url")}), nil
	})

	kit.RegisterMCPTool(srv, archivalTool("fetch_archival",
		"Fetch an archival IMGW file, filter it by station and date range and return a preview."),
		ep.archival, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			preq, err := decodeArchivalArgs(args)
			if err != nil {
				return nil, err
			}
			rows, err := intArg(args, "preview_rows")
			if err != nil {
				return nil, err
			}
			return withSession(&archivalReq{Request: preq, PreviewRows: rows}), nil
		})

	kit.RegisterMCPTool(srv, apiTool("fetch_api",
		"Fetch the current snapshot of an IMGW API source and return a preview; hydro data is split into categories."),
		ep.api, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			preq, err := decodeAPIArgs(args)
			if err != nil {
				return nil, err
			}
			rows, err := intArg(args, "preview_rows")
			if err != nil {
				return nil, err
			}
			return withSession(&apiReq{Request: preq, PreviewRows: rows}), nil
		})

	kit.RegisterMCPTool(srv, archivalTool("export_archival",
		"Fetch an archival IMGW file and write it as an .xlsx workbook into the output directory.",
		mcp.WithNumber("max_rows", mcp.Description("Rows per sheet, 50000 to 500000"))),
		saveTo, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			preq, err := decodeArchivalArgs(args)
			if err != nil {
				return nil, err
			}
			maxRows, err := intArg(args, "max_rows")
			if err != nil {
				return nil, err
			}
			return withSession(&exportReq{Archival: &preq, MaxRows: maxRows}), nil
		})

	kit.RegisterMCPTool(srv, apiTool("export_api",
		"Fetch an IMGW API source and write it as an .xlsx workbook into the output directory.",
		mcp.WithNumber("max_rows", mcp.Description("Rows per sheet, 50000 to 500000"))),
		saveTo, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
			args := req.GetArguments()
			preq, err := decodeAPIArgs(args)
			if err != nil {
				return nil, err
			}
			maxRows, err := intArg(args, "max_rows")
			if err != nil {
				return nil, err
			}
			return withSession(&exportReq{API: &preq, MaxRows: maxRows}), nil
		})
}

func archivalTool(name, desc string, extra ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithString("source", mcp.Required(), mcp.Description("Archival source key (hydro_archival, climate)")),
		mcp.WithString("frequency", mcp.Description("dobowe, miesięczne or surowe 10-min")),
		mcp.WithString("url", mcp.Description("File URL; defaults to the source base URL")),
		mcp.WithString("station", mcp.Description("Case-insensitive station name fragment")),
		mcp.WithString("entry", mcp.Description("File inside a zip archive; defaults to the first by name")),
		mcp.WithString("from", mcp.Description("Start date YYYY-MM-DD")),
		mcp.WithString("to", mcp.Description("End date YYYY-MM-DD")),
		mcp.WithNumber("preview_rows", mcp.Description("Rows to include in the preview")),
	}
	return mcp.NewTool(name, append(opts, extra...)...)
}

func apiTool(name, desc string, extra ...mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(desc),
		mcp.WithString("source", mcp.Required(), mcp.Description("API source key (hydro_api, synop_api, meteo_api)")),
		mcp.WithNumber("station_id", mcp.Description("Station id; 0 for all stations")),
		mcp.WithString("station_name", mcp.Description("Station name; diacritics and spaces are removed")),
		mcp.WithString("interval", mcp.Description("Hydro aggregation: none, hourly, daily, weekly, monthly")),
		mcp.WithNumber("preview_rows", mcp.Description("Rows to include in the preview")),
	}
	return mcp.NewTool(name, append(opts, extra...)...)
}

// saveEndpoint runs the export endpoint and writes the workbook to dir on fs.
func saveEndpoint(exp kit.Endpoint, fs afero.Fs, dir string) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		resp, err := exp(ctx, request)
		if err != nil {
			return nil, err
		}
		wb := resp.(*pipeline.Workbook)
		path := filepath.Join(dir, wb.Filename)
		if err := export.Save(fs, path, wb.Data); err != nil {
			return nil, err
		}
		return savedWorkbook{Path: path, Sheets: wb.Sheets, Bytes: len(wb.Data)}, nil
	}
}

func decodeArchivalArgs(args map[string]any) (pipeline.ArchivalRequest, error) {
	from, to, err := parseDateRange(strArg(args, "from"), strArg(args, "to"))
	if err != nil {
		return pipeline.ArchivalRequest{}, err
	}
	return pipeline.ArchivalRequest{
		SourceKey: strArg(args, "source"),
		Frequency: strArg(args, "frequency"),
		URL:       strArg(args, "url"),
		Station:   strArg(args, "station"),
		Entry:     strArg(args, "entry"),
		From:      from,
		To:        to,
	}, nil
}

func decodeAPIArgs(args map[string]any) (pipeline.APIRequest, error) {
	id, err := intArg(args, "station_id")
	if err != nil {
		return pipeline.APIRequest{}, err
	}
	interval, err := parseInterval(strArg(args, "interval"))
	if err != nil {
		return pipeline.APIRequest{}, err
	}
	return pipeline.APIRequest{
		SourceKey:   strArg(args, "source"),
		StationID:   id,
		StationName: strArg(args, "station_name"),
		Interval:    interval,
	}, nil
}

func noArgs(_ mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	return withSession(nil), nil
}

func withSession(req any) *kit.MCPDecodeResult {
	return &kit.MCPDecodeResult{
		Request: req,
		EnrichCtx: func(ctx context.Context) context.Context {
			return kit.WithSessionID(ctx, pipeline.DefaultSession)
		},
	}
}

func strArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// intArg reads a whole number sent as a JSON number or a numeric string.
// A missing argument is 0.
func intArg(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		return int(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number, got %q", key, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}
