package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/imgw-export/pkg/imgw"
	"github.com/hazyhaar/imgw-export/pkg/observability"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "mcp":
		cmdMCP(os.Args[2:])
	case "fetch":
		cmdFetch(os.Args[2:])
	case "sources":
		cmdSources(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: imgw <command> [flags]

Commands:
  serve     Start the HTTP server
  mcp       Serve the export tools over MCP stdio
  fetch     Fetch one dataset and write it as an .xlsx workbook
  sources   List data sources (-check to test their availability)
`)
}

// setup parses the shared -config flag, loads the config and builds the
// logger. Config errors are fatal.
func setup(fs *flag.FlagSet, args []string) (config, *slog.Logger) {
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	boot := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	cfg, err := loadConfig(*cfgPath, boot)
	if err != nil {
		boot.Error("load config", "error", err)
		os.Exit(1)
	}
	level, _ := parseLevel(cfg.LogLevel) // validated by loadConfig
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return cfg, logger
}

// newService wires the fetcher, API client, catalog and pipeline from cfg.
// metrics may be nil.
func newService(cfg config, logger *slog.Logger, metrics *observability.Metrics) *pipeline.Service {
	opts := []imgw.FetcherOption{
		imgw.WithTimeout(cfg.RequestTimeout),
		imgw.WithAllowedHost(cfg.AllowedHost),
		imgw.WithMaxAttempts(cfg.MaxRetries),
		imgw.WithBackoffMultiplier(cfg.BackoffMultiplier),
		imgw.WithLogger(logger),
	}
	if metrics != nil {
		opts = append(opts, imgw.WithMetrics(metrics))
	}
	fetcher := imgw.NewFetcher(opts...)
	client := imgw.NewClient(fetcher, cfg.APIBaseURL)
	catalog := source.NewCatalog(cfg.BaseURL, cfg.APIBaseURL)

	svcOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithMaxRows(cfg.MaxRowsPerSheet),
	}
	if metrics != nil {
		svcOpts = append(svcOpts, pipeline.WithMetrics(metrics))
	}
	return pipeline.NewService(fetcher, client, catalog, svcOpts...)
}
