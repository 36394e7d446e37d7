package main

import (
	"flag"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"

	"github.com/hazyhaar/imgw-export/pkg/api"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

// cmdMCP serves the pipeline tools on stdin/stdout. Logs go to stderr.
func cmdMCP(args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	cfg, logger := setup(fs, args)

	svc := newService(cfg, logger, nil)
	srv := server.NewMCPServer("imgw-export", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, svc, api.MCPOptions{
		Checker:   source.NewChecker(svc.Catalog(), logger, nil),
		Fs:        afero.NewOsFs(),
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	})

	logger.Info("mcp server on stdio", "output_dir", cfg.OutputDir)
	if err := server.ServeStdio(srv); err != nil {
		logger.Error("mcp server", "error", err)
		os.Exit(1)
	}
}
