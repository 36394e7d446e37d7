package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/imgw-export/pkg/api"
	"github.com/hazyhaar/imgw-export/pkg/observability"
	"github.com/hazyhaar/imgw-export/pkg/source"
)

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg, logger := setup(fs, args)

	metrics := observability.NewMetrics()
	svc := newService(cfg, logger, metrics)
	checker := source.NewChecker(svc.Catalog(), logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.CheckSchedule != "" {
		if err := checker.Schedule(ctx, cfg.CheckSchedule); err != nil {
			logger.Error("schedule source check", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(svc, checker, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("imgw-export listening", "addr", cfg.Addr, "allowed_host", cfg.AllowedHost)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
