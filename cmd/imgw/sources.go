package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hazyhaar/imgw-export/pkg/source"
)

func cmdSources(args []string) {
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	check := fs.Bool("check", false, "HEAD every source base URL and print its status")
	cfg, logger := setup(fs, args)

	catalog := source.NewCatalog(cfg.BaseURL, cfg.APIBaseURL)
	if !*check {
		printSources(os.Stdout, catalog.All())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	statuses := source.NewChecker(catalog, logger, nil).CheckAll(ctx)
	printStatuses(os.Stdout, statuses)
	for _, st := range statuses {
		if !st.OK() {
			os.Exit(1)
		}
	}
}

func printSources(w io.Writer, sources []source.Source) {
	for _, s := range sources {
		kind := "archive"
		if s.IsAPI {
			kind = "API"
		}
		fmt.Fprintf(w, "  %-16s  %-8s  %s\n", s.Key, kind, s.Label)
		fmt.Fprintf(w, "  %-16s  %-8s  %s\n", "", "", s.BaseURL)
	}
}

func printStatuses(w io.Writer, statuses []source.Status) {
	for _, st := range statuses {
		switch {
		case st.Error != "":
			fmt.Fprintf(w, "  %-16s  ERROR   %s\n", st.Key, st.Error)
		case st.OK():
			fmt.Fprintf(w, "  %-16s  OK      [%d]\n", st.Key, st.StatusCode)
		default:
			fmt.Fprintf(w, "  %-16s  FAIL    [%d]\n", st.Key, st.StatusCode)
		}
	}
}
