// CLAUDE:SUMMARY CLI subcommand that runs one archival or API fetch and saves the workbook under output_dir.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/hazyhaar/imgw-export/pkg/export"
	"github.com/hazyhaar/imgw-export/pkg/hydro"
	"github.com/hazyhaar/imgw-export/pkg/pipeline"
	"github.com/hazyhaar/imgw-export/pkg/table"
)

type fetchFlags struct {
	source      string
	frequency   string
	url         string
	legend      string
	station     string
	entry       string
	from        string
	to          string
	stationID   int
	stationName string
	interval    string
	maxRows     int
	outputDir   string
}

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	var f fetchFlags
	fs.StringVar(&f.source, "source", "", "source key (see: imgw sources)")
	fs.StringVar(&f.frequency, "frequency", "", "archival frequency: dobowe, miesięczne, surowe 10-min")
	fs.StringVar(&f.url, "url", "", "archival file URL (defaults to the source base URL)")
	fs.StringVar(&f.legend, "legend", "", "legend/info file URL applied to the archival table")
	fs.StringVar(&f.station, "station", "", "archival station name filter (substring)")
	fs.StringVar(&f.entry, "entry", "", "file inside a ZIP archive (defaults to the first)")
	fs.StringVar(&f.from, "from", "", "first date, YYYY-MM-DD")
	fs.StringVar(&f.to, "to", "", "last date, YYYY-MM-DD")
	fs.IntVar(&f.stationID, "station-id", 0, "API station id")
	fs.StringVar(&f.stationName, "station-name", "", "API station name")
	fs.StringVar(&f.interval, "interval", "", "hydro aggregation: none, hourly, daily, weekly, monthly")
	fs.IntVar(&f.maxRows, "max-rows", 0, "rows per sheet (50000-500000, default from config)")
	fs.StringVar(&f.outputDir, "output-dir", "", "directory for the workbook (default from config)")
	cfg, logger := setup(fs, args)

	if f.source == "" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  imgw fetch -source <key> [-url <file>] [-legend <info>] [-station <name>] [-from YYYY-MM-DD -to YYYY-MM-DD]")
		fmt.Fprintln(os.Stderr, "  imgw fetch -source hydro_api [-station-id <id> | -station-name <name>] [-interval daily]")
		os.Exit(1)
	}
	if f.outputDir == "" {
		f.outputDir = cfg.OutputDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	svc := newService(cfg, logger, nil)
	path, err := runFetch(ctx, svc, afero.NewOsFs(), f)
	if err != nil {
		logger.Error("fetch failed", "source", f.source, "error", err)
		os.Exit(1)
	}
	fmt.Println(path)
}

// runFetch fetches the dataset selected by f, exports it and writes the
// workbook under f.outputDir. It returns the written path.
func runFetch(ctx context.Context, svc *pipeline.Service, fs afero.Fs, f fetchFlags) (string, error) {
	if f.maxRows != 0 {
		if err := pipeline.ValidateMaxRows(f.maxRows); err != nil {
			return "", err
		}
	}
	src, err := svc.Catalog().Get(f.source)
	if err != nil {
		return "", err
	}

	var ds *pipeline.Dataset
	if src.IsAPI {
		interval, err := hydro.ParseInterval(f.interval)
		if err != nil {
			return "", err
		}
		ds, err = svc.FetchAPI(ctx, pipeline.APIRequest{
			SourceKey:   f.source,
			StationID:   f.stationID,
			StationName: f.stationName,
			Interval:    interval,
		})
		if err != nil {
			return "", err
		}
	} else {
		if f.legend != "" {
			if _, err := svc.Legend(ctx, pipeline.DefaultSession, f.legend); err != nil {
				return "", err
			}
		}
		from, err := cliDate("from", f.from)
		if err != nil {
			return "", err
		}
		to, err := cliDate("to", f.to)
		if err != nil {
			return "", err
		}
		ds, err = svc.FetchArchival(ctx, pipeline.DefaultSession, pipeline.ArchivalRequest{
			SourceKey: f.source,
			Frequency: f.frequency,
			URL:       f.url,
			Station:   f.station,
			Entry:     f.entry,
			From:      from,
			To:        to,
		})
		if err != nil {
			return "", err
		}
	}

	wb, err := svc.Export(ds, f.maxRows)
	if err != nil {
		return "", err
	}
	path := filepath.Join(f.outputDir, wb.Filename)
	if err := export.Save(fs, path, wb.Data); err != nil {
		return "", err
	}
	return path, nil
}

func cliDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse(table.DateLayout, s)
	if err != nil {
		return nil, &pipeline.InputError{Field: field, Reason: fmt.Sprintf("expected YYYY-MM-DD, got %q", s)}
	}
	return &ts, nil
}
