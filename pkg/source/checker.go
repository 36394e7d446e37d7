package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/hazyhaar/imgw-export/pkg/observability"
)

// Status is the outcome of the last availability check of a source.
type Status struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	CheckedAt  time.Time `json:"checked_at"`
}

// OK reports whether the source answered with a 2xx or 3xx status.
func (s Status) OK() bool {
	return s.StatusCode >= 200 && s.StatusCode < 400
}

// Checker performs HEAD requests against every catalog source and keeps the
// latest result per source.
type Checker struct {
	catalog *Catalog
	logger  *slog.Logger
	client  *http.Client
	clock   clockwork.Clock
	metrics *observability.Metrics

	mu     sync.RWMutex
	status map[string]Status
}

// NewChecker creates a Checker. metrics may be nil.
func NewChecker(catalog *Catalog, logger *slog.Logger, metrics *observability.Metrics) *Checker {
	return &Checker{
		catalog: catalog,
		logger:  logger,
		metrics: metrics,
		clock:   clockwork.NewRealClock(),
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		status: make(map[string]Status),
	}
}

// Schedule runs CheckAll on the cron spec until ctx is cancelled.
func (c *Checker) Schedule(ctx context.Context, spec string) error {
	sched := cron.New()
	if _, err := sched.AddFunc(spec, func() { c.CheckAll(ctx) }); err != nil {
		return fmt.Errorf("schedule source check %q: %w", spec, err)
	}
	sched.Start()
	c.logger.Info("source check scheduled", "schedule", spec)

	go func() {
		<-ctx.Done()
		<-sched.Stop().Done()
	}()
	return nil
}

// CheckAll checks every source and returns the results sorted by key.
func (c *Checker) CheckAll(ctx context.Context) []Status {
	sources := c.catalog.All()
	results := make([]Status, 0, len(sources))

	var ok, failed int
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}

		code, checkErr := c.checkOne(ctx, src.BaseURL)
		st := Status{Key: src.Key, URL: src.BaseURL, StatusCode: code, CheckedAt: c.clock.Now()}
		if checkErr != nil {
			st.Error = checkErr.Error()
		}
		c.store(st)
		results = append(results, st)

		if st.OK() {
			ok++
		} else {
			failed++
			c.logger.Warn("source unavailable",
				"source", src.Key,
				"url", src.BaseURL,
				"status", code,
				"error", st.Error,
			)
		}
	}

	c.logger.Info("source check complete", "total", ok+failed, "ok", ok, "failed", failed)
	return results
}

// Statuses returns the latest result of every checked source, sorted by key.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, 0, len(c.status))
	for _, src := range c.catalog.All() {
		if st, ok := c.status[src.Key]; ok {
			out = append(out, st)
		}
	}
	return out
}

func (c *Checker) store(st Status) {
	c.mu.Lock()
	c.status[st.Key] = st
	c.mu.Unlock()

	if c.metrics != nil {
		up := 0.0
		if st.OK() {
			up = 1
		}
		c.metrics.SourceUp.WithLabelValues(st.Key).Set(up)
	}
}

// checkOne performs a single HEAD request and returns the HTTP status code.
// On network error, status is 0.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
