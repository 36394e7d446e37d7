// CLAUDE:SUMMARY Allow-listed HTTP GET with bounded retries and exponential backoff (clockwork clock), returning raw bytes.
package imgw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hazyhaar/imgw-export/pkg/observability"
)

// Defaults for the public IMGW data host.
const (
	DefaultAllowedHost       = "danepubliczne.imgw.pl"
	DefaultRequestTimeout    = 60 * time.Second
	DefaultMaxAttempts       = 3
	DefaultBackoffMultiplier = 2
)

// Fetcher downloads payloads from a single allow-listed host.
type Fetcher struct {
	client      *http.Client
	clock       clockwork.Clock
	allowedHost string
	maxAttempts int
	multiplier  float64
	unit        time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client. Its Timeout bounds each attempt.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-attempt timeout on the default client.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithClock replaces the clock used for backoff sleeps.
func WithClock(c clockwork.Clock) FetcherOption {
	return func(f *Fetcher) { f.clock = c }
}

// WithAllowedHost sets the only host (authority, including any port) that may be fetched.
func WithAllowedHost(host string) FetcherOption {
	return func(f *Fetcher) { f.allowedHost = host }
}

// WithMaxAttempts sets the number of attempts, at least 1.
func WithMaxAttempts(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxAttempts = n
		}
	}
}

// WithBackoffMultiplier sets the base of the exponential backoff.
func WithBackoffMultiplier(m float64) FetcherOption {
	return func(f *Fetcher) {
		if m > 0 {
			f.multiplier = m
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// WithMetrics records attempts, failures and durations.
func WithMetrics(m *observability.Metrics) FetcherOption {
	return func(f *Fetcher) { f.metrics = m }
}

// NewFetcher creates a Fetcher for DefaultAllowedHost with 3 attempts and a
// backoff of 2^i seconds before attempt i+1. Redirects leaving the allowed
// host are refused unless the supplied client sets its own CheckRedirect.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: DefaultRequestTimeout},
		clock:       clockwork.NewRealClock(),
		allowedHost: DefaultAllowedHost,
		maxAttempts: DefaultMaxAttempts,
		multiplier:  DefaultBackoffMultiplier,
		unit:        time.Second,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	c := *f.client
	if c.CheckRedirect == nil {
		c.CheckRedirect = f.checkRedirect
	}
	f.client = &c
	return f
}

// maxRedirects matches the net/http default.
const maxRedirects = 10

// checkRedirect applies the allow-list to every redirect hop.
func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	return ValidateURL(req.URL.String(), f.allowedHost)
}

// AllowedHost returns the host this Fetcher accepts.
func (f *Fetcher) AllowedHost() string { return f.allowedHost }

// ValidateURL checks that rawURL is http(s) and targets allowedHost.
func ValidateURL(rawURL, allowedHost string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{URL: rawURL, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{URL: rawURL, Reason: fmt.Sprintf("scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host != allowedHost {
		return &ValidationError{URL: rawURL, Reason: fmt.Sprintf("host must be %q, got %q", allowedHost, u.Host)}
	}
	return nil
}

// Fetch GETs rawURL and returns the body. Any 2xx response is a success,
// whatever its content. Transport errors, non-2xx statuses and body read
// errors are retried; the last one is wrapped in a TransferError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ValidateURL(rawURL, f.allowedHost); err != nil {
		return nil, err
	}

	start := f.clock.Now()
	defer func() {
		if f.metrics != nil {
			f.metrics.FetchDuration.Observe(f.clock.Since(start).Seconds())
		}
	}()

	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := f.backoff(attempt - 1)
			f.logger.Debug("fetch retry", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-f.clock.After(backoff):
			}
		}

		data, err := f.get(ctx, rawURL)
		if err == nil {
			f.record("success", len(data))
			return data, nil
		}
		f.record("error", 0)
		var ve *ValidationError
		if errors.As(err, &ve) {
			f.logger.Warn("redirect rejected", "url", rawURL, "target", ve.URL)
			return nil, ve
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if f.metrics != nil {
		f.metrics.FetchFailures.Inc()
	}
	f.logger.Warn("fetch failed", "url", rawURL, "attempts", f.maxAttempts, "error", lastErr)
	return nil, &TransferError{URL: rawURL, Attempts: f.maxAttempts, Err: lastErr}
}

// backoff returns multiplier^i units.
func (f *Fetcher) backoff(i int) time.Duration {
	return time.Duration(math.Pow(f.multiplier, float64(i)) * float64(f.unit))
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, rawURL)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func (f *Fetcher) record(outcome string, n int) {
	if f.metrics == nil {
		return
	}
	f.metrics.FetchAttempts.WithLabelValues(outcome).Inc()
	f.metrics.FetchBytes.Add(float64(n))
}
