// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ManuGH/amgplay/internal/cache"
	"github.com/ManuGH/amgplay/internal/domain/model"
	"github.com/ManuGH/amgplay/internal/log"
	"github.com/ManuGH/amgplay/internal/metrics"
	"github.com/ManuGH/amgplay/internal/resilience"
	"github.com/ManuGH/amgplay/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

const maxPageBytes = 8 << 20

// PageGetter fetches a page body as UTF-8.
type PageGetter interface {
	Get(ctx context.Context, rawURL string, cacheable bool) ([]byte, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// FetcherConfig tunes politeness and retry behaviour.
type FetcherConfig struct {
	UserAgent string
	// RequestDelay is the minimum delay between two network requests.
	RequestDelay time.Duration
	// Attempts is the total number of tries per page, including the first.
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
	CacheTTL   time.Duration
	// BreakerThreshold consecutive transient failures stop network
	// fetches for BreakerCooldown.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Fetcher performs rate limited, retried page fetches with an optional
// cache for immutable pages.
type Fetcher struct {
	client  *http.Client
	cache   cache.Cache
	limiter *rate.Limiter
	breaker *resilience.Breaker
	cfg     FetcherConfig
	logger  zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewFetcher builds a Fetcher. A nil cache disables caching.
func NewFetcher(client *http.Client, c cache.Cache, cfg FetcherConfig) *Fetcher {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = cfg.Backoff
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = time.Minute
	}
	if c == nil {
		c = cache.NewNoOpCache()
	}
	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}
	return &Fetcher{
		client:  client,
		cache:   c,
		limiter: rate.NewLimiter(limit, 1),
		breaker: resilience.NewBreaker("fetcher", cfg.BreakerThreshold, cfg.BreakerCooldown),
		cfg:     cfg,
		logger:  log.WithComponent("fetcher"),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- jitter only
	}
}

// Get fetches rawURL and returns its body decoded to UTF-8. Cacheable pages
// are served from and stored into the page cache. Failures after all
// attempts are returned as model.ErrFetch.
func (f *Fetcher) Get(ctx context.Context, rawURL string, cacheable bool) ([]byte, error) {
	kind := "listing"
	if cacheable {
		kind = "review"
		if body, ok := f.cache.Get(ctx, rawURL); ok {
			metrics.ObservePageFetch(kind, "cache_hit", 0)
			return body, nil
		}
	}

	var body []byte
	err := f.breaker.Execute(func() error {
		var ferr error
		body, ferr = f.fetch(ctx, kind, rawURL)
		return ferr
	}, isTransient)
	if errors.Is(err, resilience.ErrOpen) {
		metrics.ObservePageFetch(kind, "rejected", 0)
	}
	if err != nil {
		return nil, model.FetchError("fetch."+kind, rawURL, err)
	}
	if cacheable {
		f.cache.Set(ctx, rawURL, body, f.cfg.CacheTTL)
	}
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, kind, rawURL string) ([]byte, error) {
	tracer := telemetry.Tracer("amgplay.crawler")
	route := routeLabel(rawURL)
	ctx, span := tracer.Start(ctx, "amgplay.fetch."+kind, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String(telemetry.HTTPMethodKey, http.MethodGet),
		attribute.String(telemetry.HTTPRouteKey, route),
	)
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= f.cfg.Attempts; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		start := time.Now()
		body, status, err := f.do(ctx, rawURL)
		duration := time.Since(start)

		if err == nil {
			metrics.ObservePageFetch(kind, "success", duration)
			span.SetAttributes(telemetry.HTTPAttributes(http.MethodGet, route, rawURL, status)...)
			span.SetStatus(codes.Ok, "")
			return body, nil
		}
		lastErr = err

		retry := attempt < f.cfg.Attempts && shouldRetry(status, err) && ctx.Err() == nil
		outcome := "failure"
		if retry {
			outcome = "retry"
		}
		metrics.ObservePageFetch(kind, outcome, duration)
		f.logger.Debug().
			Err(err).
			Str(log.FieldURL, rawURL).
			Int(log.FieldAttempt, attempt).
			Int(log.FieldStatus, status).
			Bool("retry", retry).
			Msg("page fetch attempt failed")

		if !retry {
			break
		}
		if err := sleepWithContext(ctx, f.backoffFor(attempt-1)); err != nil {
			lastErr = err
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	return nil, lastErr
}

func (f *Fetcher) do(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxPageBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode charset: %w", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}

func shouldRetry(status int, err error) bool {
	switch {
	case status == 0:
		return err != nil
	case status == http.StatusTooManyRequests:
		return true
	case status >= http.StatusInternalServerError:
		return true
	}
	return false
}

// isTransient reports whether err says something about upstream health.
// Cancellation and definite answers such as 404 do not.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return shouldRetry(se.Code, err)
	}
	return true
}

func (f *Fetcher) backoffFor(attempt int) time.Duration {
	wait := f.cfg.Backoff * time.Duration(1<<attempt)
	if wait > f.cfg.MaxBackoff {
		wait = f.cfg.MaxBackoff
	}
	f.mu.Lock()
	jitter := time.Duration(f.rnd.Int63n(int64(wait/5 + 1)))
	f.mu.Unlock()
	return wait + jitter
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func routeLabel(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
