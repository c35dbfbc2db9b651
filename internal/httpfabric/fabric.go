// Package httpfabric wraps every outbound venue/feed fetch behind a
// single chokepoint: per-host sliding-window rate limiting, cooldown
// honoring of 429/Retry-After, and jittered exponential backoff on
// retry. It is the only place in the agent that is allowed to issue a
// raw HTTP request.
package httpfabric

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/coreerr"
)

// Config tunes retry/backoff/rate-limit behavior (spec §4.B defaults).
type Config struct {
	MaxAttempts     int
	MinDelay        time.Duration
	MaxDelay        time.Duration
	BackoffMult     float64
	Jitter          float64
	RetryMethods    []string
	DefaultRate     RateRule
	PerHostOverride map[string]RateRule
	Timeout         time.Duration
}

// DefaultConfig returns the spec §4.B defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		MinDelay:     500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		BackoffMult:  2.0,
		Jitter:       0.1,
		RetryMethods: []string{"GET", "HEAD", "OPTIONS"},
		DefaultRate:  RateRule{MaxRequests: 60, WindowMS: 60_000},
		Timeout:      10 * time.Second,
	}
}

// Fabric is the shared outbound HTTP chokepoint.
type Fabric struct {
	cfg    Config
	client *resty.Client
	clock  clock.Clock
	log    zerolog.Logger
	rng    *rand.Rand

	mu        sync.Mutex
	limiters  map[string]*hostLimiter
	cooldowns map[string]time.Time
}

// New builds a Fabric. client.SetRetryCount is intentionally never
// called: retry/backoff is implemented here against the injected Clock
// so it can be driven deterministically in tests, which resty's own
// built-in retry (real-time only) cannot do.
func New(cfg Config, clk clock.Clock, log zerolog.Logger) *Fabric {
	c := resty.New().SetTimeout(cfg.Timeout)
	return &Fabric{
		cfg:       cfg,
		client:    c,
		clock:     clk,
		log:       log.With().Str("component", "httpfabric").Logger(),
		limiters:  make(map[string]*hostLimiter),
		cooldowns: make(map[string]time.Time),
	}
}

// WithRand overrides the jitter source, used by tests that need
// reproducible backoff delays.
func (f *Fabric) WithRand(rng *rand.Rand) *Fabric {
	f.rng = rng
	return f
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

func (f *Fabric) rateRuleFor(host string) RateRule {
	if r, ok := f.cfg.PerHostOverride[host]; ok {
		return r
	}
	return f.cfg.DefaultRate
}

func (f *Fabric) limiterFor(host string) *hostLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = newHostLimiter(f.rateRuleFor(host), f.clock)
		f.limiters[host] = l
	}
	return l
}

func (f *Fabric) cooldownUntil(host string) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cooldowns[host]
}

func (f *Fabric) setCooldown(host string, until time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cooldowns[host] = until
}

func (f *Fabric) isRetryableMethod(method string) bool {
	for _, m := range f.cfg.RetryMethods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}

// waitForSlot blocks until any active cooldown has passed and a rate
// limiter slot is available (spec §4.B step 1).
func (f *Fabric) waitForSlot(ctx context.Context, host string) error {
	for {
		until := f.cooldownUntil(host)
		now := f.clock.Now()
		if until.After(now) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-f.clock.After(until.Sub(now)):
			}
			continue
		}
		break
	}
	f.limiterFor(host).wait()
	return nil
}

// Do issues req against host, retrying on 429/5xx for retryable methods
// and on network errors, honoring cooldowns and jittered backoff (spec
// §4.B). req is built fresh by buildReq on every attempt since resty
// Requests aren't safely reusable across retries.
func (f *Fabric) Do(ctx context.Context, method, rawURL string, buildReq func(*resty.Request) *resty.Request) (*resty.Response, error) {
	host := hostOf(rawURL)
	var lastResp *resty.Response
	var lastErr error

	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := f.waitForSlot(ctx, host); err != nil {
			return nil, err
		}

		req := f.client.R().SetContext(ctx)
		if buildReq != nil {
			req = buildReq(req)
		}
		resp, err := req.Execute(method, rawURL)
		lastResp, lastErr = resp, err

		if err != nil {
			if attempt == f.cfg.MaxAttempts {
				return nil, fmt.Errorf("%s %s: %w: %v", method, rawURL, coreerr.ErrVenueUnreachable, err)
			}
			f.sleepBackoff(attempt)
			continue
		}

		status := resp.StatusCode()
		if status < 400 {
			return resp, nil
		}

		if status == http.StatusTooManyRequests || status >= 500 {
			if !f.isRetryableMethod(method) || attempt == f.cfg.MaxAttempts {
				return resp, f.classifyFinal(method, rawURL, resp)
			}
			retryAfter, ok := parseRetryAfter(resp.Header().Get("Retry-After"), f.clock.Now())
			backoff := backoffDelay(attempt, f.cfg.MinDelay, f.cfg.MaxDelay, f.cfg.BackoffMult, f.cfg.Jitter, f.rng)
			delay := backoff
			if ok && retryAfter > delay {
				delay = retryAfter
			}
			f.setCooldown(host, f.clock.Now().Add(delay))
			f.log.Warn().Str("host", host).Int("status", status).Dur("delay", delay).Int("attempt", attempt).Msg("retrying after throttle")
			f.clock.Sleep(delay)
			continue
		}

		// Any other 4xx is terminal, never retried.
		return resp, fmt.Errorf("%s %s: status %d: %w", method, rawURL, status, coreerr.ErrVenueClientError)
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", method, rawURL, coreerr.ErrVenueUnreachable, lastErr)
	}
	return lastResp, f.classifyFinal(method, rawURL, lastResp)
}

func (f *Fabric) classifyFinal(method, rawURL string, resp *resty.Response) error {
	status := resp.StatusCode()
	return fmt.Errorf("%s %s: status %d: %w", method, rawURL, status, coreerr.ErrVenueTransient)
}

func (f *Fabric) sleepBackoff(attempt int) {
	d := backoffDelay(attempt, f.cfg.MinDelay, f.cfg.MaxDelay, f.cfg.BackoffMult, f.cfg.Jitter, f.rng)
	f.clock.Sleep(d)
}

// IsTerminal reports whether err represents a non-retryable client
// error, used by callers deciding whether to surface or swallow it.
func IsTerminal(err error) bool {
	return errors.Is(err, coreerr.ErrVenueClientError)
}

// IsTransient reports whether err represents a retry-exhausted
// 429/5xx or a network failure.
func IsTransient(err error) bool {
	return errors.Is(err, coreerr.ErrVenueTransient) || errors.Is(err, coreerr.ErrVenueUnreachable)
}
