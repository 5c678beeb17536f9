// Package fetcher downloads media payloads with rate-limit backoff.
package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	errs "xgrab/pkg/errors"
	"xgrab/pkg/logger"
	"xgrab/pkg/ratelimit"
	"xgrab/pkg/retry"
	"xgrab/pkg/twitter"
)

// Config controls fetch behavior
type Config struct {
	// Timeout per HTTP request
	Timeout time.Duration
	// MaxAttempts is the total attempt budget per item for rate-limited
	// responses
	MaxAttempts int
	// Cooldown is the fixed wait after a 429 before the next attempt
	Cooldown time.Duration
	// UserAgent for outbound requests
	UserAgent string
	// OnCooldown is fired when a rate-limit cooldown starts; the wait
	// itself is abortable through the fetch context
	OnCooldown func(wait time.Duration)
}

// Fetcher resolves media references to binary payloads
type Fetcher struct {
	client  *http.Client
	cfg     Config
	limiter ratelimit.Limiter
	log     logger.Logger
}

// New creates a fetcher. A nil limiter disables request pacing.
func New(cfg Config, limiter ratelimit.Limiter, log logger.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		cfg:     cfg,
		limiter: limiter,
		log:     log,
	}
}

// Fetch downloads one media reference. A 429 response is retried up to
// the attempt budget with a fixed cooldown between attempts; any other
// failure surfaces immediately. Cancellation aborts the in-flight
// request and the cooldown wait and is never retried.
func (f *Fetcher) Fetch(ctx context.Context, ref twitter.MediaReference) ([]byte, error) {
	cfg := &retry.Config{
		MaxAttempts: f.cfg.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: f.cfg.Cooldown},
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      f.log,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			if f.cfg.OnCooldown != nil && errs.IsRateLimit(err) {
				f.cfg.OnCooldown(delay)
			}
		},
	}

	data, err := retry.DoWithResult(func() ([]byte, error) {
		return f.get(ctx, ref.URL)
	}, cfg)
	if err != nil {
		// Unwrap the budget-exceeded wrapper back to the typed error
		var typed *errs.Error
		if errors.As(err, &typed) {
			return nil, typed
		}
		return nil, err
	}
	return data, nil
}

// get issues a single paced GET and classifies the outcome
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, errs.New(errs.ErrorTypeCancelled, "fetch aborted")
	}
	f.limiter.Wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Newf(errs.ErrorTypeNetwork, "build request: %v", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Referer", twitter.BaseURL+"/")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, errs.New(errs.ErrorTypeCancelled, "fetch aborted")
		}
		f.log.ErrorWithFields("request failed", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return nil, errs.Newf(errs.ErrorTypeNetwork, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		f.log.WarnWithFields("rate limited", map[string]interface{}{
			"url":    url,
			"status": resp.StatusCode,
		})
		return nil, errs.WithCode(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.WithCode(errs.ErrorTypeNetwork, resp.StatusCode, "unexpected status")
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.New(errs.ErrorTypeCancelled, "fetch aborted")
		}
		return nil, errs.Newf(errs.ErrorTypeNetwork, "read body: %v", err)
	}

	f.log.DebugWithFields("media fetched", map[string]interface{}{
		"url":      url,
		"size":     len(data),
		"duration": time.Since(start),
	})
	return data, nil
}
