// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch is the HTTP client shared by the sources: rate limited,
// retrying on 429 and 5xx responses, with an optional in-memory cache of
// response bodies.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/astro-facts/pkg/types"
)

// RetryBaseDelay is the first backoff delay; it doubles on each retry.
// Tests override it to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

const (
	defaultMaxRetries = 5
	defaultTimeout    = 60 * time.Second
	defaultUserAgent  = "astro-facts/0.1"
)

// ErrNotFound is returned for HTTP 404.
var ErrNotFound = errors.New("not found")

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.Code, e.URL)
}

// Client fetches documents over HTTP.
type Client struct {
	HTTP      *http.Client
	UserAgent string

	// MaxRetries bounds retries on 429, 5xx and transport errors.
	MaxRetries int

	// Limiter paces requests. Nil means unlimited.
	Limiter *rate.Limiter

	// Cache keeps response bodies of Get by URL. Nil disables it.
	Cache *expirable.LRU[string, []byte]

	Logger *zap.SugaredLogger
}

// New builds a client from cfg.
func New(cfg types.HTTPConfig, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	c := &Client{
		HTTP:       &http.Client{Timeout: timeout},
		UserAgent:  ua,
		MaxRetries: maxRetries,
		Logger:     logger,
	}
	if cfg.RequestsPerSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	if cfg.CacheSize > 0 {
		c.Cache = expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c
}

// Get returns the body of url.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if c.Cache != nil {
		if body, ok := c.Cache.Get(url); ok {
			c.Logger.Debugw("cache hit", "url", url)
			return body, nil
		}
	}

	var body []byte
	err := c.do(ctx, url, func(r io.Reader) error {
		var err error
		body, err = io.ReadAll(r)
		return err
	})
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		c.Cache.Add(url, body)
	}
	return body, nil
}

// GetJSON decodes the JSON body of url into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return errors.Wrapf(err, "decoding %s", url)
	}
	return nil
}

// Download streams url into destPath through a temporary file in the same
// directory, so destPath is either complete or untouched.
func (c *Client) Download(ctx context.Context, url, destPath string) error {
	return c.do(ctx, url, func(r io.Reader) error {
		tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".fetch-*.tmp")
		if err != nil {
			return errors.Wrap(err, "creating temp file")
		}
		tmpPath := tmpFile.Name()

		_, copyErr := io.Copy(tmpFile, r)
		closeErr := tmpFile.Close()
		if copyErr != nil {
			os.Remove(tmpPath)
			return errors.Wrap(copyErr, "writing download")
		}
		if closeErr != nil {
			os.Remove(tmpPath)
			return errors.Wrap(closeErr, "closing temp file")
		}

		if err := os.Rename(tmpPath, destPath); err != nil {
			os.Remove(tmpPath)
			return errors.Wrap(err, "renaming temp file")
		}
		return nil
	})
}

// do runs one GET with retries and hands a 200 body to consume.
func (c *Client) do(ctx context.Context, url string, consume func(io.Reader) error) error {
	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(RetryBaseDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errors.Wrap(err, "creating request")
		}
		req.Header.Set("User-Agent", c.UserAgent)

		resp, err := c.client().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Logger.Debugw("request failed, retrying", "url", url, "attempt", attempt, "error", err)
			return retry.RetryableError(errors.Wrap(err, "HTTP request"))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return consume(resp.Body)
		case resp.StatusCode == http.StatusNotFound:
			return errors.Wrapf(ErrNotFound, "%s", url)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			io.Copy(io.Discard, resp.Body)
			c.Logger.Debugw("retrying", "url", url, "status", resp.StatusCode, "attempt", attempt)
			return retry.RetryableError(&StatusError{Code: resp.StatusCode, URL: url})
		default:
			return &StatusError{Code: resp.StatusCode, URL: url}
		}
	})
	if err != nil {
		c.Logger.Debugw("fetch failed", "url", url, "attempts", attempt, "error", err)
	}
	return err
}

func (c *Client) client() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}
