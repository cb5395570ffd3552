package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/metrics"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// maxMetadataBytes bounds a metadata response body.
	maxMetadataBytes = 4 << 20
	// maxMediaBytes bounds a downloaded media file.
	maxMediaBytes = 256 << 20
	// bodySnippet is how much of an error body is kept in APIError.
	bodySnippet = 512
	// defaultRequestTimeout bounds a shared metadata request.
	defaultRequestTimeout = 2 * time.Minute
)

// Config configures a Client.
type Config struct {
	// BaseURL is the catalog API root, e.g. https://catalog.example/api/v1.
	BaseURL string
	// Token is an optional bearer token.
	Token string
	// RPS limits requests per second; 0 disables limiting.
	RPS float64
	// Burst is the limiter burst size; defaults to 1.
	Burst int
	// RequestTimeout bounds one metadata request independently of the
	// callers waiting on it. Defaults to 2m.
	RequestTimeout time.Duration
	// Transport overrides http.DefaultTransport (tests).
	Transport http.RoundTripper
	UserAgent string
}

// Client fetches metadata and media from the catalog.
type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	group     singleflight.Group
	timeout   time.Duration
	userAgent string
	log       *logging.Logger
}

// APIError is a non-2xx or malformed response from the catalog.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
	Msg        string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("catalog %s: %s", e.URL, e.Msg)
	}
	if e.Body != "" {
		return fmt.Sprintf("catalog %s: HTTP %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("catalog %s: HTTP %d", e.URL, e.StatusCode)
}

// NotFound reports whether the catalog has no entry for the request.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.Mark(errors.New("catalog: base URL is required"), failure.ErrInvalidInput)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "catalog: parsing base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Newf("catalog: unsupported scheme %q", base.Scheme)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = &loggingRoundTripper{base: transport}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = "preview-fetcher"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &Client{
		base:      base,
		http:      &http.Client{Transport: transport},
		limiter:   limiter,
		timeout:   timeout,
		userAgent: ua,
		log:       logging.With("catalog"),
	}, nil
}

// FetchMetadata returns the catalog entry for name. Concurrent calls for the
// same name share one request. The returned value must not be modified.
//
// A caller that gives up detaches the shared request from name, so the next
// call (typically a retry) sends a new request instead of joining a stuck one.
func (c *Client) FetchMetadata(ctx context.Context, name string) (*batch.Metadata, error) {
	ch := c.group.DoChan(name, func() (interface{}, error) {
		// The shared request outlives any single caller's cancellation but
		// not the client's request timeout.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(fctx, name)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.CatalogSharedFetches.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*batch.Metadata), nil
	case <-ctx.Done():
		c.group.Forget(name)
		return nil, errors.Mark(ctx.Err(), failure.ErrCancelled)
	}
}

func (c *Client) fetch(ctx context.Context, name string) (*batch.Metadata, error) {
	endpoint := c.base.JoinPath("models", "by-name", name).String()

	resp, err := c.do(ctx, endpoint, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var meta batch.Metadata
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes))
	if err := dec.Decode(&meta); err != nil {
		return nil, errors.Mark(&APIError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Msg:        "malformed response",
		}, failure.ErrAPI)
	}
	if meta.Name == "" {
		meta.Name = name
	}
	c.log.Debug("metadata for %s: %d media", name, len(meta.Media))
	return &meta, nil
}

// Download fetches a media URL and returns its body and content type.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	resp, err := c.do(ctx, rawURL, "*/*")
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, "", errors.Mark(errors.Wrapf(err, "reading %s", rawURL), failure.ErrNetwork)
	}
	if len(data) > maxMediaBytes {
		return nil, "", errors.Mark(&APIError{StatusCode: resp.StatusCode, URL: rawURL, Msg: "media too large"}, failure.ErrAPI)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// do waits for the limiter, performs a GET and converts non-2xx responses
// into *APIError. The caller closes the body of a successful response.
func (c *Client) do(ctx context.Context, rawURL, accept string) (*http.Response, error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "waiting for rate limiter"), failure.ErrCancelled)
	}
	metrics.CatalogRateLimitWait.Observe(time.Since(waitStart).Seconds())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "building request"), failure.ErrInvalidInput)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CatalogRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues("error").Inc()
		err = errors.Wrapf(err, "GET %s", rawURL)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Mark(err, failure.ErrTimeout)
		}
		return nil, errors.Mark(err, failure.ErrNetwork)
	}
	metrics.CatalogRequestsTotal.WithLabelValues(statusClass(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnippet))
		return nil, errors.Mark(&APIError{
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			Body:       strings.TrimSpace(string(snippet)),
		}, failure.ErrAPI)
	}
	return resp, nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 200 && code < 300:
		return "2xx"
	}
	return "error"
}

// loggingRoundTripper emits one debug line per request and response.
type loggingRoundTripper struct {
	base http.RoundTripper
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if !logging.IsDebugEnabled() {
		return t.base.RoundTrip(req)
	}
	start := time.Now()
	logging.Debug("catalog: %s %s", req.Method, req.URL.Redacted())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		logging.Debug("catalog: error after %s: %v", dur, err)
	} else {
		logging.Debug("catalog: %d %s (%s)", resp.StatusCode, http.StatusText(resp.StatusCode), dur)
	}
	return resp, err
}
