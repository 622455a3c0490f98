package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultMaxBody caps the size of a fetched document.
const DefaultMaxBody = 64 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds a single request when the caller's context has no
	// earlier deadline.
	Timeout time.Duration
	// Version is appended as the cache-busting "v" query parameter.
	Version string
	// MaxBody caps the response size in bytes.
	MaxBody int64
	// RatePerHost limits requests per second to any one host.
	RatePerHost rate.Limit
}

// HTTPFetcher fetches documents over HTTP(S). There are no retries: a failed
// attempt is reported to the caller as is.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "carte/1.0"
	}
	if opts.MaxBody == 0 {
		opts.MaxBody = DefaultMaxBody
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 5
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		lim = rate.NewLimiter(f.opts.RatePerHost, 1)
		f.limiters[u.Host] = lim
	}
	return lim
}

// VersionedURL appends the cache-busting parameter to rawURL.
func VersionedURL(rawURL, version string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: parse url")
	}
	if version != "" {
		q := u.Query()
		q.Set("v", version)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	target, err := VersionedURL(rawURL, f.opts.Version)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	if err := f.limiterFor(req.URL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}
	return req, nil
}

// Fetch downloads rawURL in one attempt.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	doc, _, err := f.do(ctx, rawURL, "")
	return doc, err
}

// FetchIfChanged sends If-None-Match and reports changed=false on 304.
func (f *HTTPFetcher) FetchIfChanged(ctx context.Context, rawURL, etag string) (*Document, bool, error) {
	return f.do(ctx, rawURL, etag)
}

func (f *HTTPFetcher) do(ctx context.Context, rawURL, etag string) (*Document, bool, error) {
	req, err := f.newRequest(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotModified && etag != "" {
		return nil, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, false, eris.Errorf("HTTP %d on %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBody+1))
	if err != nil {
		return nil, false, eris.Wrapf(err, "fetcher: read body of %s", rawURL)
	}
	if int64(len(body)) > f.opts.MaxBody {
		return nil, false, eris.Errorf("fetcher: %s exceeds %d bytes", rawURL, f.opts.MaxBody)
	}

	zap.L().Debug("fetcher: downloaded",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Document{
		Location: rawURL,
		Body:     body,
		ETag:     resp.Header.Get("ETag"),
	}, true, nil
}
