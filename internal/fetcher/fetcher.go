// Package fetcher downloads the map's read-only data documents from HTTP,
// FTP or the local filesystem.
package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Document is a fetched data document.
type Document struct {
	Location string
	Body     []byte
	ETag     string
}

// Fetcher retrieves a document in a single attempt. Callers bound the
// attempt with a context deadline.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*Document, error)
}

// ConditionalFetcher can skip the transfer when the document is unchanged.
type ConditionalFetcher interface {
	Fetcher
	// FetchIfChanged returns changed=false and a nil document when the
	// server reports the given ETag as current.
	FetchIfChanged(ctx context.Context, location, etag string) (doc *Document, changed bool, err error)
}

// Router dispatches on the location scheme: http(s), ftp, or a local path.
type Router struct {
	HTTP Fetcher
	FTP  Fetcher
	File Fetcher
}

// NewRouter builds a Router with the default fetchers.
func NewRouter(httpOpts HTTPOptions, ftpOpts FTPOptions) *Router {
	return &Router{
		HTTP: NewHTTPFetcher(httpOpts),
		FTP:  NewFTPFetcher(ftpOpts),
		File: FileFetcher{},
	}
}

func (r *Router) pick(location string) (Fetcher, error) {
	var f Fetcher
	switch Scheme(location) {
	case "http", "https":
		f = r.HTTP
	case "ftp":
		f = r.FTP
	case "", "file":
		f = r.File
	default:
		return nil, eris.Errorf("fetcher: unsupported scheme in %q", location)
	}
	if f == nil {
		return nil, eris.Errorf("fetcher: no fetcher configured for %q", location)
	}
	return f, nil
}

// Fetch retrieves location with the fetcher matching its scheme.
func (r *Router) Fetch(ctx context.Context, location string) (*Document, error) {
	f, err := r.pick(location)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, location)
}

// FetchIfChanged uses a conditional request when the underlying fetcher
// supports one, and a plain fetch otherwise.
func (r *Router) FetchIfChanged(ctx context.Context, location, etag string) (*Document, bool, error) {
	f, err := r.pick(location)
	if err != nil {
		return nil, false, err
	}
	if cf, ok := f.(ConditionalFetcher); ok && etag != "" {
		return cf.FetchIfChanged(ctx, location, etag)
	}
	doc, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// Scheme returns the lower-cased URL scheme of location, or "" for a plain
// filesystem path (including Windows drive paths).
func Scheme(location string) string {
	u, err := url.Parse(location)
	if err != nil || len(u.Scheme) <= 1 {
		return ""
	}
	return strings.ToLower(u.Scheme)
}
