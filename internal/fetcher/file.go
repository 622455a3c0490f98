package fetcher

import (
	"context"
	"net/url"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
)

// FileFetcher reads documents from the local filesystem. The modification
// time stands in for an ETag.
type FileFetcher struct{}

// Fetch reads the file at location (a path or a file:// URL).
func (FileFetcher) Fetch(ctx context.Context, location string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "fetcher: file read cancelled")
	}
	path := FilePath(location)

	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: stat %s", path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", path)
	}

	return &Document{
		Location: location,
		Body:     body,
		ETag:     strconv.FormatInt(info.ModTime().UnixNano(), 10),
	}, nil
}

// FetchIfChanged skips the read when the modification time is unchanged.
func (f FileFetcher) FetchIfChanged(ctx context.Context, location, etag string) (*Document, bool, error) {
	info, err := os.Stat(FilePath(location))
	if err != nil {
		return nil, false, eris.Wrapf(err, "fetcher: stat %s", location)
	}
	if strconv.FormatInt(info.ModTime().UnixNano(), 10) == etag {
		return nil, false, nil
	}
	doc, err := f.Fetch(ctx, location)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// FilePath strips a file:// prefix.
func FilePath(location string) string {
	if Scheme(location) != "file" {
		return location
	}
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	return u.Path
}
