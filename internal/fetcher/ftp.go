package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
	MaxBody int64
}

// FTPFetcher downloads documents over FTP, anonymously unless the URL
// carries credentials.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxBody == 0 {
		opts.MaxBody = DefaultMaxBody
	}
	return &FTPFetcher{opts: opts}
}

type ftpTarget struct {
	host, path, user, pass string
}

// parseFTPURL extracts host (with port), path and credentials from an FTP URL.
func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	t := ftpTarget{host: u.Host, path: u.Path, user: "anonymous", pass: "anonymous@"}
	if _, _, splitErr := net.SplitHostPort(t.host); splitErr != nil {
		t.host = net.JoinHostPort(t.host, "21")
	}
	if t.path == "" {
		return ftpTarget{}, eris.New("empty path in ftp url")
	}
	if u.User != nil {
		t.user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			t.pass = p
		}
	}
	return t, nil
}

// connGuard tracks the control and data connections of one fetch so that
// ctx bounds the whole exchange, not only the dial.
type connGuard struct {
	ctx    context.Context
	dialer net.Dialer

	mu     sync.Mutex
	conns  []net.Conn
	closed bool
}

func (g *connGuard) dial(network, address string) (net.Conn, error) {
	c, err := g.dialer.DialContext(g.ctx, network, address)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		_ = c.Close()
		return nil, g.ctx.Err()
	}
	g.conns = append(g.conns, c)
	return c, nil
}

// watch closes every tracked connection once ctx is done. The returned func
// stops watching.
func (g *connGuard) watch() func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-g.ctx.Done():
			g.mu.Lock()
			g.closed = true
			for _, c := range g.conns {
				_ = c.Close()
			}
			g.mu.Unlock()
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Fetch connects, retrieves the file and disconnects. ctx cancels the
// transfer at any stage.
func (f *FTPFetcher) Fetch(ctx context.Context, ftpURL string) (*Document, error) {
	t, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", t.host), zap.String("path", t.path))

	guard := &connGuard{ctx: ctx, dialer: net.Dialer{Timeout: f.opts.Timeout}}
	stop := guard.watch()
	defer stop()

	conn, err := ftp.Dial(t.host, ftp.DialWithDialFunc(guard.dial))
	if err != nil {
		return nil, f.wrapErr(ctx, err, "ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login(t.user, t.pass); err != nil {
		return nil, f.wrapErr(ctx, err, "ftp login")
	}

	resp, err := conn.Retr(t.path)
	if err != nil {
		return nil, f.wrapErr(ctx, err, "ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp, f.opts.MaxBody+1))
	if err != nil {
		return nil, f.wrapErr(ctx, err, "ftp read")
	}
	if int64(len(body)) > f.opts.MaxBody {
		return nil, eris.Errorf("ftp: %s exceeds %d bytes", ftpURL, f.opts.MaxBody)
	}

	return &Document{Location: ftpURL, Body: body}, nil
}

// wrapErr reports the context error when ctx ended the exchange, since the
// I/O error is then only a side effect of the closed connection.
func (f *FTPFetcher) wrapErr(ctx context.Context, err error, msg string) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return eris.Wrap(ctxErr, msg)
	}
	return eris.Wrap(err, msg)
}
