package main

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/carte/internal/antenna"
	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/fetcher"
	"github.com/sells-group/carte/internal/metrics"
)

// catalogEnv holds what every data command needs: the ownership table and a
// catalog loader wired to the configured sources.
type catalogEnv struct {
	Table   *antenna.Table
	Loader  *catalog.Loader
	Metrics *metrics.Metrics // may be nil
}

// ownershipTable returns the configured table override, or the built-in one.
func ownershipTable() (*antenna.Table, error) {
	if cfg.Ownership.TablePath == "" {
		return antenna.DefaultTable(), nil
	}
	t, err := antenna.LoadTable(cfg.Ownership.TablePath)
	if err != nil {
		return nil, err
	}
	zap.L().Info("ownership table loaded",
		zap.String("path", cfg.Ownership.TablePath),
		zap.Int("departments", t.Len()),
	)
	return t, nil
}

// initCatalog validates the config for mode and builds the loader. Nothing
// is fetched yet.
func initCatalog(mode string, m *metrics.Metrics) (*catalogEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	table, err := ownershipTable()
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Sources.TimeoutSecs) * time.Second
	router := fetcher.NewRouter(
		fetcher.HTTPOptions{
			UserAgent:   cfg.Sources.UserAgent,
			Timeout:     timeout,
			Version:     cfg.Sources.DataVersion,
			RatePerHost: rate.Limit(cfg.Sources.RatePerHost),
		},
		fetcher.FTPOptions{Timeout: timeout},
	)

	opts := catalog.Options{
		RegionsURL:  cfg.Sources.RegionsURL,
		ProjectsURL: cfg.Sources.ProjectsURL,
		Timeout:     timeout,
		Table:       table,
	}
	if m != nil {
		opts.Observer = m
	}

	return &catalogEnv{
		Table:   table,
		Loader:  catalog.NewLoader(router, opts),
		Metrics: m,
	}, nil
}

// load fetches both sources and logs the outcome. Source failures are not
// returned: they are part of the catalog status.
func (e *catalogEnv) load(ctx context.Context) *catalog.Data {
	d := e.Loader.Load(ctx)
	e.Metrics.SetCatalog(d.Generation, len(d.Projects), d.Index.Len())
	if s := d.Status(); s != "" {
		zap.L().Warn("catalog loaded with errors", zap.String("status", s))
	}
	return d
}
