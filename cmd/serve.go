package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/carte/internal/httpapi"
	"github.com/sells-group/carte/internal/metrics"
	"github.com/sells-group/carte/internal/viewer"
)

var (
	servePort        int
	serveReloadEvery time.Duration
)

// viewerOptions maps the viewer config onto session options.
func viewerOptions() viewer.Options {
	return viewer.Options{
		Categories:  cfg.Viewer.Categories,
		Debounce:    time.Duration(cfg.Viewer.DebounceMillis) * time.Millisecond,
		ShowOffices: cfg.Viewer.ShowOffices,
		MinZoom:     float64(cfg.Viewer.ProjectMinZoom),
	}
}

// buildHandler wires the HTTP API around an initialized catalog.
func buildHandler(env *catalogEnv, reg *viewer.Registry) http.Handler {
	h := httpapi.NewHandler(env.Loader, reg, env.Metrics, httpapi.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		StaticDir:      cfg.Server.StaticDir,
		DataVersion:    cfg.Sources.DataVersion,
		ClusterRadius:  cfg.Viewer.ClusterRadius,
		ProjectMinZoom: float64(cfg.Viewer.ProjectMinZoom),
		Debounce:       time.Duration(cfg.Viewer.DebounceMillis) * time.Millisecond,
		Categories:     cfg.Viewer.Categories,
	})
	return h.Router()
}

// reloadLoop refetches changed sources on every tick until ctx is done.
func reloadLoop(ctx context.Context, env *catalogEnv, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d := env.Loader.Reload(ctx)
			env.Metrics.SetCatalog(d.Generation, len(d.Projects), d.Index.Len())
		}
	}
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// startServer serves handler on port until ctx is done, then shuts down
// gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the map API and viewer sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCatalog("serve", metrics.New())
		if err != nil {
			return err
		}
		d := env.load(ctx)
		zap.L().Info("catalog ready",
			zap.Int("regions", d.Index.Len()),
			zap.Int("projects", len(d.Projects)),
		)

		ttl := time.Duration(cfg.Viewer.SessionTTLMins) * time.Minute
		reg := viewer.NewRegistry(env.Loader, viewerOptions(), ttl)
		reg.OnChange = env.Metrics.SetSessions
		go reg.Run(ctx, ttl/2)

		if serveReloadEvery > 0 {
			go reloadLoop(ctx, env, serveReloadEvery)
		}

		return startServer(ctx, buildHandler(env, reg), resolvePort(servePort, cfg.Server.Port))
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().DurationVar(&serveReloadEvery, "reload-every", 0, "refetch changed sources at this interval (0 = never)")
	rootCmd.AddCommand(serveCmd)
}
