// Package httpapi serves the catalog and the viewer sessions over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/carte/internal/catalog"
	"github.com/sells-group/carte/internal/metrics"
	"github.com/sells-group/carte/internal/viewer"
)

// Catalog is the data source the handlers read and reload.
type Catalog interface {
	Current() *catalog.Data
	Reload(ctx context.Context) *catalog.Data
}

// Options configures the handler.
type Options struct {
	CORSOrigins    []string
	StaticDir      string
	RequestTimeout time.Duration
	DataVersion    string
	ClusterRadius  int
	ProjectMinZoom float64
	Debounce       time.Duration
	Categories     []string
}

// Handler serves the HTTP API.
type Handler struct {
	catalog  Catalog
	sessions *viewer.Registry
	metrics  *metrics.Metrics
	opts     Options
}

// NewHandler creates a Handler. m may be nil.
func NewHandler(c Catalog, sessions *viewer.Registry, m *metrics.Metrics, opts Options) *Handler {
	if len(opts.Categories) == 0 {
		opts.Categories = viewer.DefaultCategories
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 45 * time.Second
	}
	return &Handler{catalog: c, sessions: sessions, metrics: m, opts: opts}
}

// Router builds the route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(h.accessLog)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/config", h.handleConfig)
		r.Get("/status", h.handleStatus)
		r.Post("/reload", h.handleReload)
		r.Get("/regions", h.handleRegions)
		r.Get("/projects", h.handleProjects)
		r.Get("/export.xlsx", h.handleExport)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.handleGetSession)
				r.Delete("/", h.handleDeleteSession)
				r.Get("/regions", h.handleSessionRegions)
				r.Post("/query", h.handleQuery)
				r.Post("/categories", h.handleCategory)
				r.Post("/region-filter", h.handleRegionFilter)
				r.Post("/regions/{code}/click", h.handleRegionClick)
				r.Post("/projects/{index}/click", h.handleProjectClick)
				r.Post("/offices/{index}/click", h.handleOfficeClick)
				r.Post("/map/click", h.handleMapClick)
				r.Post("/panel/close", h.handlePanelClose)
				r.Post("/offices", h.handleOffices)
				r.Post("/clear", h.handleClear)
			})
		})
	})

	if h.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(h.opts.StaticDir)))
	}

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, status, time.Since(start))

		zap.L().Debug("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	})
}

// decodeJSONStrict decodes a single JSON value. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSONStrict(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
