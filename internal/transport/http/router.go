package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/aidesbz/shortlink/internal/config"
	"github.com/aidesbz/shortlink/internal/infrastructure/telemetry"
	"github.com/aidesbz/shortlink/internal/processing/bulkimport"
	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"github.com/aidesbz/shortlink/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":                  "health",
	"GET /metrics":                 "metrics",
	"GET /{$}":                     "landing",
	"GET /{code}":                  "links.redirect",
	"POST /unblock-ip":             "blocklist.unblock",
	"GET /campaign/{campaign...}":  "campaigns.clicks",
	"POST /upload-file":            "import.upload",
	"DELETE /delete-old-links":     "links.retention",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool

	LinksHandlerOptions LinksHandlerOptions
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
		LinksHandlerOptions: LinksHandlerOptions{
			AsyncClick:   true,
			ClickTimeout: 2 * time.Second,
		},
	}
}

func NewRouter(cfg *config.Config, svc *shortlinks.Service, importer *bulkimport.Importer, checker middleware.BlockChecker) http.Handler {
	return NewRouterWithOptions(cfg, svc, importer, checker, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, svc *shortlinks.Service, importer *bulkimport.Importer, checker middleware.BlockChecker, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()
	linksHandler := NewLinksHandlerWithOptions(cfg, svc, opts.LinksHandlerOptions)
	uploadHandler := NewUploadHandler(importer)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	mux.HandleFunc("GET /{$}", Landing)
	mux.HandleFunc("POST /unblock-ip", linksHandler.Unblock)
	mux.HandleFunc("GET /campaign/{campaign...}", linksHandler.Campaign)
	mux.HandleFunc("POST /upload-file", uploadHandler.Upload)
	mux.HandleFunc("DELETE /delete-old-links", linksHandler.DeleteOld)
	mux.HandleFunc("GET /{code}", linksHandler.Redirect)

	// The gate sits closest to the mux so every route is IP-gated; the
	// observability layers outside it still see rejected requests.
	chain := []func(http.Handler) http.Handler{}
	if opts.EnableCORS {
		chain = append(chain, middleware.CORSMiddleware)
	}
	chain = append(chain, middleware.BlocklistGate(checker, cfg.Blocklist.FailClosed))

	innerHandler := middleware.Chain(mux, chain...)
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
