package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/middleware"
)

// RouterConfig carries the optional pieces of the HTTP stack.
type RouterConfig struct {
	Metrics        *metrics.Metrics
	Health         *health.Checker
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// NewRouter builds the service's HTTP handler.
//
// Route table:
//
//	POST /api/v1/check             check units, ?format=json|xml|text
//	GET  /api/v1/rules             active rule set
//	POST /api/v1/rules/reload      reload and recompile rules
//	GET  /api/v1/reports           stored reports, ?limit=&offset=
//	GET  /api/v1/reports/{id}      one stored report
//	POST /api/v1/cache/invalidate  drop cached results
//	GET  /health, /health/live, /health/ready
//
// Middleware chain (outermost first):
//
//	RequestID → Recovery → Metrics → CORS → Compress → Timeout → mux
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/check", h.Check)
	mux.HandleFunc("GET /api/v1/rules", h.RuleSet)
	mux.HandleFunc("POST /api/v1/rules/reload", h.Reload)
	mux.HandleFunc("GET /api/v1/reports", h.ListReports)
	mux.HandleFunc("GET /api/v1/reports/{id}", h.GetReport)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
	if cfg.Health != nil {
		mux.HandleFunc("GET /health/live", cfg.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Health.ReadyHandler())
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.RequestTimeout)(chain)
	chain = handlers.CompressHandler(chain)
	chain = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", middleware.RequestIDHeader}),
		handlers.ExposedHeaders([]string{middleware.RequestIDHeader}),
	)(chain)
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	chain = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{h.logger}),
		handlers.PrintRecoveryStack(true),
	)(chain)
	chain = middleware.RequestID(chain)
	return chain
}

// recoveryLogger sends recovered panics to slog.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(args ...any) {
	l.logger.Error("panic recovered", "detail", args)
}
