// Package ui exposes the HTTP API: optimize-on-upload, run retrieval,
// and report rendering.
package ui

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gothresh/internal/logx"
	"gothresh/internal/optimizer"
	"gothresh/ports"
)

// App represents the API application
type App struct {
	router *chi.Mux
	opt    *optimizer.Optimizer
	repo   ports.RunRepository // nil disables persistence endpoints
	log    *logx.Logger
}

// NewApp creates the API application; repo may be nil
func NewApp(repo ports.RunRepository, log *logx.Logger) *App {
	if log == nil {
		log = logx.Default
	}
	app := &App{
		router: chi.NewRouter(),
		opt:    optimizer.New(),
		repo:   repo,
		log:    log,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app
}

// Router returns the HTTP handler
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.RealIP)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(60 * time.Second))
	a.router.Use(a.requestLogger)
}

func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)
	a.router.Route("/api", func(r chi.Router) {
		r.Post("/optimize", a.handleOptimize)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
		r.Get("/runs/{id}/report", a.handleRunReport)
	})
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.log.Debug("%s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
