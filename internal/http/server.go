// Package http serves the expense list, the add/edit form, a JSON API and
// the theme toggle.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/theme"
	appweb "expensetracker/web"
)

// ExpenseService is what the handlers need from the expense layer.
// *services.ExpenseService satisfies it.
type ExpenseService interface {
	Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error)
	Update(ctx context.Context, id string, in core.ExpenseInput) (core.Expense, error)
	Get(ctx context.Context, id string) (core.Expense, error)
	List(ctx context.Context) ([]core.Expense, error)
	Summary(ctx context.Context) (core.Summary, error)
}

// Options tunes the server. Zero values pick the defaults.
type Options struct {
	Logger             *applog.Logger
	RateLimitPerMinute int
	SummaryTTL         time.Duration
	// EventsEnabled is reported by /readyz.
	EventsEnabled bool
}

type Server struct {
	http.Server
	templates *template.Template
	expenses  ExpenseService
	themes    *theme.Store
	logger    *applog.Logger

	tracer   *trace.Middleware
	detector *security.Detector
	limiter  *ratelimit.Limiter

	summaryCache *cache.LRUCache[core.Summary]
	cacheManager *cache.Manager
	summaryGen   atomic.Uint64

	eventsEnabled bool
	started       time.Time
	shutdownOnce  sync.Once
}

// NewServer wires routes and middleware. Background cleanup goroutines run
// until Shutdown.
func NewServer(addr string, expenses ExpenseService, themes *theme.Store, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.SummaryTTL <= 0 {
		opts.SummaryTTL = time.Minute
	}
	if themes == nil {
		themes = theme.New(false)
	}

	tmpl, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	staticFS, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	logger := opts.Logger.WithComponent(applog.ComponentHTTP)
	s := &Server{
		templates:     tmpl,
		expenses:      expenses,
		themes:        themes,
		logger:        logger,
		detector:      security.NewDetector(),
		limiter:       ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		summaryCache:  cache.NewLRUCache[core.Summary](8, opts.SummaryTTL),
		cacheManager:  cache.NewManager(opts.Logger),
		eventsEnabled: opts.EventsEnabled,
		started:       time.Now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.Handle("GET /{$}", security.NoStore(http.HandlerFunc(s.handleList)))
	mux.Handle("GET /expenses/new", security.NoStore(http.HandlerFunc(s.handleNewForm)))
	mux.Handle("GET /expenses/{id}/edit", security.NoStore(http.HandlerFunc(s.handleEditForm)))
	mux.HandleFunc("POST /expenses", s.handleCreate)
	mux.HandleFunc("POST /expenses/{id}", s.handleUpdate)
	mux.HandleFunc("PUT /expenses/{id}", s.handleUpdate)

	mux.HandleFunc("GET /api/expenses", s.handleAPIList)
	mux.HandleFunc("POST /api/expenses", s.handleCreate)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleAPIGet)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdate)
	mux.HandleFunc("GET /api/summary", s.handleAPISummary)

	mux.HandleFunc("GET /theme", s.handleTheme)
	mux.HandleFunc("POST /theme/toggle", s.handleThemeToggle)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimited)

	var handler http.Handler = mux
	handler = limit(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldPath, r.URL.Path)
	errorFor(r, http.StatusTooManyRequests, "Too many requests, please slow down").Write(w)
}

// summary returns the cached aggregate for the current collection.
func (s *Server) summary(ctx context.Context) (core.Summary, error) {
	key := "summary:" + strconv.FormatUint(s.summaryGen.Load(), 10)
	if sum, ok := s.summaryCache.Get(key); ok {
		return sum, nil
	}
	sum, err := s.expenses.Summary(ctx)
	if err != nil {
		return core.Summary{}, err
	}
	s.summaryCache.Set(key, sum)
	return sum, nil
}

// invalidateSummary moves readers to a fresh key, so a summary computed
// concurrently from the old collection is never served again.
func (s *Server) invalidateSummary() {
	s.summaryGen.Add(1)
	s.summaryCache.Purge()
}

// Shutdown stops background goroutines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
