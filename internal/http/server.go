package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/middleware/auth"
	"spendwise/internal/middleware/ratelimit"
	"spendwise/internal/middleware/security"
	"spendwise/internal/middleware/trace"
	"spendwise/internal/storage"
)

// TransactionService is the transaction entrypoint used by the handlers.
type TransactionService interface {
	Create(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error)
	ImportSMS(ctx context.Context, owner, text string) (core.Transaction, error)
	Get(ctx context.Context, owner, id string) (core.Transaction, error)
	List(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error)
	Update(ctx context.Context, owner, id string, patch core.TransactionPatch) (core.Transaction, error)
	Delete(ctx context.Context, owner, id string) error
}

// BudgetService is the budget entrypoint used by the handlers.
type BudgetService interface {
	Create(ctx context.Context, owner string, in core.BudgetInput) (core.Budget, error)
	List(ctx context.Context, owner string) ([]core.Budget, error)
	Get(ctx context.Context, owner, id string) (core.Budget, error)
	Update(ctx context.Context, owner, id string, patch core.BudgetPatch) (core.Budget, error)
	CorrectSpent(ctx context.Context, owner, id string, spent core.Money) (core.Budget, error)
	Delete(ctx context.Context, owner, id string) error
	Alerts(ctx context.Context, owner string) ([]core.BudgetAlert, error)
}

// ReportService produces the read-only reports.
type ReportService interface {
	Summary(ctx context.Context, owner string, window core.Window) (core.Summary, error)
	Transactions(ctx context.Context, owner string, filter core.TransactionFilter) ([]core.Transaction, error)
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Transactions TransactionService
	Budgets      BudgetService
	Reports      ReportService
	Store        storage.Pinger
}

// Config tunes the server's middleware.
type Config struct {
	Addr               string
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration
	Logger             *log.Logger
}

type Server struct {
	http.Server
	deps        Deps
	logger      *log.Logger
	limiter     *ratelimit.Limiter
	idempotency *Idempotency
	tracer      *trace.Middleware

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(cfg Config, deps Deps) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	resolver := security.NewClientIPResolver()
	s := &Server{
		deps:        deps,
		logger:      logger,
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		idempotency: NewIdempotency(1000, ttl),
		tracer:      trace.NewMiddleware(logger, resolver.ClientIP),
	}

	api := http.NewServeMux()
	api.HandleFunc("POST /api/transactions", s.idempotency.Wrap(s.handleCreateTransaction))
	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	api.HandleFunc("POST /api/sms/import", s.idempotency.Wrap(s.handleImportSMS))

	api.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	api.HandleFunc("GET /api/budgets", s.handleListBudgets)
	api.HandleFunc("GET /api/budgets/alerts", s.handleListAlerts)
	api.HandleFunc("GET /api/budgets/{id}", s.handleGetBudget)
	api.HandleFunc("PUT /api/budgets/{id}", s.handleUpdateBudget)
	api.HandleFunc("DELETE /api/budgets/{id}", s.handleDeleteBudget)
	api.HandleFunc("PUT /api/budgets/{id}/spent", s.handleCorrectSpent)

	api.HandleFunc("GET /api/reports/summary", s.handleSummary)
	api.HandleFunc("GET /api/reports/transactions", s.handleTransactionReport)

	limited := s.limiter.Middleware(
		func(r *http.Request) string { return auth.Owner(r.Context()) },
		func(w http.ResponseWriter, r *http.Request) {
			ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
		},
	)(api)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("/api/", auth.RequireOwner(limited))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	sweeper := cache.NewManager(logger.Logger)
	sweeper.Register(s.idempotency)
	go sweeper.Run(bg, time.Minute)
	go s.limiter.Run(bg)

	return s
}

// Shutdown stops background sweeps and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports whether the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "Store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// fail writes the response mapped from err and logs unexpected failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	resp := ErrorFor(err, notFound)
	if resp.statusCode >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err.Error())
	}
	resp.Write(w)
}
