// Package http exposes the expense API over JSON. Routing uses the standard
// mux with method and path patterns; everything behind /api/expenses and
// /api/analytics requires a bearer token.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"expensio/internal/analytics"
	"expensio/internal/auth"
	"expensio/internal/cache"
	"expensio/internal/core"
	"expensio/internal/middleware/ratelimit"
	"expensio/internal/middleware/security"
	"expensio/internal/middleware/trace"
	"expensio/internal/query"
	"expensio/internal/service"
)

// ExpenseAPI is the service surface the handlers call.
type ExpenseAPI interface {
	Create(ctx context.Context, actor core.Actor, input core.ExpenseInput) (core.Expense, error)
	Get(ctx context.Context, actor core.Actor, id int64) (core.Expense, error)
	List(ctx context.Context, actor core.Actor, params query.Params) ([]core.Expense, query.Pagination, error)
	Update(ctx context.Context, actor core.Actor, id int64, patch core.ExpensePatch) (core.Expense, error)
	Delete(ctx context.Context, actor core.Actor, id int64) error
	Transition(ctx context.Context, actor core.Actor, id int64, target core.Status, rejectionReason string) (core.Expense, error)
	Analytics(ctx context.Context, actor core.Actor, params query.Params) (analytics.Summary, error)
}

// UserAPI is the account surface the auth handlers call.
type UserAPI interface {
	Register(ctx context.Context, input service.RegisterInput) (core.User, error)
	Authenticate(ctx context.Context, email, password string) (core.User, error)
}

type Server struct {
	http.Server

	expenses ExpenseAPI
	users    UserAPI
	tokens   *auth.TokenIssuer

	rateLimiter *ratelimit.Limiter

	// analyticsCache avoids recomputing rollups on every dashboard poll.
	// Any mutation purges it wholesale; summaries are cheap to rebuild and
	// correctness beats cleverness for invalidation here.
	analyticsCache *cache.LRU[analytics.Summary]
	cacheManager   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, expenses ExpenseAPI, users UserAPI, tokens *auth.TokenIssuer, rateLimitPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		expenses: expenses,
		users:    users,
		tokens:   tokens,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: rateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
		analyticsCache: cache.NewLRU[analytics.Summary](200, 5*time.Minute),
		cacheManager:   cache.NewManager(),
	}
	s.cacheManager.Register(s.analyticsCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("POST /api/expenses", s.requireAuth(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.requireAuth(s.handleListExpenses))
	mux.HandleFunc("GET /api/expenses/{id}", s.requireAuth(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.requireAuth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireAuth(s.handleDeleteExpense))
	mux.HandleFunc("PATCH /api/expenses/{id}/status", s.requireAuth(s.handleTransitionExpense))

	mux.HandleFunc("GET /api/analytics", s.requireAuth(s.handleAnalytics))

	traceMW := trace.NewMiddleware(extractClientIP)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limitMW := s.rateLimiter.Middleware(extractClientIP, nil)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           headersMW.Middleware(traceMW.Middleware(limitMW(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type contextKey string

const actorKey contextKey = "actor"

// requireAuth verifies the bearer token and loads the actor into the request
// context before calling the handler.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}

		actor, err := s.tokens.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next(w, r.WithContext(ctx))
	}
}

func actorFrom(r *http.Request) core.Actor {
	if a, ok := r.Context().Value(actorKey).(core.Actor); ok {
		return a
	}
	return core.Actor{}
}

// extractClientIP resolves the client address, honoring proxy headers.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// invalidateAnalytics drops all cached summaries after a mutation.
func (s *Server) invalidateAnalytics() {
	s.analyticsCache.Purge()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
