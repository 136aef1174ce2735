// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"kasa/internal/log"
	"kasa/internal/services"
	"kasa/internal/storage"
)

type Server struct {
	http.Server

	repo      *storage.Repository
	ledger    *services.Ledger
	scheduler *services.Scheduler
	backup    *services.Backup

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 120 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 120
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, repo *storage.Repository, ledger *services.Ledger, scheduler *services.Scheduler, backup *services.Backup) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		repo:        repo,
		ledger:      ledger,
		scheduler:   scheduler,
		backup:      backup,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	mux.HandleFunc("/accounts", s.withRequestContext(s.handleAccounts))
	mux.HandleFunc("/accounts/balance", s.withRequestContext(s.handleAccountBalance))

	mux.HandleFunc("/transactions", s.withRequestContext(s.handleTransactions))

	mux.HandleFunc("/recurring", s.withRequestContext(s.handleRecurring))
	mux.HandleFunc("/recurring/sweep", s.withRequestContext(s.handleSweep))

	mux.HandleFunc("/backup/snapshot", s.withRequestContext(s.handleSnapshot))
	mux.HandleFunc("/backup/snapshot/file", s.withRequestContext(s.handleSnapshotFile))
	mux.HandleFunc("/backup/csv", s.withRequestContext(s.handleCSVExport))
	mux.HandleFunc("/backup/db", s.withRequestContext(s.handleDatabaseCopy))

	mux.HandleFunc("/banks", s.withRequestContext(s.handleBanks))
	mux.HandleFunc("/categories", s.withRequestContext(s.handleCategories))
	mux.HandleFunc("/members", s.withRequestContext(s.handleMembers))
	mux.HandleFunc("/members/incomes", s.withRequestContext(s.handleMemberIncomes))
	mux.HandleFunc("/scheduled-transfers", s.withRequestContext(s.handleScheduledTransfers))
	mux.HandleFunc("/fixed-expenses", s.withRequestContext(s.handleFixedExpenses))
	mux.HandleFunc("/budget-categories", s.withRequestContext(s.handleBudgetCategories))
	mux.HandleFunc("/flow-groups", s.withRequestContext(s.handleFlowGroups))

	mux.HandleFunc("/goals", s.withRequestContext(s.handleGoals))
	mux.HandleFunc("/goals/contribute", s.withRequestContext(s.handleGoalContribute))
	mux.HandleFunc("/goals/withdraw", s.withRequestContext(s.handleGoalWithdraw))
	mux.HandleFunc("/goals/withdrawals", s.withRequestContext(s.handleGoalWithdrawals))

	return s
}

// withRequestContext adds request logging, a request id and rate limiting
// for mutating methods.
func (s *Server) withRequestContext(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("store unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
