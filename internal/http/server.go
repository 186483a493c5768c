// Package http is the web surface: auth, expense CRUD, chat-style entry,
// image uploads and the dashboard JSON.
package http

import (
	"context"
	"net/http"
	"time"

	"kharcha/internal/amqp"
	"kharcha/internal/classify"
	"kharcha/internal/log"
	"kharcha/internal/ocr"
	"kharcha/internal/storage"
)

// EventPublisher pushes model events toward the worker. A nil publisher
// disables eventing; mutations still succeed.
type EventPublisher interface {
	Publish(ctx context.Context, msg *amqp.ModelEvent) error
}

type Server struct {
	http.Server

	storage   *storage.SQLiteRepository
	detector  *classify.Detector
	publisher EventPublisher
	extractor ocr.TextExtractor

	sessions    *sessionStore
	rateLimiter *rateLimiter
	logger      *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. publisher and extractor may be nil.
func NewServer(addr string, repo *storage.SQLiteRepository, detector *classify.Detector, publisher EventPublisher, extractor ocr.TextExtractor, sessionTTL time.Duration, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		storage:     repo,
		detector:    detector,
		publisher:   publisher,
		extractor:   extractor,
		sessions:    newSessionStore(sessionTTL),
		rateLimiter: newRateLimiter(),
		logger:      logger.WithComponent("http"),
	}

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/signup", s.withMiddleware(s.handleSignup))
	mux.HandleFunc("/api/login", s.withMiddleware(s.handleLogin))
	mux.HandleFunc("/api/logout", s.withMiddleware(s.requireAuth(s.handleLogout)))
	mux.HandleFunc("/api/expenses", s.withMiddleware(s.requireAuth(s.handleExpenses)))
	mux.HandleFunc("/api/expenses/update", s.withMiddleware(s.requireAuth(s.handleUpdateExpense)))
	mux.HandleFunc("/api/expenses/delete", s.withMiddleware(s.requireAuth(s.handleDeleteExpense)))
	mux.HandleFunc("/api/chat", s.withMiddleware(s.requireAuth(s.handleChat)))
	mux.HandleFunc("/api/upload/receipt", s.withMiddleware(s.requireAuth(s.handleReceiptUpload)))
	mux.HandleFunc("/api/upload/screenshot", s.withMiddleware(s.requireAuth(s.handleScreenshotUpload)))
	mux.HandleFunc("/api/dashboard", s.withMiddleware(s.requireAuth(s.handleDashboard)))

	return s
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// withMiddleware adds rate limiting and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ip := clientIP(r)
		if !s.rateLimiter.allow(ip) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next(w, r)

		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"ip", ip,
			"duration", time.Since(start))
	}
}

// requireAuth resolves the session cookie to a user ID, rejecting the
// request when there is none.
func (s *Server) requireAuth(next func(w http.ResponseWriter, r *http.Request, userID int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		userID, ok := s.sessions.lookup(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}
		next(w, r, userID)
	}
}

// publishEvent fires a model event, logging rather than failing the request
// when the broker is unavailable.
func (s *Server) publishEvent(ctx context.Context, msg *amqp.ModelEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("failed to publish model event",
			"kind", msg.Kind, "error", err)
	}
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}
