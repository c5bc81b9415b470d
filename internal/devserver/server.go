// ABOUTME: In-memory development backend honoring the record-admin HTTP contract
// ABOUTME: Serves auth, models and token endpoints behind cookie sessions

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/markalston/record-admin/internal/client"
	"github.com/markalston/record-admin/internal/devserver/cache"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPrefix is where the API is mounted, matching the client's default
// base URL of http://localhost:8080/api
const DefaultPrefix = "/api"

// Options configure a Server
type Options struct {
	Users      []UserSeed
	Models     []client.Model
	Prefix     string
	SessionTTL time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost; tests use bcrypt.MinCost
	BcryptCost   int
	CookieSecure bool
}

// Server is the development backend
type Server struct {
	users        *userStore
	sessions     *sessionService
	sessionCache *cache.Cache[*serverSession]
	models       []client.Model
	prefix       string
	cookieSecure bool
	logger       *zap.Logger

	tokensMu sync.Mutex
	tokens   map[string][]client.UserToken

	router *mux.Router
}

// New creates a server with seeded users and models
func New(opts Options, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Users == nil {
		opts.Users = DefaultUsers()
	}
	if opts.Models == nil {
		opts.Models = DefaultModels()
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.SessionTTL == 0 {
		opts.SessionTTL = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}

	users, err := newUserStore(opts.Users, opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	sessionCache := cache.New[*serverSession](opts.SessionTTL, logger.Named("sessions"))
	s := &Server{
		users:        users,
		sessions:     newSessionService(sessionCache),
		sessionCache: sessionCache,
		models:       opts.Models,
		prefix:       opts.Prefix,
		cookieSecure: opts.CookieSecure,
		logger:       logger,
		tokens:       make(map[string][]client.UserToken),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequest)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix(s.prefix).Subrouter()
	api.HandleFunc(client.LoginEndpoint, s.login).Methods(http.MethodPost)
	api.HandleFunc(client.LogoutEndpoint, s.logout).Methods(http.MethodPost)
	api.HandleFunc(client.MeEndpoint, s.requireSession(s.me)).Methods(http.MethodGet)
	api.HandleFunc(client.ForcedChangePasswordEndpoint, s.forcedChangePassword).Methods(http.MethodPost)

	api.HandleFunc(client.ModelsEndpoint, s.requireSession(s.listModels)).Methods(http.MethodGet)
	api.HandleFunc(client.MyTokensEndpoint, s.requireSession(s.myTokens)).Methods(http.MethodGet)
	api.HandleFunc(client.GenerateTokenEndpoint, s.requireSession(s.generateToken)).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{id}", s.requireSession(s.deleteToken)).Methods(http.MethodDelete)

	api.HandleFunc("/admin/users", s.requireSession(s.requireAdmin(s.listUsers))).Methods(http.MethodGet)

	return r
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the session cache
func (s *Server) Close() {
	s.sessionCache.Close()
}

// ActiveSessions counts live sessions
func (s *Server) ActiveSessions() int {
	return s.sessions.count()
}

// ListenAndServe serves on addr until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dev server listening", zap.String("addr", addr), zap.String("prefix", s.prefix))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("dev server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

type sessionContextKey struct{}

// requireSession answers 401 unless the request carries a live session
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := s.sessionFromCookie(r)
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "", "Not authenticated")
			return
		}
		if _, ok := s.users.get(sess.Username); !ok {
			s.sessions.delete(sess.ID)
			writeError(w, http.StatusUnauthorized, "", "Not authenticated")
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
		next(w, r.WithContext(ctx))
	}
}

// requireAdmin answers 403 for signed-in users without the admin flag
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, _ := s.currentUser(r)
		if !u.admin {
			writeError(w, http.StatusForbidden, "", "Admin access required")
			return
		}
		next(w, r)
	}
}

func (s *Server) sessionFromCookie(r *http.Request) *serverSession {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	sess, err := s.sessions.get(cookie.Value)
	if err != nil {
		return nil
	}
	return sess
}

func (s *Server) currentUser(r *http.Request) (user, bool) {
	sess, ok := r.Context().Value(sessionContextKey{}).(*serverSession)
	if !ok {
		return user{}, false
	}
	return s.users.get(sess.Username)
}

// statusRecorder captures the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// logRequest logs each request with its correlation ID, status and latency
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(client.RequestIDHeader)
		if requestID != "" {
			w.Header().Set(client.RequestIDHeader, requestID)
		}

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		s.logger.Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, client.ErrorBody{ErrorCode: code, Message: message})
}
