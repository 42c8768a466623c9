package directory

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thebtf/recordkit/pkg/record"
	"github.com/thebtf/recordkit/pkg/recorddb"
	"github.com/thebtf/recordkit/pkg/recordhttp"
)

// ctxKey is the context key type for the authenticated caller.
type ctxKey int

const callerKey ctxKey = iota

// withCaller marks ctx as carrying an authenticated caller.
func withCaller(ctx context.Context) context.Context {
	return context.WithValue(ctx, callerKey, true)
}

// callerAuthenticated reports whether ctx carries an authenticated caller.
func callerAuthenticated(ctx context.Context) bool {
	v, _ := ctx.Value(callerKey).(bool)
	return v
}

// Service is the HTTP surface of the demo user directory.
type Service struct {
	router   *chi.Mux
	db       *recorddb.DB
	users    *record.Store[User, *User]
	apiToken string
}

// NewService wires the router, store and auth gate. An empty apiToken
// disables authentication entirely (every caller is trusted), mirroring a
// development setup without a login facility.
func NewService(db *recorddb.DB, apiToken string) *Service {
	s := &Service{
		router:   chi.NewRouter(),
		db:       db,
		apiToken: apiToken,
	}

	// The store refuses writes unless the request context carries an
	// authenticated caller. Identity itself comes from the bearer-token
	// middleware below; the store never sees credentials.
	var auth record.Authorizer
	if apiToken != "" {
		auth = record.AuthorizerFunc(func(ctx context.Context) error {
			if !callerAuthenticated(ctx) {
				return errors.New("no authenticated caller")
			}
			return nil
		})
	}
	s.users = record.NewStore[User, *User](db.Gorm(), record.WithAuthorizer(auth))

	s.setupRoutes()
	return s
}

// ServeHTTP makes Service an http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Users exposes the store for seeding and tests.
func (s *Service) Users() *record.Store[User, *User] {
	return s.users
}

// setupRoutes configures HTTP routes.
func (s *Service) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.authenticate)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/users", func(r chi.Router) {
		r.Get("/", s.handleListUsers)
		r.Post("/", s.handleCreateUser)
		r.Get("/{id}", s.handleGetUser)
		r.Get("/token/{token}", s.handleGetUserByToken)
		r.Patch("/{id}", s.handleUpdateUser)
		r.Delete("/{id}", s.handleDeleteUser)
		r.Post("/{id}/check-password", s.handleCheckPassword)
	})
}

// authenticate stamps the request context when the bearer token matches the
// configured API token. Requests without (or with a wrong) token still reach
// read handlers; writes are then rejected by the store's Authorizer.
func (s *Service) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.apiToken)) == 1 {
				r = r.WithContext(withCaller(r.Context()))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports database health.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := s.db.HealthCheck(r.Context())
	if info.Status == "unhealthy" {
		recordhttp.WriteStatusJSON(w, http.StatusServiceUnavailable, info)
		return
	}
	recordhttp.WriteJSON(w, info)
}
