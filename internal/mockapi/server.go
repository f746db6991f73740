package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/fmdesk/internal/obs"
)

// DefaultTokenTTL is the lifetime of issued access tokens.
const DefaultTokenTTL = time.Hour

// Fault makes the next Times requests matching Method and Route fail.
// Route is the canonical path, e.g. /api/v1/users/:id. Status 0 aborts the
// connection, which clients see as a network error.
type Fault struct {
	Method string `json:"method" yaml:"method"`
	Route  string `json:"route" yaml:"route"`
	Status int    `json:"status" yaml:"status"`
	Times  int    `json:"times" yaml:"times,omitempty"`
}

// Server is the mock backend. The zero value is not usable; call New.
type Server struct {
	router   chi.Router
	metrics  *obs.Metrics
	secret   []byte
	now      func() time.Time
	tokenTTL time.Duration

	mu         sync.Mutex
	users      *recordSet
	requests   *recordSet
	identities map[string]Identity // by fixture name
	loginAs    string
	codes      map[string]authCode
	refresh    map[string]string // refresh token -> fixture name
	faults     []Fault
	hits       map[string]int
	nextID     int
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics counts served requests.
func WithMetrics(m *obs.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSecret sets the HMAC key access tokens are signed with.
func WithSecret(secret []byte) Option {
	return func(s *Server) { s.secret = secret }
}

// WithClock replaces the wall clock used for token expiry and new records.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithTokenTTL sets the lifetime of issued access tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// New creates a server seeded from the embedded fixtures. The provider signs
// in the admin identity until LoginAs says otherwise.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		secret:   []byte("fmdesk-mock-secret"),
		now:      time.Now,
		tokenTTL: DefaultTokenTTL,
		loginAs:  FixtureAdmin,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.seed(); err != nil {
		return nil, err
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) seed() error {
	users, err := loadRecords("users.json", userID)
	if err != nil {
		return err
	}
	requests, err := loadRecords("service-requests.json", requestID)
	if err != nil {
		return err
	}
	identities := map[string]Identity{}
	for _, name := range []string{FixtureAdmin, FixtureUser} {
		id, err := loadIdentity(name)
		if err != nil {
			return err
		}
		identities[name] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
	s.requests = requests
	s.identities = identities
	s.codes = map[string]authCode{}
	s.refresh = map[string]string{}
	s.faults = nil
	s.hits = map[string]int{}
	s.nextID = 1000
	return nil
}

// Reset restores the fixtures and forgets faults, hits and sessions.
func (s *Server) Reset() error {
	return s.seed()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)
	r.Use(s.metrics.Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Identity provider.
	r.Get("/authorize", s.handleAuthorize)
	r.Post("/oauth/token", s.handleToken)
	r.Get("/userinfo", s.handleUserinfo)
	r.Get("/v2/logout", s.handleLogout)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.injectFaults)
		r.Use(s.requireBearer)

		r.Get("/users", s.listUsers)
		r.Post("/users", s.createUser)
		r.Get("/users/me", s.currentUser)
		r.Get("/users/{id}", s.getUser)
		r.Put("/users/{id}", s.updateUser)
		r.Delete("/users/{id}", s.deleteUser)

		r.Get("/service-requests", s.listRequests)
		r.Post("/service-requests", s.createRequest)
		r.Get("/service-requests/{id}", s.getRequest)
		r.Put("/service-requests/{id}", s.updateRequest)
		r.Delete("/service-requests/{id}", s.deleteRequest)
	})

	// Control endpoints for "fmdesk mock-api".
	r.Route("/_mock", func(r chi.Router) {
		r.Post("/faults", s.handleAddFault)
		r.Post("/login-as/{fixture}", s.handleLoginAs)
		r.Post("/reset", s.handleReset)
		r.Get("/hits", s.handleHits)
	})
	return r
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// LoginAs selects the identity the provider signs in next.
func (s *Server) LoginAs(fixture string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[fixture]; !ok {
		return fmt.Errorf("mockapi: unknown identity fixture %q", fixture)
	}
	s.loginAs = fixture
	return nil
}

// FailNext queues a fault.
func (s *Server) FailNext(f Fault) {
	if f.Times <= 0 {
		f.Times = 1
	}
	f.Method = strings.ToUpper(f.Method)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, f)
}

// Hits returns how many requests reached method and canonical route.
func (s *Server) Hits(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[hitKey(method, route)]
}

func hitKey(method, route string) string {
	return strings.ToUpper(method) + " " + route
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[hitKey(r.Method, obs.CanonicalPath(r.URL.Path))]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// takeFault consumes one matching fault.
func (s *Server) takeFault(method, route string) (Fault, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, f := range s.faults {
		if f.Method != method || f.Route != route {
			continue
		}
		f.Times--
		if f.Times <= 0 {
			s.faults = append(s.faults[:i], s.faults[i+1:]...)
		} else {
			s.faults[i] = f
		}
		return f, true
	}
	return Fault{}, false
}

func (s *Server) injectFaults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := s.takeFault(r.Method, obs.CanonicalPath(r.URL.Path))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		slog.Debug("mock fault injected", "method", r.Method, "path", r.URL.Path, "status", f.Status)
		if f.Status == 0 {
			panic(http.ErrAbortHandler)
		}
		writeError(w, f.Status, "injected fault")
	})
}

func (s *Server) handleAddFault(w http.ResponseWriter, r *http.Request) {
	var f Fault
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<10)).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid fault: "+err.Error())
		return
	}
	if f.Method == "" || f.Route == "" {
		writeError(w, http.StatusBadRequest, "method and route are required")
		return
	}
	s.FailNext(f)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoginAs(w http.ResponseWriter, r *http.Request) {
	if err := s.LoginAs(chi.URLParam(r, "fixture")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Reset(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHits(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hits := make(map[string]int, len(s.hits))
	for k, v := range s.hits {
		hits[k] = v
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, hits)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("mock write failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
