// internal/httpserver/server.go
//
// HTTP server wiring for the langman backend.
// Responsibilities:
//   - Router + middleware (request IDs, access log, panic recovery, timeouts, JSON, CORS).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Account endpoints under /api/auth (register, login, whoami, delete).
//   - Game endpoints under /api/games, authorized by capability tokens.
//   - Player statistics at /api/players/me.
//
// Notes:
//   - Tokens travel in "Authorization: Bearer <token>"; handlers receive the
//     verified claims from the request context.
//   - Domain errors are translated to status codes in errors.go.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/robalobadob/langman/internal/auth"
	"github.com/robalobadob/langman/internal/play"
	"github.com/robalobadob/langman/internal/token"
)

// Deps are the services the server exposes.
type Deps struct {
	Games        *play.Service
	Accounts     *auth.Service
	Tokens       *token.Issuer
	Gatherer     prometheus.Gatherer
	ClientOrigin string
	Logger       zerolog.Logger
}

// Server bundles the router and its services.
type Server struct {
	r        *chi.Mux
	games    *play.Service
	accounts *auth.Service
	tokens   *token.Issuer
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		games:    d.Games,
		accounts: d.Accounts,
		tokens:   d.Tokens,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog(d.Logger))             // zerolog per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(d.ClientOrigin))            // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "langman",
			"endpoints": []string{
				"/health", "/metrics",
				"POST|PUT|GET|DELETE /api/auth",
				"POST /api/games", "GET|PUT|DELETE /api/games/{gameID}",
				"GET /api/players/me",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	if d.Gatherer != nil {
		s.r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	s.r.Route("/api", func(r chi.Router) {
		s.mountAuth(r)
		s.mountGames(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: r.URL.Path})
	})
	s.r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: r.Method + " " + r.URL.Path})
	})

	return s
}

// Handler exposes the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.r }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// HTTPServer returns an *http.Server for addr with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	return dec.Decode(v)
}
