// internal/httpserver/routes_auth.go
//
// Account endpoints, all on /api/auth:
//   - POST   register {username, password} → {access_token}
//   - PUT    login    {username, password} → {access_token}
//   - GET    whoami (token required)       → {logged_in_as, user_claims}
//   - DELETE remove account (token required) → {deleted_user_id}

package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/langman/internal/auth"
)

type credentialsReq struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type tokenRes struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) mountAuth(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/", s.handleRegister)
		r.Put("/", s.handleLogin)
		r.With(s.requireToken).Get("/", s.handleWhoami)
		r.With(s.requireToken).Delete("/", s.handleDeleteAccount)
	})
}

// readCredentials decodes a credentials body; both fields are required.
func readCredentials(w http.ResponseWriter, r *http.Request, action string) (string, string, error) {
	var body credentialsReq
	if err := decodeJSON(w, r, &body); err != nil {
		return "", "", errInvalidJSON
	}
	if body.Username == nil || body.Password == nil {
		return "", "", fmt.Errorf("%w: %s requires username and password", auth.ErrInvalidAccount, action)
	}
	return *body.Username, *body.Password, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username, password, err := readCredentials(w, r, "registering")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.accounts.Register(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenRes{AccessToken: tok})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, password, err := readCredentials(w, r, "login")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.accounts.Login(r.Context(), username, password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenRes{AccessToken: tok})
}

func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	who, err := s.accounts.Whoami(r.Context(), claimsFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, who)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := claimsFrom(r).Identity()
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted_user_id": id})
}
