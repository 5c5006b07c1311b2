// internal/httpserver/routes_games.go
//
// Game endpoints (token required):
//   - POST   /api/games           {language} → {game_id, access_token}   any token
//   - GET    /api/games/{gameID}  → view + access_token                  account token
//   - PUT    /api/games/{gameID}  {letter} → view                         game-scoped token
//   - DELETE /api/games/{gameID}  → {message, deleted}                    game-scoped token
//   - GET    /api/players/me      → player statistics                     any token

package httpserver

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/langman/internal/game"
)

type startReq struct {
	Language *string `json:"language"`
}

type startRes struct {
	Message     string `json:"message"`
	GameID      string `json:"game_id"`
	AccessToken string `json:"access_token"`
}

type guessReq struct {
	Letter string `json:"letter"`
}

type deleteRes struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

func (s *Server) mountGames(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post("/games", s.handleStart)
		r.Get("/games/{gameID}", s.handleRead)
		r.Put("/games/{gameID}", s.handleGuess)
		r.Delete("/games/{gameID}", s.handleDelete)
		r.Get("/players/me", s.handleStats)
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body startReq
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, errInvalidJSON)
		return
	}
	if body.Language == nil {
		writeError(w, r, fmt.Errorf("%w: new game requires language", game.ErrInvalidLanguage))
		return
	}
	res, err := s.games.Start(r.Context(), claimsFrom(r), *body.Language)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, startRes{Message: "success", GameID: res.GameID, AccessToken: res.AccessToken})
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.Read(r.Context(), claimsFrom(r), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var body guessReq
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, errInvalidJSON)
		return
	}
	// A missing letter is checked by the engine after not-found and game-over.
	v, err := s.games.Guess(r.Context(), claimsFrom(r), chi.URLParam(r, "gameID"), body.Letter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	n, err := s.games.Delete(r.Context(), claimsFrom(r), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := "Zero records deleted"
	if n == 1 {
		msg = "One record deleted"
	}
	writeJSON(w, http.StatusOK, deleteRes{Message: msg, Deleted: n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p, err := s.games.Stats(r.Context(), claimsFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
