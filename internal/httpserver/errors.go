package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/langman/internal/auth"
	"github.com/robalobadob/langman/internal/game"
	"github.com/robalobadob/langman/internal/store"
	"github.com/robalobadob/langman/internal/token"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errInvalidJSON is returned for bodies that do not decode.
var errInvalidJSON = errors.New("request body must be a JSON object")

type errorKind struct {
	err    error
	status int
	code   string
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{errInvalidJSON, http.StatusBadRequest, "invalid_json"},
	{game.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{game.ErrInvalidLanguage, http.StatusBadRequest, "invalid_language"},
	{auth.ErrInvalidAccount, http.StatusBadRequest, "invalid_account"},
	{auth.ErrUsernameTaken, http.StatusBadRequest, "username_taken"},
	{token.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{auth.ErrNoAccount, http.StatusUnauthorized, "account_not_available"},
	{token.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{game.ErrGameOver, http.StatusForbidden, "game_over"},
	{game.ErrDuplicateGuess, http.StatusForbidden, "duplicate_guess"},
	{store.ErrNotFound, http.StatusNotFound, "not_found"},
	{store.ErrConflict, http.StatusConflict, "conflict"},
}

// writeError maps err to a status code and JSON body. Invariant violations and
// unknown errors are server faults and are logged at error level.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			writeJSON(w, k.status, errorBody{Error: k.code, Message: err.Error()})
			return
		}
	}

	code := "internal_error"
	if errors.Is(err, game.ErrInvariant) {
		code = "invariant_violation"
	}
	hlog.FromRequest(r).Error().Err(err).Str("path", r.URL.Path).Msg(code)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: code, Message: "internal server error"})
}
