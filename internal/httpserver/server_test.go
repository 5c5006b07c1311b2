package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/robalobadob/langman/internal/auth"
	"github.com/robalobadob/langman/internal/game"
	"github.com/robalobadob/langman/internal/metrics"
	"github.com/robalobadob/langman/internal/play"
	"github.com/robalobadob/langman/internal/sqldb"
	"github.com/robalobadob/langman/internal/stats"
	"github.com/robalobadob/langman/internal/store"
	"github.com/robalobadob/langman/internal/token"
	"github.com/robalobadob/langman/internal/words"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	issuer, err := token.NewIssuer("test-secret", time.Hour, nil)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	db, err := sqldb.Open(sqldb.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	accounts, err := auth.New(context.Background(), db, issuer, zerolog.Nop())
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	reg := prometheus.NewRegistry()
	bank := words.NewMemoryBank([]words.Usage{
		{ID: 1, Language: "en", SecretWord: "dog", Template: "The {word} barked.", Source: "Test"},
	})
	games := play.New(store.NewMemoryStore(), bank, issuer, play.WithMetrics(metrics.New(reg)))

	return New(Deps{
		Games:    games,
		Accounts: accounts,
		Tokens:   issuer,
		Gatherer: reg,
		Logger:   zerolog.Nop(),
	})
}

func do(t *testing.T, s *Server, method, path, tok string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func register(t *testing.T, s *Server, name string) string {
	t.Helper()
	code, body := do(t, s, http.MethodPost, "/api/auth", "", map[string]string{"username": name, "password": "password1"})
	if code != http.StatusOK {
		t.Fatalf("register %s: %d %v", name, code, body)
	}
	return body["access_token"].(string)
}

func startGame(t *testing.T, s *Server, acct string) (string, string) {
	t.Helper()
	code, body := do(t, s, http.MethodPost, "/api/games", acct, map[string]string{"language": "en"})
	if code != http.StatusOK {
		t.Fatalf("start: %d %v", code, body)
	}
	return body["game_id"].(string), body["access_token"].(string)
}

func TestHealthAndRoot(t *testing.T) {
	s := newTestServer(t)
	if code, body := do(t, s, http.MethodGet, "/health", "", nil); code != http.StatusOK || body["ok"] != true {
		t.Fatalf("health: %d %v", code, body)
	}
	if code, body := do(t, s, http.MethodGet, "/", "", nil); code != http.StatusOK || body["service"] != "langman" {
		t.Fatalf("root: %d %v", code, body)
	}
	if code, body := do(t, s, http.MethodGet, "/nope", "", nil); code != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("unknown path: %d %v", code, body)
	}
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	acct := register(t, s, "alice")

	code, body := do(t, s, http.MethodPost, "/api/auth", "", map[string]string{"username": "alice", "password": "password1"})
	if code != http.StatusBadRequest || body["error"] != "username_taken" {
		t.Fatalf("duplicate register: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPost, "/api/auth", "", map[string]string{"username": "bob"})
	if code != http.StatusBadRequest {
		t.Fatalf("register without password: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPut, "/api/auth", "", map[string]string{"username": "alice", "password": "password1"})
	if code != http.StatusOK || body["access_token"] == "" {
		t.Fatalf("login: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/auth", "", map[string]string{"username": "alice", "password": "nope-nope"})
	if code != http.StatusUnauthorized || body["error"] != "invalid_credentials" {
		t.Fatalf("bad login: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodGet, "/api/auth", acct, nil)
	if code != http.StatusOK || body["logged_in_as"] != auth.IdentityFor("alice") {
		t.Fatalf("whoami: %d %v", code, body)
	}
	if claims, _ := body["user_claims"].(map[string]any); claims["name"] != "alice" || claims["access"] != "player" {
		t.Fatalf("whoami claims: %v", body["user_claims"])
	}

	code, body = do(t, s, http.MethodDelete, "/api/auth", acct, nil)
	if code != http.StatusOK || body["deleted_user_id"] != auth.IdentityFor("alice") {
		t.Fatalf("delete account: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodDelete, "/api/auth", acct, nil)
	if code != http.StatusUnauthorized || body["error"] != "account_not_available" {
		t.Fatalf("second delete: %d %v", code, body)
	}
}

func TestTokenRequired(t *testing.T) {
	s := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/auth"},
		{http.MethodPost, "/api/games"},
		{http.MethodGet, "/api/games/x"},
		{http.MethodPut, "/api/games/x"},
		{http.MethodDelete, "/api/games/x"},
		{http.MethodGet, "/api/players/me"},
	} {
		code, body := do(t, s, tc.method, tc.path, "", nil)
		if code != http.StatusUnauthorized || body["error"] != "invalid_token" {
			t.Fatalf("%s %s without token: %d %v", tc.method, tc.path, code, body)
		}
	}
	if code, _ := do(t, s, http.MethodGet, "/api/players/me", "garbage", nil); code != http.StatusUnauthorized {
		t.Fatalf("garbage token accepted: %d", code)
	}
}

func TestGameFlow(t *testing.T) {
	s := newTestServer(t)
	acct := register(t, s, "alice")

	code, body := do(t, s, http.MethodPost, "/api/games", acct, map[string]string{"language": "de"})
	if code != http.StatusBadRequest || body["error"] != "invalid_language" {
		t.Fatalf("bad language: %d %v", code, body)
	}

	id, scoped := startGame(t, s, acct)

	code, body = do(t, s, http.MethodGet, "/api/games/"+id, acct, nil)
	if code != http.StatusOK || body["usage"] != "The ___ barked." || body["result"] != "active" {
		t.Fatalf("read: %d %v", code, body)
	}
	if _, leaked := body["secret_word"]; leaked {
		t.Fatalf("active game exposed its secret: %v", body)
	}
	if body["access_token"] == "" {
		t.Fatalf("read did not return a scoped token: %v", body)
	}

	code, body = do(t, s, http.MethodGet, "/api/games/"+id, scoped, nil)
	if code != http.StatusForbidden || body["error"] != "unauthorized" {
		t.Fatalf("read with scoped token: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, acct, map[string]string{"letter": "d"})
	if code != http.StatusForbidden || body["error"] != "unauthorized" {
		t.Fatalf("guess with account token: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{})
	if code != http.StatusBadRequest || body["error"] != "invalid_input" {
		t.Fatalf("missing letter: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{"letter": "ab"})
	if code != http.StatusBadRequest || body["error"] != "invalid_input" {
		t.Fatalf("two letters: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{"letter": "d"})
	if code != http.StatusOK || body["reveal_word"] != "d__" {
		t.Fatalf("guess d: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{"letter": "D"})
	if code != http.StatusForbidden || body["error"] != "duplicate_guess" {
		t.Fatalf("duplicate: %d %v", code, body)
	}
	do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{"letter": "o"})
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{"letter": "g"})
	if code != http.StatusOK || body["result"] != "won" || body["secret_word"] != "dog" {
		t.Fatalf("winning guess: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{"letter": "x"})
	if code != http.StatusForbidden || body["error"] != "game_over" {
		t.Fatalf("guess after win: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{})
	if code != http.StatusForbidden || body["error"] != "game_over" {
		t.Fatalf("guess without letter after win: %d %v", code, body)
	}

	code, body = do(t, s, http.MethodGet, "/api/players/me", acct, nil)
	if code != http.StatusOK || body["num_games"] != float64(1) {
		t.Fatalf("stats: %d %v", code, body)
	}
	if outcomes, _ := body["outcomes"].(map[string]any); outcomes["won"] != float64(1) || outcomes["active"] != float64(0) {
		t.Fatalf("stats outcomes: %v", body["outcomes"])
	}

	code, body = do(t, s, http.MethodDelete, "/api/games/"+id, scoped, nil)
	if code != http.StatusOK || body["deleted"] != float64(1) {
		t.Fatalf("delete: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodDelete, "/api/games/"+id, scoped, nil)
	if code != http.StatusOK || body["deleted"] != float64(0) || body["message"] != "Zero records deleted" {
		t.Fatalf("second delete: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodGet, "/api/games/"+id, acct, nil)
	if code != http.StatusNotFound {
		t.Fatalf("read after delete: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodPut, "/api/games/"+id, scoped, map[string]string{})
	if code != http.StatusNotFound || body["error"] != "not_found" {
		t.Fatalf("guess without letter after delete: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodGet, "/api/games/"+id, scoped, nil)
	if code != http.StatusForbidden || body["error"] != "unauthorized" {
		t.Fatalf("read of deleted game with scoped token: %d %v", code, body)
	}
}

func TestScopedTokenOnOtherGame(t *testing.T) {
	s := newTestServer(t)
	acct := register(t, s, "alice")
	_, scopedA := startGame(t, s, acct)
	idB, _ := startGame(t, s, acct)

	code, body := do(t, s, http.MethodPut, "/api/games/"+idB, scopedA, map[string]string{"letter": "d"})
	if code != http.StatusForbidden || body["error"] != "unauthorized" {
		t.Fatalf("guess on B with A's token: %d %v", code, body)
	}
	code, body = do(t, s, http.MethodDelete, "/api/games/"+idB, scopedA, nil)
	if code != http.StatusForbidden || body["error"] != "unauthorized" {
		t.Fatalf("delete B with A's token: %d %v", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	acct := register(t, s, "alice")
	startGame(t, s, acct)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `langman_games_started_total{language="en"} 1`) {
		t.Fatalf("metrics missing started counter:\n%s", rec.Body.String())
	}
}

func TestWriteErrorInvariantViolation(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/games/g1", nil)
	rec := httptest.NewRecorder()
	writeError(rec, req, fmt.Errorf("%w: game g1: %w", game.ErrInvariant, stats.ErrInconsistent))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "invariant_violation" {
		t.Fatalf("unexpected error code: %+v", body)
	}
}
