package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/game"
)

func TestHealth(t *testing.T) {
	a := newTestAPI(t, "")
	a.engine.Step(1.0 / 60)

	rec := a.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "dedicated", body["mode"])
	assert.Equal(t, 1.0, body["tick"])
}

func TestGetState(t *testing.T) {
	a := newTestAPI(t, "")
	_, err := a.engine.Join("a", false)
	require.NoError(t, err)
	_, err = a.engine.Join("b", false)
	require.NoError(t, err)
	a.engine.Step(1.0 / 60)

	rec := a.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	snap := decode[game.GameSnapshot](t, rec)
	assert.Equal(t, "dedicated", snap.Mode)
	assert.Equal(t, 2, snap.PlayerCount)
	assert.Equal(t, 2, snap.AliveCount)
	require.Len(t, snap.Characters, 2)
	assert.Equal(t, "a", snap.Characters[0].Name)
	assert.Equal(t, "sword", snap.Characters[0].RightHand)
	assert.Equal(t, 100.0, snap.Characters[1].Health)
}

func TestGetCharacters(t *testing.T) {
	a := newTestAPI(t, "")
	id, err := a.engine.Join("duelist", false)
	require.NoError(t, err)

	rec := a.do(http.MethodGet, "/api/characters", "")
	require.Equal(t, http.StatusOK, rec.Code)
	players := decode[[]game.PlayerInfo](t, rec)
	require.Len(t, players, 1)
	assert.Equal(t, id, players[0].ID)
	assert.Equal(t, "duelist", players[0].Name)
	assert.True(t, players[0].Alive)
}

func TestGetCharacter(t *testing.T) {
	a := newTestAPI(t, "")
	id, err := a.engine.Join("duelist", false)
	require.NoError(t, err)
	a.engine.Step(1.0 / 60)

	rec := a.do(http.MethodGet, "/api/characters/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[game.CharacterSnapshot](t, rec)
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "authority", c.Role)

	tests := []struct {
		path string
		code int
	}{
		{"/api/characters/9", http.StatusNotFound},
		{"/api/characters/0", http.StatusBadRequest},
		{"/api/characters/abc", http.StatusBadRequest},
		{"/api/characters/-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, a.do(http.MethodGet, tt.path, "").Code, tt.path)
	}
}

func TestGetLeaderboard(t *testing.T) {
	a := newTestAPI(t, "")
	for _, name := range []string{"a", "b", "c"} {
		_, err := a.engine.Join(name, false)
		require.NoError(t, err)
	}

	rec := a.do(http.MethodGet, "/api/leaderboard?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]game.LeaderboardEntry](t, rec)
	require.Len(t, board, 2)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, combat.CharacterID(1), board[0].Character)

	rec = a.do(http.MethodGet, "/api/leaderboard", "")
	assert.Len(t, decode[[]game.LeaderboardEntry](t, rec), 3)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/leaderboard?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/leaderboard?limit=x", "").Code)
}

func TestEventStats(t *testing.T) {
	a := newTestAPI(t, "")
	rec := a.do(http.MethodGet, "/api/events/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[game.EventStats](t, rec)
	assert.False(t, stats.Running)
}

func TestMetricsExposed(t *testing.T) {
	a := newTestAPI(t, "")
	a.engine.Step(1.0 / 60)

	rec := a.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ceremony_tick_duration_seconds")
	assert.Contains(t, rec.Body.String(), "ceremony_characters")
}

func TestAdminRoutesOffWithoutToken(t *testing.T) {
	a := newTestAPI(t, "")
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/admin/login", `{"token":""}`).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodPost, "/api/admin/restart", "").Code)
}

func TestAdminRestartRound(t *testing.T) {
	a := newTestAPI(t, testToken)
	_, err := a.engine.Join("a", false)
	require.NoError(t, err)
	a.engine.Step(1.0 / 60)
	before := a.engine.Snapshot().RoundID

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/admin/restart", "").Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/admin/login", `{"token":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/admin/login", `{`).Code)

	cookie := a.login()
	rec := a.do(http.MethodPost, "/api/admin/restart", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]bool](t, rec)["queued"])

	a.engine.Step(1.0 / 60)
	assert.NotEqual(t, before, a.engine.Snapshot().RoundID)
}

func TestAdminRemoveCharacter(t *testing.T) {
	a := newTestAPI(t, testToken)
	id, err := a.engine.Join("a", false)
	require.NoError(t, err)
	cookie := a.login()

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodDelete, "/api/admin/characters/1", "").Code)

	rec := a.do(http.MethodDelete, "/api/admin/characters/1", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, a.engine.Players())
	assert.Equal(t, []combat.CharacterID{id}, a.sessions.closed)

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodDelete, "/api/admin/characters/1", "", cookie).Code)
}

func TestAdminStatusAndLogout(t *testing.T) {
	a := newTestAPI(t, testToken)

	status := decode[AuthStatus](t, a.do(http.MethodGet, "/api/admin/status", ""))
	assert.True(t, status.Enabled)
	assert.False(t, status.Authenticated)

	cookie := a.login()
	status = decode[AuthStatus](t, a.do(http.MethodGet, "/api/admin/status", "", cookie))
	assert.True(t, status.Authenticated)
	assert.NotZero(t, status.ExpiresAt)

	assert.Equal(t, http.StatusNoContent, a.do(http.MethodPost, "/api/admin/logout", "", cookie).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodPost, "/api/admin/restart", "", cookie).Code)
}

func TestRouterRateLimit(t *testing.T) {
	e := newTestEngine(t, nil)
	h := NewRouter(RouterConfig{Engine: e, RateLimiter: testLimiter(t, 0.001, 2), Logger: zerolog.Nop()})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRouterCORS(t *testing.T) {
	a := newTestAPI(t, "")

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/state", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		a.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight("https://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
