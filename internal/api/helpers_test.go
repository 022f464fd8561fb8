package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game"
)

const testToken = "let-me-in"

func newTestEngine(t *testing.T, link game.Link) *game.Engine {
	t.Helper()
	e := game.NewEngine(game.Options{
		Config:  config.Default(),
		Mode:    combat.DedicatedServer,
		Logger:  zerolog.Nop(),
		Link:    link,
		Metrics: PromMetrics{},
	})
	t.Cleanup(e.Stop)
	return e
}

func testLimiter(t *testing.T, rps float64, burst int) *IPRateLimiter {
	t.Helper()
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: rps, Burst: burst, CleanupInterval: time.Minute})
	t.Cleanup(rl.Stop)
	return rl
}

// fakeSessions records CloseSession calls.
type fakeSessions struct {
	mu     sync.Mutex
	closed []combat.CharacterID
}

func (f *fakeSessions) CloseSession(id combat.CharacterID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, id)
	return true
}

type testAPI struct {
	t        *testing.T
	engine   *game.Engine
	sessions *fakeSessions
	handler  http.Handler
}

func newTestAPI(t *testing.T, token string) *testAPI {
	t.Helper()
	e := newTestEngine(t, nil)
	sessions := &fakeSessions{}
	return &testAPI{
		t:        t,
		engine:   e,
		sessions: sessions,
		handler: NewRouter(RouterConfig{
			Engine:        e,
			Sessions:      sessions,
			Admin:         NewSessionManager(token, zerolog.Nop()),
			RateLimiter:   testLimiter(t, 1000, 1000),
			ExposeMetrics: true,
			Logger:        zerolog.Nop(),
		}),
	}
}

func (a *testAPI) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login() *http.Cookie {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/admin/login", `{"token":"`+testToken+`"}`)
	require.Equal(a.t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	a.t.Fatal("no session cookie")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
