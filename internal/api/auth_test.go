package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginDisabled(t *testing.T) {
	sm := NewSessionManager("", zerolog.Nop())
	assert.False(t, sm.Enabled())
	_, err := sm.Login("", "1.2.3.4")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}

func TestLoginWrongToken(t *testing.T) {
	sm := NewSessionManager(testToken, zerolog.Nop())
	_, err := sm.Login("wrong", "1.2.3.4")
	assert.ErrorIs(t, err, ErrBadToken)
	_, err = sm.Login("", "1.2.3.4")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	sm := NewSessionManager(testToken, zerolog.Nop())
	s, err := sm.Login(testToken, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", s.RemoteIP)

	rec := httptest.NewRecorder()
	sm.SetSessionCookie(rec, s)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	got := sm.ValidateSession(req)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)
}

func TestTamperedCookie(t *testing.T) {
	sm := NewSessionManager(testToken, zerolog.Nop())
	s, err := sm.Login(testToken, "1.2.3.4")
	require.NoError(t, err)

	other := NewSessionManager(testToken, zerolog.Nop())
	tests := map[string]string{
		"garbage":      "!!!",
		"unsigned":     uuid.New().String(),
		"other secret": other.encodeCookie(s.ID),
		"unknown id":   sm.encodeCookie(uuid.New()),
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: value})
			assert.Nil(t, sm.ValidateSession(req))
		})
	}
}

func TestSessionExpiry(t *testing.T) {
	sm := NewSessionManager(testToken, zerolog.Nop())
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	s, err := sm.Login(testToken, "1.2.3.4")
	require.NoError(t, err)
	assert.NotNil(t, sm.Session(s.ID))

	now = now.Add(SessionDuration + time.Second)
	assert.Nil(t, sm.Session(s.ID))

	// The next login purges it.
	_, err = sm.Login(testToken, "1.2.3.4")
	require.NoError(t, err)
	sm.mu.RLock()
	_, kept := sm.sessions[s.ID]
	sm.mu.RUnlock()
	assert.False(t, kept)
}

func TestLogout(t *testing.T) {
	sm := NewSessionManager(testToken, zerolog.Nop())
	s, err := sm.Login(testToken, "1.2.3.4")
	require.NoError(t, err)
	sm.Logout(s.ID)
	assert.Nil(t, sm.Session(s.ID))
}
