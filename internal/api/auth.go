package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// SessionCookieName is the admin session cookie.
	SessionCookieName = "ceremony_admin"

	// SessionDuration is how long an admin login lasts.
	SessionDuration = 12 * time.Hour
)

var (
	ErrAdminDisabled = errors.New("admin disabled")
	ErrBadToken      = errors.New("bad admin token")
	errBadCookie     = errors.New("invalid session cookie")
)

// AdminSession is one logged-in admin.
type AdminSession struct {
	ID        uuid.UUID `json:"id"`
	RemoteIP  string    `json:"remote_ip"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager authenticates admins against a shared token and tracks
// their sessions in signed cookies.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*AdminSession

	token     []byte
	secretKey []byte
	secure    bool
	now       func() time.Time
	log       zerolog.Logger
}

// NewSessionManager creates a manager for token. An empty token disables
// admin access entirely.
func NewSessionManager(token string, log zerolog.Logger) *SessionManager {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		// Still unique per token; sessions just survive restarts.
		sum := sha256.Sum256([]byte("ceremony-session:" + token))
		secret = sum[:]
	}
	return &SessionManager{
		sessions:  make(map[uuid.UUID]*AdminSession),
		token:     []byte(token),
		secretKey: secret,
		now:       time.Now,
		log:       log,
	}
}

// SetSecureCookies marks cookies Secure, for deployments behind HTTPS.
func (sm *SessionManager) SetSecureCookies(secure bool) { sm.secure = secure }

// Enabled reports whether an admin token is configured.
func (sm *SessionManager) Enabled() bool { return len(sm.token) > 0 }

// Login checks token and opens a session.
func (sm *SessionManager) Login(token, ip string) (*AdminSession, error) {
	if !sm.Enabled() {
		return nil, ErrAdminDisabled
	}
	if !hmac.Equal(digest(token), digest(string(sm.token))) {
		sm.log.Warn().Str("ip", ip).Msg("Admin login rejected")
		return nil, ErrBadToken
	}

	now := sm.now()
	s := &AdminSession{
		ID:        uuid.New(),
		RemoteIP:  ip,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionDuration),
	}

	sm.mu.Lock()
	for id, old := range sm.sessions {
		if now.After(old.ExpiresAt) {
			delete(sm.sessions, id)
		}
	}
	sm.sessions[s.ID] = s
	sm.mu.Unlock()

	sm.log.Info().Str("session", s.ID.String()).Str("ip", ip).Msg("Admin session created")
	return s, nil
}

func digest(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

// Session returns a live session by id.
func (sm *SessionManager) Session(id uuid.UUID) *AdminSession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	if !ok || sm.now().After(s.ExpiresAt) {
		return nil
	}
	return s
}

// Logout ends a session.
func (sm *SessionManager) Logout(id uuid.UUID) {
	sm.mu.Lock()
	delete(sm.sessions, id)
	sm.mu.Unlock()
}

// ValidateSession returns the session behind the request cookie, if any.
func (sm *SessionManager) ValidateSession(r *http.Request) *AdminSession {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}
	id, err := sm.decodeCookie(cookie.Value)
	if err != nil {
		return nil
	}
	return sm.Session(id)
}

// SetSessionCookie writes the signed cookie for s.
func (sm *SessionManager) SetSessionCookie(w http.ResponseWriter, s *AdminSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sm.encodeCookie(s.ID),
		Path:     "/",
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the cookie.
func (sm *SessionManager) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// encodeCookie returns base64(id "." hex(hmac(id))).
func (sm *SessionManager) encodeCookie(id uuid.UUID) string {
	raw := id.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw + "." + sm.sign(raw)))
}

func (sm *SessionManager) decodeCookie(value string) (uuid.UUID, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return uuid.Nil, errBadCookie
	}
	raw, sig, ok := strings.Cut(string(decoded), ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(sm.sign(raw))) {
		return uuid.Nil, errBadCookie
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errBadCookie
	}
	return id, nil
}

func (sm *SessionManager) sign(raw string) string {
	mac := hmac.New(sha256.New, sm.secretKey)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// AdminAuthMiddleware requires a valid admin session.
func (sm *SessionManager) AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sm.ValidateSession(r) == nil {
			RecordConnectionRejected(RejectUnauthorize)
			writeError(w, "admin authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthStatus reports whether the caller is logged in.
type AuthStatus struct {
	Enabled       bool  `json:"enabled"`
	Authenticated bool  `json:"authenticated"`
	ExpiresAt     int64 `json:"expires_at,omitempty"`
}

// HandleLogin exchanges {"token": ...} for a session cookie.
func (sm *SessionManager) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, "invalid request", http.StatusBadRequest)
		return
	}
	s, err := sm.Login(req.Token, GetClientIP(r))
	switch {
	case errors.Is(err, ErrAdminDisabled):
		writeError(w, "admin disabled", http.StatusNotFound)
		return
	case err != nil:
		RecordConnectionRejected(RejectUnauthorize)
		writeError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	sm.SetSessionCookie(w, s)
	writeJSON(w, AuthStatus{Enabled: true, Authenticated: true, ExpiresAt: s.ExpiresAt.Unix()})
}

// HandleAuthStatus returns the caller's auth status.
func (sm *SessionManager) HandleAuthStatus(w http.ResponseWriter, r *http.Request) {
	status := AuthStatus{Enabled: sm.Enabled()}
	if s := sm.ValidateSession(r); s != nil {
		status.Authenticated = true
		status.ExpiresAt = s.ExpiresAt.Unix()
	}
	writeJSON(w, status)
}

// HandleLogout ends the caller's session.
func (sm *SessionManager) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if id, err := sm.decodeCookie(cookie.Value); err == nil {
			sm.Logout(id)
		}
	}
	sm.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
