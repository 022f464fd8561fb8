package api

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game"
	"github.com/samalo0/Ceremony/internal/protocol"
)

const (
	// MaxWSConnectionsTotal caps open websocket connections, joined or not.
	MaxWSConnectionsTotal = 256

	// MaxWSConnectionsPerIP caps connections from one address.
	MaxWSConnectionsPerIP = 8

	// MaxNameLength is the longest accepted player name, in runes.
	MaxNameLength = 24

	sendBuffer     = 512
	maxFrameBytes  = 8 << 10
	helloTimeout   = 5 * time.Second
	writeWait      = 5 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = pongWait * 9 / 10
	closeGraceTime = time.Second
)

// GameServer is the engine side of the hub.
type GameServer interface {
	JoinSession(name string, attach func(combat.CharacterID)) (combat.CharacterID, error)
	Leave(id combat.CharacterID) bool
	Submit(cmd game.Command) bool
}

// wsSession is one joined websocket connection.
type wsSession struct {
	id        uuid.UUID
	character combat.CharacterID
	conn      *websocket.Conn
	ip        string
	send      chan []byte
	limiter   *SessionLimiter
	engine    GameServer
	log       zerolog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// close stops the writer, which then closes the connection.
func (s *wsSession) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// WebSocketHub routes engine output to websocket sessions and session
// server calls into the engine. It implements game.Link.
type WebSocketHub struct {
	mu       sync.RWMutex
	sessions map[combat.CharacterID]*wsSession
	open     int

	engine   GameServer
	limits   config.ResourceLimits
	tickRate int
	origins  []string
	perIP    *ConnectionLimiter
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewWebSocketHub creates a hub. Attach the engine before serving.
func NewWebSocketHub(cfg config.AppConfig, origins []string, log zerolog.Logger) *WebSocketHub {
	if origins == nil {
		origins = DefaultOrigins
	}
	h := &WebSocketHub{
		sessions: make(map[combat.CharacterID]*wsSession),
		limits:   cfg.Limits,
		tickRate: cfg.Server.TickRate,
		origins:  origins,
		perIP:    NewConnectionLimiter(MaxWSConnectionsPerIP),
		log:      log.With().Str("component", "websocket").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if IsAllowedOrigin(h.origins, origin) {
				return true
			}
			h.log.Warn().Str("origin", origin).Msg("websocket origin rejected")
			RecordConnectionRejected(RejectOrigin)
			return false
		},
	}
	return h
}

// Attach sets the engine sessions join.
func (h *WebSocketHub) Attach(engine GameServer) {
	h.mu.Lock()
	h.engine = engine
	h.mu.Unlock()
}

// SessionCount returns the number of joined sessions.
func (h *WebSocketHub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Deliver implements game.Link. It runs on the tick goroutine and never
// blocks: a session whose buffer is full is disconnected.
func (h *WebSocketHub) Deliver(batch []game.Outgoing) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.sessions) == 0 {
		return
	}
	for _, out := range batch {
		if out.Kind == game.OutServerCall {
			continue
		}
		if out.To != 0 {
			if s, ok := h.sessions[out.To]; ok {
				h.deliver(s, out)
			}
			continue
		}
		// Encode once per audience: the owner sees a narrower state delta.
		var shared []byte
		for _, s := range h.sessions {
			if out.Kind == game.OutState && s.character == out.Character {
				h.deliver(s, out)
				continue
			}
			if shared == nil {
				data, ok := h.encode(out, false)
				if !ok {
					break
				}
				shared = data
			}
			h.push(s, shared)
		}
	}
}

func (h *WebSocketHub) deliver(s *wsSession, out game.Outgoing) {
	if data, ok := h.encode(out, out.Character == s.character); ok {
		h.push(s, data)
	}
}

func (h *WebSocketHub) encode(out game.Outgoing, toOwner bool) ([]byte, bool) {
	env, ok, err := game.EncodeOutgoing(out, toOwner)
	if err != nil {
		h.log.Warn().Err(err).Stringer("kind", out.Kind).Msg("encode failed")
		return nil, false
	}
	if !ok {
		return nil, false
	}
	data, err := protocol.Marshal(env)
	if err != nil {
		h.log.Warn().Err(err).Stringer("kind", out.Kind).Msg("marshal failed")
		return nil, false
	}
	return data, true
}

func (h *WebSocketHub) push(s *wsSession, data []byte) {
	select {
	case s.send <- data:
	case <-s.done:
	default:
		s.log.Warn().Msg("send buffer full, disconnecting")
		RecordConnectionRejected(RejectSlowClient)
		s.close()
	}
}

// CloseSession disconnects the session controlling id.
func (h *WebSocketHub) CloseSession(id combat.CharacterID) bool {
	h.mu.RLock()
	s, ok := h.sessions[id]
	h.mu.RUnlock()
	if ok {
		s.close()
	}
	return ok
}

// Shutdown disconnects every session.
func (h *WebSocketHub) Shutdown() {
	h.mu.RLock()
	for _, s := range h.sessions {
		s.close()
	}
	h.mu.RUnlock()
}

// HandleWebSocket upgrades the request and runs the session until the
// connection ends.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.Lock()
	if h.open >= MaxWSConnectionsTotal {
		h.mu.Unlock()
		h.log.Warn().Int("open", MaxWSConnectionsTotal).Msg("websocket rejected: total limit reached")
		RecordConnectionRejected(RejectWSTotal)
		writeError(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	h.open++
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.open--
		h.mu.Unlock()
	}()

	if !h.perIP.Acquire(ip) {
		h.log.Warn().Str("ip", ip).Msg("websocket rejected: per-IP limit reached")
		RecordConnectionRejected(RejectWSPerIP)
		writeError(w, "too many connections from your address", http.StatusTooManyRequests)
		return
	}
	defer h.perIP.Release(ip)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("ip", ip).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	s, err := h.join(conn, ip)
	if err != nil {
		h.refuse(conn, err)
		return
	}

	go h.writePump(s)
	h.readPump(s)

	s.close()
	h.mu.Lock()
	delete(h.sessions, s.character)
	count := len(h.sessions)
	h.mu.Unlock()
	UpdateWSConnections(count)

	// Outside the hub lock: Leave takes the engine lock, which Deliver
	// holds while taking ours.
	s.engine.Leave(s.character)
	s.log.Info().Int("sessions", count).Msg("Session ended")
}

var (
	errNoHello  = errors.New("expected hello")
	errBadName  = errors.New("invalid name")
	errDetached = errors.New("server not ready")
)

// join waits for hello and seats the player.
func (h *WebSocketHub) join(conn *websocket.Conn, ip string) (*wsSession, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, errNoHello
	}
	env, err := protocol.Unmarshal(data)
	if err != nil || env.Type != protocol.TypeHello {
		RecordConnectionRejected(RejectMalformed)
		return nil, errNoHello
	}
	hello, err := protocol.Decode[protocol.Hello](env)
	if err != nil {
		RecordConnectionRejected(RejectMalformed)
		return nil, errNoHello
	}
	name := strings.TrimSpace(hello.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return nil, errBadName
	}

	h.mu.RLock()
	engine := h.engine
	h.mu.RUnlock()
	if engine == nil {
		return nil, errDetached
	}

	s := &wsSession{
		id:      uuid.New(),
		conn:    conn,
		ip:      ip,
		send:    make(chan []byte, sendBuffer),
		limiter: NewSessionLimiter(h.limits),
		engine:  engine,
		done:    make(chan struct{}),
	}
	_, err = engine.JoinSession(name, func(id combat.CharacterID) {
		s.character = id
		s.log = h.log.With().Str("session", s.id.String()).Uint32("character", uint32(id)).Logger()
		welcome, err := protocol.New(protocol.TypeWelcome, id, "", protocol.Welcome{
			Character: id,
			Session:   s.id.String(),
			TickRate:  h.tickRate,
		})
		if err == nil {
			if data, err := protocol.Marshal(welcome); err == nil {
				s.send <- data
			}
		}
		h.mu.Lock()
		h.sessions[id] = s
		h.mu.Unlock()
	})
	if err != nil {
		return nil, err
	}

	UpdateWSConnections(h.SessionCount())
	s.log.Info().Str("name", name).Str("ip", s.ip).Msg("Session joined")
	return s, nil
}

// refuse tells the peer why it was not seated.
func (h *WebSocketHub) refuse(conn *websocket.Conn, reason error) {
	h.log.Info().Err(reason).Msg("websocket session refused")
	env, err := protocol.New(protocol.TypeError, 0, "", protocol.Error{Message: reason.Error()})
	if err != nil {
		return
	}
	data, err := protocol.Marshal(env)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, data)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason.Error()),
		time.Now().Add(closeGraceTime))
}

// readPump turns frames into engine commands until the connection fails.
func (h *WebSocketHub) readPump(s *wsSession) {
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		CountWSMessage("in")

		env, err := protocol.Unmarshal(data)
		if err != nil {
			RecordConnectionRejected(RejectMalformed)
			continue
		}
		if env.Type != protocol.TypeServerCall {
			s.log.Debug().Str("type", string(env.Type)).Msg("unexpected frame ignored")
			continue
		}
		if !s.limiter.Allow(env.Call) {
			RecordConnectionRejected(RejectRPCLimit)
			continue
		}
		// A session may only speak for its own character.
		if env.Character != s.character {
			RecordConnectionRejected(RejectImpersonate)
			s.log.Warn().Uint32("claimed", uint32(env.Character)).Msg("server call for another character dropped")
			continue
		}
		cmd, err := game.DecodeCommand(env)
		if err != nil {
			RecordConnectionRejected(RejectMalformed)
			s.log.Debug().Err(err).Str("call", env.Call).Msg("undecodable server call")
			continue
		}
		s.engine.Submit(cmd)

		select {
		case <-s.done:
			return
		default:
		}
	}
}

// writePump drains the send buffer and keeps the connection alive. It owns
// all writes after join.
func (h *WebSocketHub) writePump(s *wsSession) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks readPump.
		_ = s.conn.Close()
	}()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			CountWSMessage("out")
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeGraceTime))
			return
		}
	}
}
