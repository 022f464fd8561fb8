package game

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
)

const testDT = 1.0 / 60

func testOptions(mode combat.NetMode) Options {
	return Options{
		Config: config.Default(),
		Mode:   mode,
		Logger: zerolog.Nop(),
	}
}

// place moves a character on the tick goroutine.
func place(loc combat.Vec3, yaw float64) func(*combat.Character) {
	return func(c *combat.Character) {
		c.SetLocation(loc)
		c.SetYaw(yaw)
	}
}

func steps(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Step(testDT)
	}
}

// testSession is a dedicated server with loopback clients, stepped in
// lockstep from the test goroutine.
type testSession struct {
	t       *testing.T
	server  *Engine
	loop    *Loopback
	ids     []combat.CharacterID
	clients map[combat.CharacterID]*Engine
}

func newTestSession(t *testing.T, opts Options, names ...string) *testSession {
	t.Helper()
	return newSessionOn(t, NewLoopback(), opts, names...)
}

func newSessionOn(t *testing.T, lb *Loopback, opts Options, names ...string) *testSession {
	t.Helper()
	opts.Mode = combat.DedicatedServer
	opts.Link = lb.ServerLink()
	server := NewEngine(opts)
	lb.Attach(server)

	s := &testSession{
		t:       t,
		server:  server,
		loop:    lb,
		clients: make(map[combat.CharacterID]*Engine),
	}
	for _, name := range names {
		client, id, err := lb.Connect(testOptions(combat.Client), name)
		require.NoError(t, err)
		s.ids = append(s.ids, id)
		s.clients[id] = client
	}
	s.pump(2)
	return s
}

func (s *testSession) client(id combat.CharacterID) *Engine { return s.clients[id] }

// pump steps the server, then every client, n times.
func (s *testSession) pump(n int) {
	for i := 0; i < n; i++ {
		s.server.Step(testDT)
		for _, id := range s.ids {
			if c, ok := s.clients[id]; ok {
				c.Step(testDT)
			}
		}
	}
}

// pumpUntil pumps until cond holds, at most max rounds.
func (s *testSession) pumpUntil(max int, cond func() bool) bool {
	for i := 0; i < max; i++ {
		s.pump(1)
		if cond() {
			return true
		}
	}
	return false
}

// face puts a character at loc facing yaw on the server and, when it has
// a client, on its owner too.
func (s *testSession) face(id combat.CharacterID, loc combat.Vec3, yaw float64) {
	s.server.Control(id, place(loc, yaw))
	if c, ok := s.clients[id]; ok {
		c.Control(0, place(loc, yaw))
	}
}

// recordingMetrics counts what the engine reports.
type recordingMetrics struct {
	mu       sync.Mutex
	ticks    int
	outcomes []combat.Outcome
	calls    map[string]int
	dropped  int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{calls: make(map[string]int)}
}

func (m *recordingMetrics) ObserveTick(time.Duration, int, int) {
	m.mu.Lock()
	m.ticks++
	m.mu.Unlock()
}

func (m *recordingMetrics) CountOutcome(o combat.Outcome) {
	m.mu.Lock()
	m.outcomes = append(m.outcomes, o)
	m.mu.Unlock()
}

func (m *recordingMetrics) CountCall(direction, name string) {
	m.mu.Lock()
	m.calls[direction+":"+name]++
	m.mu.Unlock()
}

func (m *recordingMetrics) CountDroppedCommand() {
	m.mu.Lock()
	m.dropped++
	m.mu.Unlock()
}

func (m *recordingMetrics) kinds() []combat.OutcomeKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]combat.OutcomeKind, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		out = append(out, o.Kind)
	}
	return out
}

// decodeEvents parses a JSONL event stream.
func decodeEvents(t *testing.T, buf *bytes.Buffer) []Event {
	t.Helper()
	var events []Event
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	return events
}

func eventNames(events []Event) []string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	return names
}
