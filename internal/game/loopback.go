package game

import (
	"sync"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/protocol"
)

// Loopback connects a server engine to client engines in one process. It
// routes messages the way the websocket hub does. A wire loopback also
// encodes every message to JSON and back.
type Loopback struct {
	mu      sync.Mutex
	server  *Engine
	clients map[combat.CharacterID]*Engine
	wire    bool
}

// NewLoopback creates an empty loopback.
func NewLoopback() *Loopback {
	return &Loopback{clients: make(map[combat.CharacterID]*Engine)}
}

// NewWireLoopback creates a loopback that round-trips every message
// through the protocol encoding.
func NewWireLoopback() *Loopback {
	l := NewLoopback()
	l.wire = true
	return l
}

// ServerLink is the link to give the server engine.
func (l *Loopback) ServerLink() Link { return LinkFunc(l.fromServer) }

// Attach sets the server engine.
func (l *Loopback) Attach(server *Engine) {
	l.mu.Lock()
	l.server = server
	l.mu.Unlock()
}

// Connect creates a client engine and joins it to the server under name.
func (l *Loopback) Connect(opts Options, name string) (*Engine, combat.CharacterID, error) {
	var self combat.CharacterID
	opts.Mode = combat.Client
	opts.Link = LinkFunc(func(batch []Outgoing) {
		l.mu.Lock()
		server := l.server
		l.mu.Unlock()
		for _, out := range batch {
			// A session may only speak for its own character.
			if out.Kind != OutServerCall || out.Character != self {
				continue
			}
			cmd := Command{Kind: CommandServerCall, Character: out.Character, Server: out.Server}
			if l.wire {
				var ok bool
				if cmd, ok = throughWire(out, false); !ok {
					continue
				}
			}
			server.Submit(cmd)
		}
	})
	client := NewEngine(opts)

	l.mu.Lock()
	server := l.server
	l.mu.Unlock()
	id, err := server.JoinSession(name, func(id combat.CharacterID) {
		self = id
		client.Submit(Command{Kind: CommandWelcome, Character: id})
		l.mu.Lock()
		l.clients[id] = client
		l.mu.Unlock()
	})
	if err != nil {
		return nil, 0, err
	}
	return client, id, nil
}

// Disconnect drops a client and removes its player from the server.
func (l *Loopback) Disconnect(id combat.CharacterID) {
	l.mu.Lock()
	delete(l.clients, id)
	server := l.server
	l.mu.Unlock()
	server.Leave(id)
}

func (l *Loopback) fromServer(batch []Outgoing) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, out := range batch {
		if out.To != 0 {
			if c, ok := l.clients[out.To]; ok {
				l.deliver(c, out.To, out)
			}
			continue
		}
		for id, c := range l.clients {
			l.deliver(c, id, out)
		}
	}
}

func (l *Loopback) deliver(c *Engine, self combat.CharacterID, out Outgoing) {
	if !l.wire {
		deliverToClient(c, self, out)
		return
	}
	if cmd, ok := throughWire(out, out.Character == self); ok {
		c.Submit(cmd)
	}
}

// throughWire encodes out as a session would receive it and decodes the
// frame again. Invisible or undecodable messages are dropped.
func throughWire(out Outgoing, toOwner bool) (Command, bool) {
	env, ok, err := EncodeOutgoing(out, toOwner)
	if err != nil || !ok {
		return Command{}, false
	}
	data, err := protocol.Marshal(env)
	if err != nil {
		return Command{}, false
	}
	env, err = protocol.Unmarshal(data)
	if err != nil {
		return Command{}, false
	}
	cmd, err := DecodeCommand(env)
	if err != nil {
		return Command{}, false
	}
	return cmd, true
}

// deliverToClient turns an outgoing message into the command the client
// with character self receives.
func deliverToClient(c *Engine, self combat.CharacterID, out Outgoing) {
	switch out.Kind {
	case OutSpawn:
		c.Submit(Command{Kind: CommandSpawn, Character: out.Character, Spawn: out.Spawn})
	case OutDespawn:
		c.Submit(Command{Kind: CommandDespawn, Character: out.Character})
	case OutOwnerCall:
		c.Submit(Command{Kind: CommandOwnerCall, Character: out.Character, Owner: out.Owner})
	case OutMulticast:
		c.Submit(Command{Kind: CommandMulticast, Character: out.Character, Multicast: out.Multicast})
	case OutState:
		d := out.Delta
		d.Mask = d.Mask.Visible(d.ID == self)
		if d.Mask != 0 {
			c.Submit(Command{Kind: CommandState, Character: d.ID, Delta: d})
		}
	}
}
