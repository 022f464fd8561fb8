package game

import (
	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/protocol"
)

// CommandKind selects what a queued command does on the tick goroutine.
type CommandKind uint8

const (
	// Server side.
	CommandServerCall CommandKind = iota
	CommandRestartRound

	// Client side.
	CommandWelcome
	CommandSpawn
	CommandDespawn
	CommandOwnerCall
	CommandMulticast
	CommandState

	// Either side.
	CommandControl
)

func (k CommandKind) String() string {
	switch k {
	case CommandServerCall:
		return "server_call"
	case CommandRestartRound:
		return "restart_round"
	case CommandWelcome:
		return "welcome"
	case CommandSpawn:
		return "spawn"
	case CommandDespawn:
		return "despawn"
	case CommandOwnerCall:
		return "owner_call"
	case CommandMulticast:
		return "multicast"
	case CommandState:
		return "state"
	case CommandControl:
		return "control"
	default:
		return "unknown"
	}
}

// Command is work handed to the tick goroutine. Only the fields of Kind
// are read.
type Command struct {
	Kind      CommandKind
	Character combat.CharacterID

	Server    combat.ServerCall
	Owner     combat.OwnerCall
	Multicast combat.MulticastCall
	Delta     combat.StateDelta
	Spawn     protocol.Spawn

	// Control runs against Character, or the local character when
	// Character is zero.
	Control func(*combat.Character)
}

// OutKind selects what an outgoing message carries.
type OutKind uint8

const (
	OutServerCall OutKind = iota
	OutOwnerCall
	OutMulticast
	OutState
	OutSpawn
	OutDespawn
)

func (k OutKind) String() string {
	switch k {
	case OutServerCall:
		return "server_call"
	case OutOwnerCall:
		return "owner_call"
	case OutMulticast:
		return "multicast"
	case OutState:
		return "state"
	case OutSpawn:
		return "spawn"
	case OutDespawn:
		return "despawn"
	default:
		return "unknown"
	}
}

// Outgoing is one message produced by a tick. To is the character whose
// controlling session receives it; zero means every session.
//
// State deltas are not narrowed here: the link applies
// Delta.Mask.Visible for each recipient.
type Outgoing struct {
	Kind      OutKind
	To        combat.CharacterID
	Character combat.CharacterID

	Server    combat.ServerCall
	Owner     combat.OwnerCall
	Multicast combat.MulticastCall
	Delta     combat.StateDelta
	Spawn     protocol.Spawn
}

// Link carries a tick's outgoing messages off the node. Deliver is called
// on the tick goroutine with the engine lock held; it must not block and
// must not keep the slice.
type Link interface {
	Deliver(batch []Outgoing)
}

type nopLink struct{}

func (nopLink) Deliver([]Outgoing) {}

// LinkFunc adapts a function to Link.
type LinkFunc func([]Outgoing)

func (f LinkFunc) Deliver(batch []Outgoing) { f(batch) }

// engineTransport implements combat.Transport by queueing on the outbox.
type engineTransport Engine

func (t *engineTransport) SendServer(id combat.CharacterID, call combat.ServerCall) {
	e := (*Engine)(t)
	e.metrics.CountCall("out", call.ServerCallName())
	e.emit(Outgoing{Kind: OutServerCall, Character: id, Server: call})
}

func (t *engineTransport) SendOwner(id combat.CharacterID, call combat.OwnerCall) {
	e := (*Engine)(t)
	e.metrics.CountCall("out", call.OwnerCallName())
	e.emit(Outgoing{Kind: OutOwnerCall, To: id, Character: id, Owner: call})
}

func (t *engineTransport) SendMulticast(id combat.CharacterID, call combat.MulticastCall) {
	e := (*Engine)(t)
	e.metrics.CountCall("out", call.MulticastCallName())
	e.emit(Outgoing{Kind: OutMulticast, Character: id, Multicast: call})
}
