// Package protocol is the JSON wire format between nodes. Every websocket
// frame is one Envelope; calls carry their name in Call and their
// arguments in Payload.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samalo0/Ceremony/internal/combat"
)

// MessageType tags an envelope.
type MessageType string

const (
	TypeHello      MessageType = "hello"
	TypeWelcome    MessageType = "welcome"
	TypeServerCall MessageType = "server_call"
	TypeOwnerCall  MessageType = "owner_call"
	TypeMulticast  MessageType = "multicast"
	TypeState      MessageType = "state"
	TypeSpawn      MessageType = "spawn"
	TypeDespawn    MessageType = "despawn"
	TypeError      MessageType = "error"
)

var (
	ErrUnknownCall = errors.New("unknown call")
	ErrMalformed   = errors.New("malformed message")
)

// Envelope is one frame on the wire.
type Envelope struct {
	Type      MessageType        `json:"type"`
	Character combat.CharacterID `json:"character,omitempty"`
	Call      string             `json:"call,omitempty"`
	Payload   json.RawMessage    `json:"payload,omitempty"`
}

// Hello is the first frame a client sends.
type Hello struct {
	Name string `json:"name"`
}

// Welcome answers Hello with the character the session controls.
type Welcome struct {
	Character combat.CharacterID `json:"character"`
	Session   string             `json:"session"`
	TickRate  int                `json:"tick_rate"`
}

// Spawn introduces a character to a node.
type Spawn struct {
	ID           combat.CharacterID `json:"id"`
	Name         string             `json:"name"`
	PlayerNumber int                `json:"player_number"`
	Location     combat.Vec3        `json:"location"`
	Yaw          float64            `json:"yaw"`
}

// Error reports a refused request.
type Error struct {
	Message string `json:"message"`
}

// =============================================================================
// ENCODING
// =============================================================================

// New builds an envelope around payload.
func New(t MessageType, id combat.CharacterID, call string, payload any) (Envelope, error) {
	env := Envelope{Type: t, Character: id, Call: call}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return env, fmt.Errorf("encode %s %s: %w", t, call, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// ServerCall wraps a server call.
func ServerCall(id combat.CharacterID, call combat.ServerCall) (Envelope, error) {
	return New(TypeServerCall, id, call.ServerCallName(), call)
}

// OwnerCall wraps an owner call.
func OwnerCall(id combat.CharacterID, call combat.OwnerCall) (Envelope, error) {
	return New(TypeOwnerCall, id, call.OwnerCallName(), call)
}

// Multicast wraps a multicast call.
func Multicast(id combat.CharacterID, call combat.MulticastCall) (Envelope, error) {
	return New(TypeMulticast, id, call.MulticastCallName(), call)
}

// State wraps a replication delta.
func State(d combat.StateDelta) (Envelope, error) {
	return New(TypeState, d.ID, "", d)
}

// Marshal encodes an envelope for a text frame.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal decodes a text frame.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env, nil
}

// Decode unmarshals the payload of env into v.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if err := decodeRaw(env.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return v, nil
}

func decodeRaw(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
