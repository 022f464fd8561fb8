package game

import (
	"encoding/json"
	"time"

	"github.com/samalo0/Ceremony/internal/combat"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeRoundStart
	EventTypePlayerJoin
	EventTypePlayerLeave
	EventTypeDamage
	EventTypeKill
	EventTypeEvaded
	EventTypeParried
	EventTypeBlocked
	EventTypeBackStab
	EventTypeRiposte
	EventTypeRejected
	EventTypeRespawn
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8              `json:"version"`
	Type      EventType          `json:"type"`
	Name      string             `json:"name"`
	Timestamp int64              `json:"timestamp"` // Unix nano
	Sequence  uint64             `json:"sequence"`
	Tick      uint64             `json:"tick"`
	RoundID   string             `json:"round_id"`
	Character combat.CharacterID `json:"character,omitempty"` // Source, for rate limiting
	Payload   json.RawMessage    `json:"payload,omitempty"`
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeRoundStart:
		return "round_start"
	case EventTypePlayerJoin:
		return "player_join"
	case EventTypePlayerLeave:
		return "player_leave"
	case EventTypeDamage:
		return "damage"
	case EventTypeKill:
		return "kill"
	case EventTypeEvaded:
		return "evaded"
	case EventTypeParried:
		return "parried"
	case EventTypeBlocked:
		return "blocked"
	case EventTypeBackStab:
		return "backstab"
	case EventTypeRiposte:
		return "riposte"
	case EventTypeRejected:
		return "rejected"
	case EventTypeRespawn:
		return "respawn"
	default:
		return "unknown"
	}
}

// EventTypeForOutcome maps a verification outcome to its event type.
func EventTypeForOutcome(o combat.Outcome) EventType {
	if o.Killed {
		return EventTypeKill
	}
	switch o.Kind {
	case combat.OutcomeRejected:
		return EventTypeRejected
	case combat.OutcomeInvincible:
		return EventTypeEvaded
	case combat.OutcomeParried, combat.OutcomeParryKick:
		return EventTypeParried
	case combat.OutcomeBlocked:
		return EventTypeBlocked
	case combat.OutcomeBackStab:
		return EventTypeBackStab
	case combat.OutcomeRiposte:
		return EventTypeRiposte
	default:
		return EventTypeDamage
	}
}

// Typed payloads for different event types

// RoundPayload marks a round boundary.
type RoundPayload struct {
	Reason  string `json:"reason"`
	Players int    `json:"players"`
}

// PlayerPayload contains join, leave and respawn details.
type PlayerPayload struct {
	Character    combat.CharacterID `json:"character"`
	Name         string             `json:"name"`
	PlayerNumber int                `json:"player_number"`
	Location     combat.Vec3        `json:"location"`
}

// OutcomePayload contains a verification outcome.
type OutcomePayload struct {
	Attacker        combat.CharacterID `json:"attacker"`
	Target          combat.CharacterID `json:"target"`
	Outcome         string             `json:"outcome"`
	Stage           string             `json:"stage"`
	DamageType      string             `json:"damage_type"`
	Damage          float64            `json:"damage"`
	EnduranceDamage float64            `json:"endurance_damage"`
	TargetHealth    float64            `json:"target_health"`
	Killed          bool               `json:"killed"`
	Error           string             `json:"error,omitempty"`
}

// NewOutcomePayload flattens an outcome for the log.
func NewOutcomePayload(o combat.Outcome) OutcomePayload {
	p := OutcomePayload{
		Attacker:        o.Attacker,
		Target:          o.Target,
		Outcome:         o.Kind.String(),
		Stage:           string(o.Stage),
		DamageType:      o.DamageType.String(),
		Damage:          o.Damage,
		EnduranceDamage: o.EnduranceDamage,
		TargetHealth:    o.TargetHealth,
		Killed:          o.Killed,
	}
	if o.Err != nil {
		p.Error = o.Err.Error()
	}
	return p
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, tick uint64, roundID string, character combat.CharacterID, payload any) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Name:      eventType.String(),
		Timestamp: time.Now().UnixNano(),
		Tick:      tick,
		RoundID:   roundID,
		Character: character,
		Payload:   EncodePayload(payload),
	}
}
