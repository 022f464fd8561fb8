// Package combat is the per-character gameplay core: resources, the action
// state machine, equipment sub-state-machines, server-side hit verification,
// lock-on targeting and the replicated state that flows between nodes.
//
// Every type here is driven by a single simulation goroutine per node. Nothing
// in this package is safe for concurrent use.
package combat

import "fmt"

// CharacterID identifies a character across all nodes of a session.
type CharacterID uint32

// DamageType tags the physical nature of a hit.
type DamageType uint8

const (
	DamageBludgeon DamageType = iota
	DamageSlash
	DamagePierce
	DamageKick
)

// String returns a human-readable name for the damage type.
func (d DamageType) String() string {
	switch d {
	case DamageBludgeon:
		return "bludgeon"
	case DamageSlash:
		return "slash"
	case DamagePierce:
		return "pierce"
	case DamageKick:
		return "kick"
	default:
		return fmt.Sprintf("damage(%d)", uint8(d))
	}
}

// EquipmentState describes which hand slot an item occupies.
type EquipmentState uint8

const (
	EquipmentNone EquipmentState = iota
	EquippedRightHand
	EquippedLeftHand
	EquippedTwoHand
)

func (s EquipmentState) String() string {
	switch s {
	case EquipmentNone:
		return "none"
	case EquippedRightHand:
		return "right"
	case EquippedLeftHand:
		return "left"
	case EquippedTwoHand:
		return "two-hand"
	default:
		return fmt.Sprintf("equipment(%d)", uint8(s))
	}
}

// SpecialAttack is the result of the facing check on a standard press.
type SpecialAttack uint8

const (
	SpecialNone SpecialAttack = iota
	SpecialBackStab
	SpecialRiposte
)

func (s SpecialAttack) String() string {
	switch s {
	case SpecialBackStab:
		return "backstab"
	case SpecialRiposte:
		return "riposte"
	default:
		return "none"
	}
}

// Hand selects an equipment slot.
type Hand uint8

const (
	LeftHand Hand = iota
	RightHand
)

func (h Hand) String() string {
	if h == RightHand {
		return "right"
	}
	return "left"
}

// NetRole is the role a character instance plays on its node.
type NetRole uint8

const (
	RoleSimulatedProxy NetRole = iota
	RoleAutonomousProxy
	RoleAuthority
)

func (r NetRole) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleAutonomousProxy:
		return "autonomous"
	default:
		return "simulated"
	}
}

// NetMode is the kind of node the simulation runs on.
type NetMode uint8

const (
	Standalone NetMode = iota
	DedicatedServer
	ListenServer
	Client
)

func (m NetMode) String() string {
	switch m {
	case DedicatedServer:
		return "dedicated"
	case ListenServer:
		return "listen"
	case Client:
		return "client"
	default:
		return "standalone"
	}
}

// Sound names a cue played by the presentation layer.
type Sound string

const (
	SoundNone          Sound = ""
	SoundAttackHit     Sound = "attack_hit"
	SoundBlockAttack   Sound = "block_attack"
	SoundKickBlocked   Sound = "kick_blocked"
	SoundKickInterrupt Sound = "kick_interrupt"
	SoundParry         Sound = "parry"
	SoundFootstep      Sound = "footstep"
	SoundSwing         Sound = "swing"
	SoundBowRelease    Sound = "bow_release"
)
