package combat

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by the verification stages. Callers drop the request and
// log; nothing reaches the player.
var (
	ErrInvalidReference     = errors.New("invalid reference")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrVerificationMismatch = errors.New("verification mismatch")
)

// DamageTransaction is a client's claim that its attack touched a target.
type DamageTransaction struct {
	Target      CharacterID `json:"target"`
	ImpactPoint Vec3        `json:"impact_point"`
	// Packed is (damage, endurance damage, stun time).
	Packed     Vec3  `json:"packed"`
	DamageType uint8 `json:"damage_type"`
}

// NewDamageTransaction builds a transaction with a quantized impact point.
func NewDamageTransaction(target CharacterID, impact Vec3, packed Vec3, t DamageType) DamageTransaction {
	return DamageTransaction{
		Target:      target,
		ImpactPoint: impact.Quantize(),
		Packed:      packed,
		DamageType:  uint8(t),
	}
}

func (tx DamageTransaction) Damage() float64          { return tx.Packed.X }
func (tx DamageTransaction) EnduranceDamage() float64 { return tx.Packed.Y }
func (tx DamageTransaction) StunTime() float64        { return tx.Packed.Z }
func (tx DamageTransaction) Type() DamageType         { return DamageType(tx.DamageType) }

// ValidateTransaction is the wire-level predicate run before any world
// access. It rejects negative or non-finite values.
func ValidateTransaction(tx DamageTransaction) error {
	for _, v := range [...]float64{
		tx.Packed.X, tx.Packed.Y, tx.Packed.Z,
		tx.ImpactPoint.X, tx.ImpactPoint.Y, tx.ImpactPoint.Z,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in transaction", ErrInvalidRequest)
		}
	}
	if tx.Damage() < 0 {
		return fmt.Errorf("%w: negative damage %.2f", ErrInvalidRequest, tx.Damage())
	}
	if tx.EnduranceDamage() < 0 {
		return fmt.Errorf("%w: negative endurance damage %.2f", ErrInvalidRequest, tx.EnduranceDamage())
	}
	if tx.StunTime() < 0 {
		return fmt.Errorf("%w: negative stun time %.2f", ErrInvalidRequest, tx.StunTime())
	}
	return nil
}

// ValidateSpecialDamage is the wire-level predicate for backstab and
// riposte requests.
func ValidateSpecialDamage(damage float64) error {
	if math.IsNaN(damage) || math.IsInf(damage, 0) || damage < 0 {
		return fmt.Errorf("%w: bad special damage %v", ErrInvalidRequest, damage)
	}
	return nil
}

// Reverify re-runs the hit on the authority: a sphere of radius at the
// claimed impact point must contain the claimed target.
func Reverify(world World, attacker *Character, tx DamageTransaction, radius float64) (*Character, error) {
	if world == nil {
		return nil, fmt.Errorf("%w: no world", ErrInvalidReference)
	}
	if attacker == nil {
		return nil, fmt.Errorf("%w: no attacker", ErrInvalidReference)
	}
	target := world.Character(tx.Target)
	if target == nil {
		return nil, fmt.Errorf("%w: unknown target %d", ErrInvalidReference, tx.Target)
	}
	if target == attacker {
		return nil, fmt.Errorf("%w: self hit", ErrInvalidRequest)
	}
	for _, c := range world.OverlapSphere(tx.ImpactPoint, radius, attacker.id) {
		if c == target {
			return target, nil
		}
	}
	return nil, fmt.Errorf("%w: target %d not at impact point", ErrVerificationMismatch, tx.Target)
}
