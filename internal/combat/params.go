package combat

// DamageParams are the damage characteristics of one attack.
type DamageParams struct {
	BackStabMultiplier          float64    `json:"back_stab_multiplier"`
	DamageStandard              float64    `json:"damage_standard"`
	DamageFullyCharged          float64    `json:"damage_fully_charged"` // charged attacks only
	DamageType                  DamageType `json:"damage_type"`
	EnduranceDamageStandard     float64    `json:"endurance_damage_standard"`
	EnduranceDamageFullyCharged float64    `json:"endurance_damage_fully_charged"` // charged attacks only
	RiposteMultiplier           float64    `json:"riposte_multiplier"`
	StunTime                    float64    `json:"stun_time"`
}

// DefaultDamageParams returns the baseline slash.
func DefaultDamageParams() DamageParams {
	return DamageParams{
		BackStabMultiplier:          3.0,
		DamageStandard:              10.0,
		DamageFullyCharged:          30.0,
		DamageType:                  DamageSlash,
		EnduranceDamageStandard:     40.0,
		EnduranceDamageFullyCharged: 80.0,
		RiposteMultiplier:           4.0,
		StunTime:                    0.5,
	}
}

// StandardAttackParams describe a single-press attack.
type StandardAttackParams struct {
	Damage               DamageParams
	EnduranceConsumption float64
	Montage              *Montage
	// JumpSection is where a chained attack enters the montage, skipping
	// its wind-up. Empty plays from the start.
	JumpSection string
}

// ChargedAttackParams describe a hold-to-charge attack.
type ChargedAttackParams struct {
	AttackMontage               *Montage
	ChargeMontage               *Montage // loops while charging
	ChargeSeconds               float64
	Damage                      DamageParams
	EnduranceConsumptionMaximum float64
	EnduranceConsumptionMinimum float64
}

// ChargeResult is a charged attack resolved at release.
type ChargeResult struct {
	Alpha           float64
	Damage          float64
	EnduranceDamage float64
	EnduranceCost   float64
	StunTime        float64
	DamageType      DamageType
}

// Resolve interpolates between the standard and fully charged values by the
// elapsed charge time clamped to [0, ChargeSeconds].
func (p ChargedAttackParams) Resolve(elapsed float64) ChargeResult {
	alpha := 1.0
	if p.ChargeSeconds > 0 {
		alpha = clamp(elapsed, 0, p.ChargeSeconds) / p.ChargeSeconds
	}
	return ChargeResult{
		Alpha:           alpha,
		Damage:          lerp(p.Damage.DamageStandard, p.Damage.DamageFullyCharged, alpha),
		EnduranceDamage: lerp(p.Damage.EnduranceDamageStandard, p.Damage.EnduranceDamageFullyCharged, alpha),
		EnduranceCost:   lerp(p.EnduranceConsumptionMinimum, p.EnduranceConsumptionMaximum, alpha),
		StunTime:        p.Damage.StunTime,
		DamageType:      p.Damage.DamageType,
	}
}

// RangedAttackParams describe a draw-and-release attack.
type RangedAttackParams struct {
	Damage               DamageParams
	EnduranceConsumption float64
	AttackMontage        *Montage
	PrepareMontage       *Montage
	ProjectileSpeed      float64 // cm/s
}

// ShieldBlockParams describe how much a raised shield absorbs.
type ShieldBlockParams struct {
	// Health damage taken while blocking = damage * (1 - PhysicalDefense).
	PhysicalDefense float64
	// Endurance damage taken while blocking = enduranceDamage * (1 - Stability).
	Stability float64
}

// DefaultShieldBlockParams returns the baseline shield.
func DefaultShieldBlockParams() ShieldBlockParams {
	return ShieldBlockParams{
		PhysicalDefense: 0.5,
		Stability:       0.3,
	}
}

// Pack returns the (damage, endurance damage, stun time) triple carried by a
// damage transaction.
func Pack(damage, enduranceDamage, stunTime float64) Vec3 {
	return Vec3{X: damage, Y: enduranceDamage, Z: stunTime}
}
