package combat

import "errors"

// OutcomeKind classifies what the authority did with a hit claim.
type OutcomeKind uint8

const (
	OutcomeRejected OutcomeKind = iota
	OutcomeInvincible
	OutcomeParryKick // parrying target drained by a kick
	OutcomeParried   // attacker staggered
	OutcomeBlocked
	OutcomeKickStun
	OutcomeHit
	OutcomeBackStab
	OutcomeRiposte
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeRejected:
		return "rejected"
	case OutcomeInvincible:
		return "invincible"
	case OutcomeParryKick:
		return "parry_kick"
	case OutcomeParried:
		return "parried"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeKickStun:
		return "kick_stun"
	case OutcomeHit:
		return "hit"
	case OutcomeBackStab:
		return "backstab"
	case OutcomeRiposte:
		return "riposte"
	default:
		return "unknown"
	}
}

// Stage names the verification stage an outcome came from.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageReverify   Stage = "reverify"
	StageAdjudicate Stage = "adjudicate"
	StageSpecial    Stage = "special"
	StageProjectile Stage = "projectile"
)

// Outcome is the authority's record of one hit claim.
type Outcome struct {
	Kind            OutcomeKind
	Stage           Stage
	Attacker        CharacterID
	Target          CharacterID
	DamageType      DamageType
	Damage          float64 // health damage applied
	EnduranceDamage float64 // endurance damage sent to the target's owner
	TargetHealth    float64
	Killed          bool
	Err             error
}

// =============================================================================
// OVERLAP VERIFICATION
// =============================================================================

// VerifyOverlapForDamage runs the three stages for a hit claim made by c.
// Failures are dropped with a log line.
func (c *Character) VerifyOverlapForDamage(tx DamageTransaction) Outcome {
	if err := ValidateTransaction(tx); err != nil {
		return c.reject(StageValidate, tx.Target, err)
	}
	target, err := Reverify(c.world, c, tx, c.verify.OverlapSphereRadius)
	if err != nil {
		return c.reject(StageReverify, tx.Target, err)
	}
	o := Adjudicate(c, target, tx)
	o.Stage = StageAdjudicate
	c.observer.OnCombatOutcome(o)
	return o
}

func (c *Character) reject(stage Stage, target CharacterID, err error) Outcome {
	ev := c.log.Debug()
	if errors.Is(err, ErrInvalidReference) {
		ev = c.log.Warn()
	}
	ev.Err(err).Str("stage", string(stage)).Uint32("target", uint32(target)).Msg("hit claim dropped")
	o := Outcome{Kind: OutcomeRejected, Stage: stage, Attacker: c.id, Target: target, Err: err}
	c.observer.OnCombatOutcome(o)
	return o
}

// Adjudicate applies a verified hit. Precedence is fixed: invincibility,
// then the parry window, then blocking, then kicks, then a plain hit.
func Adjudicate(attacker, target *Character, tx DamageTransaction) Outcome {
	damage, enduranceDamage, stunTime := tx.Damage(), tx.EnduranceDamage(), tx.StunTime()
	t := tx.Type()
	o := Outcome{Attacker: attacker.id, Target: target.id, DamageType: t}

	switch {
	case target.invincible:
		o.Kind = OutcomeInvincible
		o.TargetHealth = target.health
		return o

	case target.parryCanStagger:
		if t == DamageKick {
			// A parry does not stop a kick, but nothing absorbs it either.
			target.callOwner(ClientDepleteEnduranceCanStagger{Endurance: enduranceDamage})
			attacker.multicast(MulticastPlaySound{Sound: SoundKickInterrupt, Location: attacker.location})
			o.Kind = OutcomeParryKick
			o.EnduranceDamage = enduranceDamage
			o.TargetHealth = target.health
			return o
		}
		attacker.staggered = true
		attacker.callOwner(ClientStaggered{})
		attacker.multicast(MulticastPlaySound{Sound: SoundParry, Location: attacker.location})
		o.Kind = OutcomeParried
		o.TargetHealth = target.health
		return o

	case target.blocking:
		shield := target.shield()
		if shield == nil {
			target.log.Warn().Msg("blocking without a shield")
			o.Kind = OutcomeRejected
			o.Err = ErrInvalidReference
			o.TargetHealth = target.health
			return o
		}
		out, enduranceOut := shield.GetDamageAfterAbsorption(damage, t, enduranceDamage)
		cue := SoundBlockAttack
		if t == DamageKick {
			cue = SoundKickBlocked
		}
		attacker.multicast(MulticastPlaySound{Sound: cue, Location: attacker.location})
		target.applyHealthDamage(out)
		target.callOwner(ClientDepleteEnduranceCanStagger{Endurance: enduranceOut})
		o.Kind = OutcomeBlocked
		o.Damage = out
		o.EnduranceDamage = enduranceOut

	case t == DamageKick:
		target.callOwner(ClientStunned{StunTime: attacker.cfg.KickStunTime})
		attacker.multicast(MulticastPlaySound{Sound: SoundKickInterrupt, Location: attacker.location})
		o.Kind = OutcomeKickStun

	default:
		attacker.multicast(MulticastPlaySound{Sound: SoundAttackHit, Location: attacker.location})
		target.applyHealthDamage(damage)
		if target.health > 0 {
			target.callOwner(ClientStunned{StunTime: stunTime})
		}
		o.Kind = OutcomeHit
		o.Damage = damage
	}

	if target.health == 0 {
		o.Killed = KillCharacter(target)
	}
	o.TargetHealth = target.health
	return o
}

// applyHealthDamage is the only place health goes down. It clamps, shows the
// damage popup everywhere and refreshes a listen server's own widget.
func (c *Character) applyHealthDamage(damage float64) {
	c.multicast(MulticastOpponentDamage{Damage: damage})
	c.health = clamp(c.health-damage, 0, c.cfg.HealthMaximum)
	if c.mode == ListenServer {
		c.OnRepHealth()
	}
}

// =============================================================================
// SPECIAL ATTACKS
// =============================================================================

// VerifyBackStab re-checks a backstab claimed by c against the authoritative
// thresholds. Backstabs ignore shields and parries.
func (c *Character) VerifyBackStab(targetID CharacterID, damage float64) Outcome {
	return c.verifySpecial(targetID, damage, SpecialBackStab)
}

// VerifyRiposte re-checks a riposte claimed by c.
func (c *Character) VerifyRiposte(targetID CharacterID, damage float64) Outcome {
	return c.verifySpecial(targetID, damage, SpecialRiposte)
}

func (c *Character) verifySpecial(targetID CharacterID, damage float64, kind SpecialAttack) Outcome {
	if err := ValidateSpecialDamage(damage); err != nil {
		return c.reject(StageValidate, targetID, err)
	}
	if c.world == nil {
		return c.reject(StageSpecial, targetID, ErrInvalidReference)
	}
	target := c.world.Character(targetID)
	if target == nil || target == c || target.dead {
		return c.reject(StageSpecial, targetID, ErrInvalidReference)
	}

	o := Outcome{Stage: StageSpecial, Attacker: c.id, Target: target.id, TargetHealth: target.health}
	if target.invincible {
		o.Kind = OutcomeInvincible
		c.observer.OnCombatOutcome(o)
		return o
	}

	dot := c.Forward().Dot(target.Forward())
	distance := c.location.DistanceTo(target.location)
	var ok bool
	if kind == SpecialBackStab {
		ok = distance < c.verify.BackStabMaxDistance && dot > c.verify.BackStabMinDotProduct
	} else {
		ok = distance < c.verify.RiposteMaxDistance && dot < c.verify.RiposteMaxDotProduct
	}
	if !ok {
		c.log.Debug().
			Str("special", kind.String()).
			Float64("dot", dot).
			Float64("distance", distance).
			Msg("special attack not confirmed")
		return c.reject(StageSpecial, targetID, ErrVerificationMismatch)
	}

	target.applyHealthDamage(damage)
	o.Damage = damage
	o.Kind = OutcomeBackStab
	if kind == SpecialRiposte {
		o.Kind = OutcomeRiposte
	}
	if target.health == 0 {
		o.Killed = KillCharacter(target)
	} else if kind == SpecialBackStab {
		target.callOwner(ClientBackStabbed{})
	} else {
		target.callOwner(ClientRiposted{})
	}
	o.TargetHealth = target.health
	c.observer.OnCombatOutcome(o)
	return o
}

// =============================================================================
// PROJECTILES
// =============================================================================

// ApplyProjectileHit adjudicates a projectile the authority saw strike a
// character. The geometry was computed here, so there is nothing to
// reverify.
func ApplyProjectileHit(attacker, target *Character, impact Vec3, params RangedAttackParams) Outcome {
	d := params.Damage
	tx := NewDamageTransaction(target.id, impact,
		Pack(d.DamageStandard, d.EnduranceDamageStandard, d.StunTime), d.DamageType)
	if err := ValidateTransaction(tx); err != nil {
		return attacker.reject(StageProjectile, target.id, err)
	}
	if target.dead || !attacker.HasAuthority() {
		return attacker.reject(StageProjectile, target.id, ErrInvalidReference)
	}
	o := Adjudicate(attacker, target, tx)
	o.Stage = StageProjectile
	attacker.observer.OnCombatOutcome(o)
	return o
}

// =============================================================================
// DEATH
// =============================================================================

// KillCharacter puts a character with zero health into its dead state on
// every node. It reports false if the character was already dead.
func KillCharacter(victim *Character) bool {
	if victim == nil || victim.dead || !victim.HasAuthority() {
		return false
	}
	victim.destroyEquipment()
	victim.multicast(MulticastKill{})
	if victim.world != nil {
		victim.world.DestroyCharacter(victim.id, victim.cfg.LifeSpanAfterDeath)
	}
	victim.log.Info().Msg("character killed")
	return true
}
