package combat

// ShieldParams configure a shield.
type ShieldParams struct {
	Block ShieldBlockParams

	BlockingMontage *Montage
	IdleSection     string // looped while the shield is up
	ExitSection     string

	ImpactMontage *Montage
	ParryMontage  *Montage

	ParryEnduranceConsumption float64
}

// Shield blocks on press1 and parries on press2.
type Shield struct {
	name      string
	params    ShieldParams
	state     EquipmentState
	owner     Owner
	destroyed bool

	parryOnResume bool
}

// NewShield creates an unequipped shield.
func NewShield(name string, params ShieldParams) *Shield {
	return &Shield{name: name, params: params}
}

func (s *Shield) Name() string               { return s.name }
func (s *Shield) Kind() EquipmentKind        { return KindShield }
func (s *Shield) State() EquipmentState      { return s.state }
func (s *Shield) SetState(st EquipmentState) { s.state = st }
func (s *Shield) MeleeLocomotion() bool      { return true }
func (s *Shield) Attach(owner Owner)         { s.owner = owner }
func (s *Shield) Destroy()                   { s.destroyed = true }
func (s *Shield) Destroyed() bool            { return s.destroyed }
func (s *Shield) Params() ShieldParams       { return s.params }

func (s *Shield) leftHanded() bool { return s.state == EquippedLeftHand }

// CancelActions lowers the shield and abandons a parry.
func (s *Shield) CancelActions() {
	if s.owner == nil {
		return
	}
	s.parryOnResume = false

	if s.owner.IsBlocking() {
		s.owner.SetIsBlocking(false, s.leftHanded())
		s.owner.StopMontageGlobally()
	}
	if s.owner.IsParrying() {
		s.owner.SetIsParrying(false)
		s.owner.ClearOnMontageEnded()
		s.owner.StopMontageGlobally()
		s.owner.SetAllowMovement(true)
		s.owner.SetAllowEnduranceRecovery(true)
	}
}

// Shields deal no damage and have no attack chain.

func (s *Shield) CheckForAttackTransition() {}
func (s *Shield) SetAttackCanDamage(bool)   {}
func (s *Shield) Tick(float64)              {}

// AbsorbDamage applies block params to a hit. Physical damage types are
// reduced by PhysicalDefense; anything else passes through, and known
// reports false. Endurance damage is always reduced by Stability.
func AbsorbDamage(p ShieldBlockParams, damage float64, t DamageType, enduranceDamage float64) (out, enduranceOut float64, known bool) {
	switch t {
	case DamageBludgeon, DamagePierce, DamageSlash, DamageKick:
		out = damage * (1 - p.PhysicalDefense)
		known = true
	default:
		out = damage
	}
	return out, enduranceDamage * (1 - p.Stability), known
}

// GetDamageAfterAbsorption is AbsorbDamage with this shield's params. An
// unknown damage type is logged and not absorbed.
func (s *Shield) GetDamageAfterAbsorption(damage float64, t DamageType, enduranceDamage float64) (float64, float64) {
	out, enduranceOut, known := AbsorbDamage(s.params.Block, damage, t, enduranceDamage)
	if !known && s.owner != nil {
		s.owner.Logger().Warn().Str("damage_type", t.String()).Msg("unknown damage type, not absorbed")
	}
	return out, enduranceOut
}

// =============================================================================
// PRESS1: BLOCK
// =============================================================================

// Press1 raises the shield.
func (s *Shield) Press1() {
	if s.owner == nil || !s.owner.CanBlock() {
		return
	}
	s.owner.SetIsBlocking(true, s.leftHanded())
	s.owner.PlayMontageGlobally(s.params.BlockingMontage, "")
}

// Release1 lowers the shield through its exit section.
func (s *Shield) Release1() {
	if s.owner == nil || !s.owner.IsBlocking() {
		return
	}
	s.owner.SetIsBlocking(false, s.leftHanded())
	s.owner.PlayMontageGlobally(s.params.BlockingMontage, s.params.ExitSection)
}

// Resume1 raises the shield again if the button is still held.
func (s *Shield) Resume1(held bool) {
	if held {
		s.Press1()
	}
}

// ShowBlockImpact plays the recoil of a blocked hit, then returns to the
// idle block if the shield is still up.
func (s *Shield) ShowBlockImpact() {
	if s.owner == nil {
		return
	}
	s.owner.PlayMontageGlobally(s.params.ImpactMontage, "")
	s.owner.SetOnMontageEnded(ActionBlockImpact, func(bool) {
		if s.owner.IsBlocking() {
			s.owner.PlayMontageGlobally(s.params.BlockingMontage, s.params.IdleSection)
		}
	})
}

// =============================================================================
// PRESS2: PARRY
// =============================================================================

// Press2 parries, or queues a parry for the next resume.
func (s *Shield) Press2() {
	o := s.owner
	if o == nil {
		return
	}
	if !o.CanPerformStandardAction() {
		s.parryOnResume = true
		return
	}
	o.DepleteEndurance(s.params.ParryEnduranceConsumption)
	o.SetAllowMovement(false)
	o.SetAllowEnduranceRecovery(false)
	o.SetIsParrying(true)
	o.PlayMontageGlobally(s.params.ParryMontage, "")
	o.SetOnMontageEnded(ActionParry, s.onParryEnded)
}

func (s *Shield) onParryEnded(bool) {
	o := s.owner
	o.StopMontageGlobally()
	o.SetIsParrying(false)
	o.SetAllowMovement(true)
	o.SetAllowEnduranceRecovery(true)
}

// Release2 does nothing: a parry is not held.
func (s *Shield) Release2() {}

// Resume2 retries a parry that arrived while the character was busy.
func (s *Shield) Resume2(bool) {
	if s.parryOnResume {
		s.parryOnResume = false
		s.Press2()
	}
}

// A shield is never two-handed.

func (s *Shield) TwoHandPress1()   {}
func (s *Shield) TwoHandRelease1() {}
func (s *Shield) TwoHandPress2()   {}
func (s *Shield) TwoHandRelease2() {}
