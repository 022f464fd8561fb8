package combat

// MeleeParams configure a melee weapon.
type MeleeParams struct {
	Press1        []StandardAttackParams // combo chain
	Press1Running StandardAttackParams
	Press2        ChargedAttackParams
	Press2Jumping StandardAttackParams // press2 while running

	BackStabMontage              *Montage
	BackStabEnduranceConsumption float64
	RiposteMontage               *Montage
	RiposteEnduranceConsumption  float64

	// Client-side special attack hints. The authority re-checks with its
	// own thresholds.
	SpecialAttackReach        float64
	BackStabDotProductMinimum float64
	RiposteDotProductMaximum  float64

	// Hit volume: a sphere of HitRadius, Reach ahead of the owner.
	Reach     float64
	HitRadius float64

	MeleeLocomotion bool
}

// mirrored returns the params with every montage mirrored for the left hand.
func (p MeleeParams) mirrored() MeleeParams {
	out := p
	out.Press1 = make([]StandardAttackParams, len(p.Press1))
	for i, a := range p.Press1 {
		a.Montage = a.Montage.Mirrored()
		out.Press1[i] = a
	}
	out.Press1Running.Montage = p.Press1Running.Montage.Mirrored()
	out.Press2.AttackMontage = p.Press2.AttackMontage.Mirrored()
	out.Press2.ChargeMontage = p.Press2.ChargeMontage.Mirrored()
	out.Press2Jumping.Montage = p.Press2Jumping.Montage.Mirrored()
	out.BackStabMontage = p.BackStabMontage.Mirrored()
	out.RiposteMontage = p.RiposteMontage.Mirrored()
	return out
}

// MeleeWeapon runs two input channels: press1 is a combo chain and press2
// a charged attack. Either may queue behind the other.
type MeleeWeapon struct {
	name      string
	params    MeleeParams
	state     EquipmentState
	owner     Owner
	destroyed bool
	mirrored  bool

	press1Attacking bool
	press1Queued    bool
	press1Index     int
	press1OnResume  bool

	press2Attacking   bool
	press2Queued      bool
	press2Charging    bool
	press2Held        bool
	press2ChargeStart float64
	press2Timer       TimerHandle

	canDamage  bool
	damaged    map[CharacterID]struct{}
	packed     Vec3
	damageType DamageType
	special    SpecialAttack
}

// NewMeleeWeapon creates an unequipped melee weapon.
func NewMeleeWeapon(name string, params MeleeParams) *MeleeWeapon {
	return &MeleeWeapon{
		name:    name,
		params:  params,
		damaged: make(map[CharacterID]struct{}),
	}
}

func (w *MeleeWeapon) Name() string           { return w.name }
func (w *MeleeWeapon) Kind() EquipmentKind    { return KindMelee }
func (w *MeleeWeapon) State() EquipmentState  { return w.state }
func (w *MeleeWeapon) MeleeLocomotion() bool  { return w.params.MeleeLocomotion }
func (w *MeleeWeapon) Destroyed() bool        { return w.destroyed }
func (w *MeleeWeapon) Attach(owner Owner)     { w.owner = owner }
func (w *MeleeWeapon) Params() MeleeParams    { return w.params }
func (w *MeleeWeapon) ComboIndex() int        { return w.press1Index }
func (w *MeleeWeapon) IsCharging() bool       { return w.press2Charging }
func (w *MeleeWeapon) Press1Queued() bool     { return w.press1Queued }
func (w *MeleeWeapon) Press2Queued() bool     { return w.press2Queued }
func (w *MeleeWeapon) LastSpecial() SpecialAttack { return w.special }

// Armed returns the damage a hit would carry right now.
func (w *MeleeWeapon) Armed() (Vec3, DamageType) { return w.packed, w.damageType }

// SetState records the slot; a left-hand weapon plays mirrored montages.
func (w *MeleeWeapon) SetState(s EquipmentState) {
	w.state = s
	if s == EquippedLeftHand && !w.mirrored {
		w.params = w.params.mirrored()
		w.mirrored = true
	}
}

func (w *MeleeWeapon) Destroy() {
	w.destroyed = true
	w.canDamage = false
	if w.owner != nil {
		w.owner.CancelTimer(w.press2Timer)
	}
	w.press2Timer = 0
}

// CancelActions drops every attack in flight.
func (w *MeleeWeapon) CancelActions() {
	if w.owner == nil {
		return
	}
	w.press1OnResume = false

	w.owner.ClearOnMontageEnded()
	w.owner.StopMontageGlobally()
	w.owner.CancelTimer(w.press2Timer)
	w.press2Timer = 0

	w.canDamage = false
	w.press1Attacking = false
	w.press1Queued = false
	w.press1Index = 0
	w.press2Attacking = false
	w.press2Queued = false
	w.press2Charging = false

	w.owner.SetAllowEnduranceRecovery(true)
	w.owner.SetIsAttacking(false)
}

// SetAttackCanDamage opens or closes the hit window. Opening it starts a
// fresh swing.
func (w *MeleeWeapon) SetAttackCanDamage(active bool) {
	if active {
		clear(w.damaged)
	}
	w.canDamage = active
}

// arm records what a hit during the current swing carries.
func (w *MeleeWeapon) arm(p DamageParams) {
	w.packed = Pack(p.DamageStandard, p.EnduranceDamageStandard, p.StunTime)
	w.damageType = p.DamageType
}

// =============================================================================
// HIT DETECTION
// =============================================================================

// Tick looks for pawns inside the hit volume while the damage window is
// open. Each pawn is reported at most once per swing.
func (w *MeleeWeapon) Tick(float64) {
	if !w.canDamage || w.owner == nil || w.destroyed {
		return
	}
	world := w.owner.World()
	if world == nil {
		return
	}
	start := w.owner.Location()
	center := start.Add(w.owner.Forward().Scale(w.params.Reach))

	for _, other := range world.OverlapSphere(center, w.params.HitRadius, w.owner.ID()) {
		if other == nil {
			continue
		}
		if _, ok := w.damaged[other.ID()]; ok {
			continue
		}
		for _, h := range world.SweepSphere(start, center, w.params.HitRadius, w.owner.ID()) {
			if h.Character != other {
				continue
			}
			w.damaged[other.ID()] = struct{}{}
			w.owner.ServerVerifyOverlapForDamage(NewDamageTransaction(other.ID(), h.ImpactPoint, w.packed, w.damageType))
			break
		}
	}
}

// =============================================================================
// PRESS1: COMBO CHAIN
// =============================================================================

// Press1 starts or queues a standard attack.
func (w *MeleeWeapon) Press1() {
	o := w.owner
	if o == nil {
		return
	}
	if !o.CanAttack() {
		w.press1OnResume = true
		return
	}
	if o.IsBlocking() {
		o.CancelBlocking()
	}
	if w.press1Attacking || w.press2Attacking {
		w.press1Queued = true
		return
	}

	w.press1Attacking = true
	w.special = SpecialNone
	o.SetAllowMovement(false)
	o.SetAllowEnduranceRecovery(false)

	var (
		m      *Montage
		verify func()
	)
	switch {
	case o.IsRunning():
		p := w.params.Press1Running
		w.arm(p.Damage)
		o.SetIsRunning(false)
		o.DepleteEndurance(p.EnduranceConsumption)
		m = p.Montage
	default:
		target, special := w.checkForSpecialAttack()
		base := w.baseDamage()
		w.special = special
		switch special {
		case SpecialBackStab:
			o.DepleteEndurance(w.params.BackStabEnduranceConsumption)
			m = w.params.BackStabMontage
			verify = func() { o.ServerVerifyBackStab(target.ID(), base.DamageStandard*base.BackStabMultiplier) }
		case SpecialRiposte:
			o.DepleteEndurance(w.params.RiposteEnduranceConsumption)
			m = w.params.RiposteMontage
			verify = func() { o.ServerVerifyRiposte(target.ID(), base.DamageStandard*base.RiposteMultiplier) }
		default:
			p := w.currentAttack()
			w.arm(p.Damage)
			o.DepleteEndurance(p.EnduranceConsumption)
			m = p.Montage
		}
	}
	o.PlayMontageGlobally(m, "")
	if verify != nil {
		verify()
	}

	o.SetIsAttacking(true)
	o.SetOnMontageEnded(ActionAttack, w.onAttackMontageEnded)
}

// Release1 does nothing: press1 attacks are not held.
func (w *MeleeWeapon) Release1() {}

// Resume1 retries a press1 that arrived while the character was busy.
func (w *MeleeWeapon) Resume1(bool) {
	if w.press1OnResume {
		w.press1OnResume = false
		w.Press1()
	}
}

func (w *MeleeWeapon) currentAttack() StandardAttackParams {
	if len(w.params.Press1) == 0 {
		return StandardAttackParams{}
	}
	if w.press1Index >= len(w.params.Press1) {
		w.press1Index = 0
	}
	return w.params.Press1[w.press1Index]
}

func (w *MeleeWeapon) advanceCombo() StandardAttackParams {
	w.press1Index++
	if w.press1Index >= len(w.params.Press1) {
		w.press1Index = 0
	}
	return w.currentAttack()
}

// baseDamage is the first combo entry, which special attacks scale.
func (w *MeleeWeapon) baseDamage() DamageParams {
	if len(w.params.Press1) == 0 {
		return DamageParams{}
	}
	return w.params.Press1[0].Damage
}

// CheckForAttackTransition chains a queued attack from a mid-swing notify,
// ahead of the montage's natural end.
func (w *MeleeWeapon) CheckForAttackTransition() {
	o := w.owner
	if o == nil {
		return
	}
	if (!w.press1Queued && !w.press2Queued) || o.Endurance() <= 0 {
		return
	}

	if w.press1Queued {
		w.press1Queued = false
		p := w.advanceCombo()
		w.arm(p.Damage)
		o.DepleteEndurance(p.EnduranceConsumption)
		o.ClearOnMontageEnded()
		o.PlayMontageGlobally(p.Montage, p.JumpSection)
		o.SetOnMontageEnded(ActionAttack, w.onAttackMontageEnded)
		return
	}

	o.ClearOnMontageEnded()
	w.press1Attacking = false
	w.press2Attacking = false
	w.press2Queued = false
	if !w.triggerPress2() {
		w.finishAttack()
	}
}

// onAttackMontageEnded continues the chain or returns to idle.
func (w *MeleeWeapon) onAttackMontageEnded(bool) {
	o := w.owner
	if o == nil {
		return
	}

	// The endurance check only guards the press2 branch. This matches the
	// shipped behaviour: a queued press1 chains even when exhausted.
	if w.press1Queued || w.press2Queued && o.Endurance() > 0 {
		if w.press1Queued {
			w.press2Attacking = false
			w.press2Queued = false
			w.press1Queued = false

			p := w.advanceCombo()
			w.arm(p.Damage)
			o.DepleteEndurance(p.EnduranceConsumption)
			o.PlayMontageGlobally(p.Montage, "")
			o.SetOnMontageEnded(ActionAttack, w.onAttackMontageEnded)
			return
		}

		w.press1Attacking = false
		w.press2Attacking = false
		w.press2Queued = false
		if w.triggerPress2() {
			return
		}
	}
	w.finishAttack()
}

func (w *MeleeWeapon) finishAttack() {
	o := w.owner
	w.press1Attacking = false
	w.press1Queued = false
	w.press1Index = 0
	w.press2Attacking = false
	w.press2Queued = false
	w.canDamage = false

	o.StopMontageGlobally()
	o.SetAllowMovement(true)
	o.SetAllowEnduranceRecovery(true)
	o.SetIsAttacking(false)
	o.CheckForResumingAction()
}

// =============================================================================
// PRESS2: CHARGE CHAIN
// =============================================================================

// Press2 starts charging, or queues behind a press1 combo.
func (w *MeleeWeapon) Press2() {
	w.press2Held = true
	w.triggerPress2()
}

// Release2 resolves the charge into an attack.
func (w *MeleeWeapon) Release2() {
	w.press2Held = false
	if !w.press2Charging || w.owner == nil {
		return
	}
	o := w.owner
	o.CancelTimer(w.press2Timer)
	w.press2Timer = 0
	w.press2Charging = false

	r := w.params.Press2.Resolve(o.Now() - w.press2ChargeStart)
	w.packed = Pack(r.Damage, r.EnduranceDamage, r.StunTime)
	w.damageType = r.DamageType
	o.DepleteEndurance(r.EnduranceCost)

	o.PlayMontageGlobally(w.params.Press2.AttackMontage, "")
	o.SetOnMontageEnded(ActionAttack, w.onAttackMontageEnded)
}

// Resume2 restarts a charge if the button is still held.
func (w *MeleeWeapon) Resume2(held bool) {
	if held {
		w.Press2()
	}
}

// triggerPress2 reports whether a press2 started or was queued.
func (w *MeleeWeapon) triggerPress2() bool {
	o := w.owner
	if o == nil || !o.CanAttack() {
		return false
	}
	if o.IsBlocking() {
		o.CancelBlocking()
	}
	if w.press1Attacking || w.press2Attacking {
		w.press2Queued = true
		return true
	}

	w.press2Attacking = true
	w.special = SpecialNone
	o.SetAllowEnduranceRecovery(false)
	o.SetAllowMovement(false)
	o.SetIsAttacking(true)

	if o.IsRunning() {
		p := w.params.Press2Jumping
		w.arm(p.Damage)
		o.SetIsRunning(false)
		o.DepleteEndurance(p.EnduranceConsumption)
		o.PlayMontageGlobally(p.Montage, "")
		o.SetOnMontageEnded(ActionAttack, w.onAttackMontageEnded)
		return true
	}

	// Damage is decided on release.
	w.packed = Vec3{}
	w.damageType = DamageBludgeon
	o.PlayMontageGlobally(w.params.Press2.ChargeMontage, "")
	w.press2ChargeStart = o.Now()
	w.press2Charging = true

	if w.press2Held {
		w.press2Timer = o.After(w.params.Press2.ChargeSeconds, func() {
			w.press2Timer = 0
			w.Release2()
		})
	} else {
		w.Release2()
	}
	return true
}

// =============================================================================
// TWO-HAND INPUT
// =============================================================================

// The two-hand channel belongs to bows; a melee weapon ignores it.

func (w *MeleeWeapon) TwoHandPress1()   {}
func (w *MeleeWeapon) TwoHandRelease1() {}
func (w *MeleeWeapon) TwoHandPress2()   {}
func (w *MeleeWeapon) TwoHandRelease2() {}
