package combat

// RangedWeapon is a two-handed bow. Drawing is driven by the empty hand's
// press1, which the character routes to TwoHandPress1.
type RangedWeapon struct {
	name      string
	params    RangedAttackParams
	state     EquipmentState
	owner     Owner
	destroyed bool

	preparing     bool
	drawn         bool
	held          bool
	pressOnResume bool

	// MuzzleOffset places the projectile spawn relative to the owner.
	MuzzleOffset Vec3
}

// NewRangedWeapon creates an unequipped bow.
func NewRangedWeapon(name string, params RangedAttackParams) *RangedWeapon {
	return &RangedWeapon{
		name:         name,
		params:       params,
		MuzzleOffset: Vec3{X: 40, Z: 50},
	}
}

func (r *RangedWeapon) Name() string               { return r.name }
func (r *RangedWeapon) Kind() EquipmentKind        { return KindRanged }
func (r *RangedWeapon) State() EquipmentState      { return r.state }
func (r *RangedWeapon) SetState(s EquipmentState)  { r.state = s }
func (r *RangedWeapon) MeleeLocomotion() bool      { return false }
func (r *RangedWeapon) Attach(owner Owner)         { r.owner = owner }
func (r *RangedWeapon) Destroy()                   { r.destroyed = true }
func (r *RangedWeapon) Destroyed() bool            { return r.destroyed }
func (r *RangedWeapon) Params() RangedAttackParams { return r.params }
func (r *RangedWeapon) IsPreparing() bool          { return r.preparing }
func (r *RangedWeapon) IsDrawn() bool              { return r.drawn }

// CancelActions drops the draw and any shot in flight.
func (r *RangedWeapon) CancelActions() {
	r.pressOnResume = false
	r.held = false
	r.preparing = false
	r.drawn = false
	if r.owner == nil {
		return
	}
	r.owner.ClearOnMontageEnded()
	r.owner.StopMontageGlobally()
	r.owner.SetIsAiming(false)
	r.owner.SetAllowEnduranceRecovery(true)
	r.owner.SetIsAttacking(false)
}

// CheckForAttackTransition ends the prepare phase; a released string fires.
func (r *RangedWeapon) CheckForAttackTransition() {
	r.preparing = false
	if !r.held && r.drawn {
		r.fire()
	}
}

// Projectiles carry the damage; the bow itself never hits.
func (r *RangedWeapon) SetAttackCanDamage(bool) {}
func (r *RangedWeapon) Tick(float64)            {}

// =============================================================================
// TWO-HAND PRESS1: DRAW AND RELEASE
// =============================================================================

// TwoHandPress1 draws, or queues a draw for the next resume.
func (r *RangedWeapon) TwoHandPress1() {
	r.held = true
	o := r.owner
	if o == nil {
		return
	}
	if !o.CanAttack() || r.drawn {
		r.pressOnResume = true
		return
	}
	o.SetIsAttacking(true)
	o.SetIsAiming(true)
	r.preparing = true
	r.drawn = true
	o.PlayMontageGlobally(r.params.PrepareMontage, "")
}

// TwoHandRelease1 fires once the draw has finished preparing.
func (r *RangedWeapon) TwoHandRelease1() {
	r.held = false
	if !r.preparing && r.drawn {
		r.fire()
	}
}

func (r *RangedWeapon) fire() {
	o := r.owner
	r.drawn = false

	yaw := o.Yaw()
	muzzle := o.Location().
		Add(YawForward(yaw).Scale(r.MuzzleOffset.X)).
		Add(YawRight(yaw).Scale(r.MuzzleOffset.Y)).
		Add(Vec3{Z: r.MuzzleOffset.Z})
	o.ServerSpawnProjectile(muzzle.Quantize(), yaw)

	o.SetIsAiming(false)
	o.SetAllowEnduranceRecovery(false)
	o.DepleteEndurance(r.params.EnduranceConsumption)
	o.PlayMontageGlobally(r.params.AttackMontage, "")
	o.SetOnMontageEnded(ActionFire, r.onFireEnded)
}

func (r *RangedWeapon) onFireEnded(bool) {
	o := r.owner
	o.StopMontageGlobally()
	o.SetAllowEnduranceRecovery(true)
	o.SetIsAttacking(false)
	o.CheckForResumingAction()
}

// Resume1 redraws if a draw was requested while the character was busy.
func (r *RangedWeapon) Resume1(bool) {
	if r.pressOnResume {
		r.pressOnResume = false
		held := r.held
		r.TwoHandPress1()
		// A draw requested and released while busy fires as soon as it
		// has prepared.
		r.held = held
	}
}

// The bow has no secondary action and no one-handed channel.

func (r *RangedWeapon) TwoHandPress2()   {}
func (r *RangedWeapon) TwoHandRelease2() {}
func (r *RangedWeapon) Press1()          {}
func (r *RangedWeapon) Release1()        {}
func (r *RangedWeapon) Press2()          {}
func (r *RangedWeapon) Release2()        {}
func (r *RangedWeapon) Resume2(bool)     {}
