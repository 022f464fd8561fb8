package combat

import (
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/config"
)

// CharacterMontages are the montages a character plays for its own actions.
type CharacterMontages struct {
	Kick          *Montage
	Roll          *Montage
	Stun          *Montage
	Stagger       *Montage
	BackStabbed   *Montage
	Riposted      *Montage
	YawCorrection *Montage
}

// CosmeticMontage is the montage the authority replicates to observers.
// Serial changes on every play so replaying the same montage is visible.
type CosmeticMontage struct {
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Serial   uint32  `json:"serial"`
}

// CharacterOptions configure a character instance on one node.
type CharacterOptions struct {
	ID   CharacterID
	Name string

	Role              NetRole
	Mode              NetMode
	LocallyControlled bool

	Combat config.CombatConfig
	Verify config.VerifyConfig
	LockOn config.LockOnConfig

	CapsuleRadius     float64
	CapsuleHalfHeight float64

	World     World
	Transport Transport
	Timers    *Scheduler
	Widget    Widget
	Sound     SoundSink
	Observer  Observer
	Catalog   *Catalog
	Logger    zerolog.Logger

	Location Vec3
	Yaw      float64
}

// Character is one combatant as seen by one node. The authority owns
// health and the server-side flag mirrors; the locally controlled instance
// owns endurance, input and the action state machine.
type Character struct {
	id    CharacterID
	name  string
	role  NetRole
	mode  NetMode
	local bool

	cfg     config.CombatConfig
	verify  config.VerifyConfig
	capsule struct{ radius, halfHeight float64 }

	world    World
	net      Transport
	timers   *Scheduler
	widget   Widget
	sound    SoundSink
	observer Observer
	catalog  *Catalog
	log      zerolog.Logger

	montages CharacterMontages
	anim     *MontagePlayer
	cosmetic CosmeticMontage

	pending    *PendingAction
	generation uint64

	health       float64
	endurance    float64
	playerNumber int

	attacking        bool
	aiming           bool
	blocking         bool
	shieldLeftHanded bool
	parrying         bool
	kicking          bool
	rolling          bool
	stunned          bool
	staggered        bool
	invincible       bool
	running          bool
	lockedOn         bool
	falling          bool
	parryCanStagger  bool

	allowMovement          bool
	allowEnduranceRecovery bool
	opponentHasLockedOn    bool

	staggerTimer float64
	stunTimer    float64
	stunCount    int

	dead      bool
	ragdolled bool

	leftHeld1, leftHeld2   bool
	rightHeld1, rightHeld2 bool
	runHeld                bool
	runPressedAt           float64
	rollOnResume           bool
	kickOnResume           bool

	location     Vec3
	lastMoveAt   float64
	yaw          float64
	velocity     Vec3
	moveInput    Vec3
	controlYaw   float64
	controlPitch float64
	landTimer    TimerHandle

	left  Equipment
	right Equipment

	kickCanDamage bool
	kickedActors  map[CharacterID]struct{}

	lockOn *LockOn
}

// NewCharacter creates a character instance. Missing sinks fall back to
// no-ops so headless nodes need not supply them.
func NewCharacter(opts CharacterOptions) *Character {
	c := &Character{
		id:       opts.ID,
		name:     opts.Name,
		role:     opts.Role,
		mode:     opts.Mode,
		local:    opts.LocallyControlled,
		cfg:      opts.Combat,
		verify:   opts.Verify,
		world:    opts.World,
		net:      opts.Transport,
		timers:   opts.Timers,
		widget:   opts.Widget,
		sound:    opts.Sound,
		observer: opts.Observer,
		catalog:  opts.Catalog,
		log: opts.Logger.With().
			Uint32("character", uint32(opts.ID)).
			Str("name", opts.Name).
			Str("role", opts.Role.String()).
			Logger(),

		health:    opts.Combat.HealthMaximum,
		endurance: opts.Combat.EnduranceMaximum,

		allowMovement:          true,
		allowEnduranceRecovery: true,

		location:     opts.Location,
		yaw:          NormalizeAxis(opts.Yaw),
		controlYaw:   NormalizeAxis(opts.Yaw),
		kickedActors: make(map[CharacterID]struct{}),
	}
	c.capsule.radius = opts.CapsuleRadius
	c.capsule.halfHeight = opts.CapsuleHalfHeight

	if c.net == nil {
		c.net = nopTransport{}
	}
	if c.timers == nil {
		c.timers = NewScheduler()
	}
	c.lastMoveAt = c.timers.Now()
	if c.widget == nil {
		c.widget = nopWidget{}
	}
	if c.sound == nil {
		c.sound = nopSound{}
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.catalog == nil {
		c.catalog = DefaultCatalog()
	}
	c.montages = c.catalog.Character
	c.anim = NewMontagePlayer((*animListener)(c))
	c.lockOn = newLockOn(c, opts.LockOn)
	return c
}

// =============================================================================
// IDENTITY & SERVICES
// =============================================================================

func (c *Character) ID() CharacterID          { return c.id }
func (c *Character) Name() string             { return c.name }
func (c *Character) Role() NetRole            { return c.role }
func (c *Character) Mode() NetMode            { return c.mode }
func (c *Character) Logger() *zerolog.Logger  { return &c.log }
func (c *Character) World() World             { return c.world }
func (c *Character) Animator() *MontagePlayer { return c.anim }
func (c *Character) LockOn() *LockOn          { return c.lockOn }
func (c *Character) Catalog() *Catalog        { return c.catalog }

// HasAuthority reports whether this instance is the authoritative one.
func (c *Character) HasAuthority() bool { return c.role == RoleAuthority }

// IsLocallyControlled reports whether this node's player drives the
// character.
func (c *Character) IsLocallyControlled() bool { return c.local }

// Now returns the node's simulation time in seconds.
func (c *Character) Now() float64 { return c.timers.Now() }

// After schedules a one-shot callback on the node clock.
func (c *Character) After(delay float64, fn func()) TimerHandle {
	return c.timers.After(delay, fn)
}

// CancelTimer cancels a pending callback. The zero handle is ignored.
func (c *Character) CancelTimer(h TimerHandle) {
	if h != 0 {
		c.timers.Cancel(h)
	}
}

// =============================================================================
// TRANSFORM
// =============================================================================

func (c *Character) Location() Vec3       { return c.location }
func (c *Character) Yaw() float64         { return c.yaw }
func (c *Character) Forward() Vec3        { return YawForward(c.yaw) }
func (c *Character) Velocity() Vec3       { return c.velocity }
func (c *Character) ControlYaw() float64  { return c.controlYaw }
func (c *Character) ControlPitch() float64 { return c.controlPitch }

// CameraForward is the horizontal direction the camera looks along.
func (c *Character) CameraForward() Vec3 { return YawForward(c.controlYaw) }

// CapsuleRadius returns the collision radius.
func (c *Character) CapsuleRadius() float64 { return c.capsule.radius }

// CapsuleHalfHeight returns the collision half height.
func (c *Character) CapsuleHalfHeight() float64 { return c.capsule.halfHeight }

// SetLocation teleports the character. Used for spawning.
func (c *Character) SetLocation(v Vec3) {
	c.location = v
	c.lastMoveAt = c.Now()
}

// acceptMove applies a client-reported location, clamped to what RunSpeed
// covers since the last accepted move plus MoveTolerance.
func (c *Character) acceptMove(to Vec3) {
	now := c.Now()
	reach := c.cfg.RunSpeed*(now-c.lastMoveAt) + c.cfg.MoveTolerance
	c.lastMoveAt = now

	delta := to.Sub(c.location)
	if dist := delta.Length(); dist > reach {
		c.log.Debug().Float64("distance", dist).Float64("reach", reach).Msg("move clamped")
		to = c.location.Add(delta.Scale(reach / dist))
	}
	c.location = to
}

// SetYaw sets the actor yaw.
func (c *Character) SetYaw(yaw float64) { c.yaw = NormalizeAxis(yaw) }

// =============================================================================
// RESOURCES
// =============================================================================

func (c *Character) Health() float64       { return c.health }
func (c *Character) HealthMax() float64    { return c.cfg.HealthMaximum }
func (c *Character) Endurance() float64    { return c.endurance }
func (c *Character) EnduranceMax() float64 { return c.cfg.EnduranceMaximum }
func (c *Character) PlayerNumber() int     { return c.playerNumber }

// SetPlayerNumber assigns the colour slot. Authority only.
func (c *Character) SetPlayerNumber(n int) {
	if !c.HasAuthority() {
		return
	}
	c.playerNumber = n
}

// DepleteEndurance subtracts delta from endurance. A negative delta
// recovers, and recovery never exceeds the maximum. Depletion is not
// clamped: negative endurance is meaningful.
func (c *Character) DepleteEndurance(delta float64) {
	c.endurance -= delta
	if delta < 0 && c.endurance > c.cfg.EnduranceMaximum {
		c.endurance = c.cfg.EnduranceMaximum
	}
	c.widget.OnEnduranceChanged(c.endurance, c.cfg.EnduranceMaximum)
}

// TickResources applies running drain or recovery for one tick.
func (c *Character) TickResources(dt float64) {
	if c.running && !c.velocity.IsNearlyZero() {
		c.DepleteEndurance(c.cfg.RunEnduranceCostPerSecond * dt)
		if c.endurance < 0 {
			c.SetIsRunning(false)
			c.endurance = c.cfg.RunToZeroEndurancePenalty
			c.widget.OnEnduranceChanged(c.endurance, c.cfg.EnduranceMaximum)
		}
		return
	}

	if !c.allowEnduranceRecovery || c.endurance >= c.cfg.EnduranceMaximum {
		return
	}
	rate := c.cfg.EnduranceRecoveryPerSecond
	switch {
	case c.blocking:
		rate = c.cfg.BlockingEnduranceRecoveryPerSecond
	case c.aiming:
		rate = c.cfg.AimingEnduranceRecoveryPerSecond
	}
	c.DepleteEndurance(-rate * dt)
}

// =============================================================================
// FLAGS
// =============================================================================

func (c *Character) IsAttacking() bool            { return c.attacking }
func (c *Character) IsAiming() bool               { return c.aiming }
func (c *Character) IsBlocking() bool             { return c.blocking }
func (c *Character) IsShieldLeftHanded() bool     { return c.shieldLeftHanded }
func (c *Character) IsParrying() bool             { return c.parrying }
func (c *Character) IsKicking() bool              { return c.kicking }
func (c *Character) IsRolling() bool              { return c.rolling }
func (c *Character) IsStunned() bool              { return c.stunned }
func (c *Character) IsStaggered() bool            { return c.staggered }
func (c *Character) IsInvincible() bool           { return c.invincible }
func (c *Character) IsRunning() bool              { return c.running }
func (c *Character) IsLockedOn() bool             { return c.lockedOn }
func (c *Character) IsFalling() bool              { return c.falling }
func (c *Character) IsDead() bool                 { return c.dead }
func (c *Character) IsRagdoll() bool              { return c.ragdolled }
func (c *Character) ParryCanStagger() bool        { return c.parryCanStagger }
func (c *Character) AllowMovement() bool          { return c.allowMovement }
func (c *Character) AllowEnduranceRecovery() bool { return c.allowEnduranceRecovery }
func (c *Character) OpponentHasLockedOn() bool    { return c.opponentHasLockedOn }
func (c *Character) KickCanDamage() bool          { return c.kickCanDamage }
func (c *Character) StaggerTimer() float64        { return c.staggerTimer }
func (c *Character) StunTimer() float64           { return c.stunTimer }
func (c *Character) StunCount() int               { return c.stunCount }
func (c *Character) Cosmetic() CosmeticMontage    { return c.cosmetic }

// CanAttack gates attacks.
func (c *Character) CanAttack() bool {
	return c.endurance > 0 && !c.kicking && !c.parrying && !c.stunned &&
		!c.staggered && !c.rolling && !c.falling
}

// CanBlock gates raising a shield.
func (c *Character) CanBlock() bool {
	return c.endurance > 0 && !c.attacking && !c.kicking && !c.stunned &&
		!c.parrying && !c.staggered && !c.rolling
}

// CanPerformStandardAction gates kick, roll and parry.
func (c *Character) CanPerformStandardAction() bool {
	return c.CanAttack() && !c.attacking
}

func (c *Character) SetIsAttacking(attacking bool) { c.attacking = attacking }
func (c *Character) SetIsAiming(aiming bool)       { c.aiming = aiming }
func (c *Character) SetIsParrying(parrying bool)   { c.parrying = parrying }
func (c *Character) SetAllowMovement(allow bool)   { c.allowMovement = allow }

func (c *Character) SetAllowEnduranceRecovery(allow bool) {
	c.allowEnduranceRecovery = allow
}

// SetIsBlocking sets the block flag and which hand holds the shield.
func (c *Character) SetIsBlocking(blocking, leftHanded bool) {
	c.blocking = blocking
	c.shieldLeftHanded = leftHanded
	c.mirror(ServerSetBlocking{Blocking: blocking, LeftHanded: leftHanded})
}

// SetParryCanStagger opens or closes the parry window.
func (c *Character) SetParryCanStagger(active bool) {
	c.parryCanStagger = active
	c.mirror(ServerSetParryCanStagger{Active: active})
}

// SetIsInvincible opens or closes the invincibility window.
func (c *Character) SetIsInvincible(active bool) {
	c.invincible = active
	c.mirror(ServerSetInvincible{Active: active})
}

// SetIsLockedOn sets the lock-on flag.
func (c *Character) SetIsLockedOn(locked bool) {
	c.lockedOn = locked
	c.mirror(ServerSetLockedOn{Locked: locked})
}

// SetIsRunning sets the running flag. Only changes are mirrored.
func (c *Character) SetIsRunning(running bool) {
	if c.running == running {
		return
	}
	c.running = running
	c.mirror(ServerSetRunning{Running: running})
}

// SetIsStaggered sets the stagger flag; setting it arms the stagger timer.
func (c *Character) SetIsStaggered(staggered bool) {
	c.staggered = staggered
	if staggered {
		c.staggerTimer = c.cfg.StaggerTime
	}
	c.mirror(ServerSetStaggered{Staggered: staggered})
}

// SetOpponentHasLockedOn marks this character as watched by the local
// player. Presentation only.
func (c *Character) SetOpponentHasLockedOn(locked bool) {
	c.opponentHasLockedOn = locked
	c.widget.SetLockedOnIndicator(locked)
}

// mirror sends a flag change from the owning client to the authority.
func (c *Character) mirror(call ServerCall) {
	if c.local && !c.HasAuthority() {
		c.net.SendServer(c.id, call)
	}
}

// =============================================================================
// EQUIPMENT
// =============================================================================

// Equipment returns the item in a hand slot, or nil.
func (c *Character) Equipment(hand Hand) Equipment {
	if hand == LeftHand {
		return c.left
	}
	return c.right
}

// Equip places an item in a hand. A two-handed item occupies the right
// slot and empties the left. Replaced items are destroyed.
func (c *Character) Equip(hand Hand, e Equipment, twoHanded bool) {
	if e == nil {
		c.unequip(hand)
		return
	}
	if twoHanded {
		c.unequip(LeftHand)
		c.unequip(RightHand)
		c.right = e
		e.SetState(EquippedTwoHand)
	} else {
		c.unequip(hand)
		if hand == LeftHand {
			c.left = e
			e.SetState(EquippedLeftHand)
		} else {
			c.right = e
			e.SetState(EquippedRightHand)
		}
	}
	e.Attach(c)
	c.log.Debug().Str("item", e.Name()).Str("state", e.State().String()).Msg("equipped")
}

func (c *Character) unequip(hand Hand) {
	var e Equipment
	if hand == LeftHand {
		e, c.left = c.left, nil
	} else {
		e, c.right = c.right, nil
	}
	if e != nil && !e.Destroyed() {
		e.CancelActions()
		e.Destroy()
	}
}

// MeleeLocomotion reports whether any held item asks for the melee
// locomotion set.
func (c *Character) MeleeLocomotion() bool {
	for _, e := range [...]Equipment{c.left, c.right} {
		if e != nil && e.MeleeLocomotion() {
			return true
		}
	}
	return false
}

// equipmentFor resolves the item driven by a hand-bound event. A two-handed
// item answers for both hands.
func (c *Character) equipmentFor(hand Hand) Equipment {
	if e := c.Equipment(hand); e != nil {
		return e
	}
	if other := c.Equipment(otherHand(hand)); other != nil && other.State() == EquippedTwoHand {
		return other
	}
	return nil
}

// shield returns the shield held in the hand recorded by SetIsBlocking.
func (c *Character) shield() *Shield {
	hand := RightHand
	if c.shieldLeftHanded {
		hand = LeftHand
	}
	if s, ok := c.Equipment(hand).(*Shield); ok {
		return s
	}
	for _, e := range [...]Equipment{c.left, c.right} {
		if s, ok := e.(*Shield); ok {
			return s
		}
	}
	return nil
}

func (c *Character) destroyEquipment() {
	for _, e := range [...]Equipment{c.left, c.right} {
		if e != nil && !e.Destroyed() {
			e.CancelActions()
			e.Destroy()
		}
	}
}

// =============================================================================
// MONTAGES
// =============================================================================

// PlayMontage plays a montage on this instance only.
func (c *Character) PlayMontage(m *Montage, section string) float64 {
	return c.anim.Play(m, section)
}

// PlayMontageGlobally plays a montage here and asks the authority to
// replicate it to observers.
func (c *Character) PlayMontageGlobally(m *Montage, section string) float64 {
	if m == nil {
		c.log.Warn().Msg("play of nil montage ignored")
		return 0
	}
	pos := c.anim.Play(m, section)
	c.callServer(ServerPlayCosmeticMontage{Montage: m.Name, Position: pos})
	return pos
}

// StopMontageGlobally stops the montage here and on observers.
func (c *Character) StopMontageGlobally() {
	c.anim.Stop()
	c.callServer(ServerPlayCosmeticMontage{})
}

// JumpToSection moves the active montage and keeps observers in step.
func (c *Character) JumpToSection(section string) {
	c.anim.JumpToSection(section)
	if m, _ := c.anim.Active(); m != nil {
		c.callServer(ServerPlayCosmeticMontage{Montage: m.Name, Position: c.anim.Position()})
	}
}

// setCosmetic records the replicated montage on the authority.
func (c *Character) setCosmetic(name string, position float64) {
	c.cosmetic = CosmeticMontage{Name: name, Position: position, Serial: c.cosmetic.Serial + 1}
	if c.mode == ListenServer && !c.local {
		c.OnRepCosmetic()
	}
}

// OnRepCosmetic mirrors the replicated montage on an observer.
func (c *Character) OnRepCosmetic() {
	if c.local {
		return
	}
	if c.cosmetic.Name == "" {
		c.anim.Stop()
		return
	}
	m := c.catalog.Montage(c.cosmetic.Name)
	if m == nil {
		c.log.Warn().Str("montage", c.cosmetic.Name).Msg("unknown cosmetic montage")
		return
	}
	c.anim.PlayAt(m, c.cosmetic.Position)
}

// OnRepHealth pushes the replicated health to the widget.
func (c *Character) OnRepHealth() {
	c.widget.OnHealthChanged(c.health, c.cfg.HealthMaximum)
}

type animListener Character

func (l *animListener) OnMontageNotify(m *Montage, n Notify) {
	(*Character)(l).handleNotify(n)
}

func (l *animListener) OnMontageWindow(m *Montage, w NotifyWindow, open bool) {
	(*Character)(l).handleWindow(w, open)
}

func (l *animListener) OnMontageEnded(m *Montage, instance uint64, interrupted bool) {
	(*Character)(l).completeMontage(m, instance, interrupted)
}

// handleNotify reacts to a point notify. Only the driving node acts on them;
// observers play montages for looks.
func (c *Character) handleNotify(n Notify) {
	if !c.local || c.dead {
		return
	}
	switch n.Kind {
	case NotifyAttackTransition:
		if e := c.equipmentFor(n.Hand); e != nil {
			e.CheckForAttackTransition()
		}
	case NotifyPlaySound:
		if n.Multicast {
			c.callServer(ServerPlaySound{Sound: n.Sound})
		} else {
			c.sound.PlaySound(n.Sound, c.location)
		}
	case NotifyFootstep:
		c.callServer(ServerPlaySound{Sound: SoundFootstep})
	}
}

func (c *Character) handleWindow(w NotifyWindow, open bool) {
	if !c.local || c.dead {
		return
	}
	switch w.Kind {
	case WindowAttackDamage:
		if e := c.equipmentFor(w.Hand); e != nil {
			e.SetAttackCanDamage(open)
		}
	case WindowInvincibility:
		c.SetIsInvincible(open)
	case WindowKickDamage:
		c.kickCanDamage = open
	case WindowParryStagger:
		c.SetParryCanStagger(open)
	}
}

// =============================================================================
// TICK
// =============================================================================

// Tick advances the character by dt seconds. Montages advance everywhere;
// resources, movement, timers, hit detection and lock-on only run where the
// character is locally controlled.
func (c *Character) Tick(dt float64) {
	if c.dead {
		return
	}
	c.anim.Advance(dt)
	c.expireContinuation()
	if !c.local || c.dead {
		return
	}

	c.tickCountdowns(dt)
	c.TickResources(dt)
	c.tickMovement(dt)
	for _, e := range [...]Equipment{c.left, c.right} {
		if e != nil && !e.Destroyed() {
			e.Tick(dt)
		}
	}
	if c.kickCanDamage {
		c.tickKickOverlap()
	}
	c.lockOn.Tick(dt)
}

func (c *Character) tickCountdowns(dt float64) {
	if c.staggered {
		c.staggerTimer -= dt
		if c.staggerTimer <= 0 {
			c.staggerTimer = 0
			c.SetIsStaggered(false)
			c.allowMovement = true
			c.StopMontageGlobally()
		}
	}
	// The stun window runs out even when an action cancelled the stun.
	if c.stunTimer > 0 {
		c.stunTimer -= dt
		if c.stunTimer <= 0 {
			c.stunTimer = 0
			c.stunCount = 0
			if c.stunned {
				c.stunned = false
				c.allowMovement = true
				c.StopMontageGlobally()
			}
		}
	}
}

// MoveInput sets the movement axes in [-1, 1], forward and right relative
// to the camera.
func (c *Character) MoveInput(forward, right float64) {
	c.moveInput = Vec3{X: clamp(forward, -1, 1), Y: clamp(right, -1, 1)}
}

// LookInput turns the camera. While locked on, yaw input selects targets
// instead.
func (c *Character) LookInput(yaw, pitch float64) {
	if c.lockedOn {
		c.lockOn.YawInput(yaw)
	} else {
		c.controlYaw = NormalizeAxis(c.controlYaw + yaw)
	}
	c.controlPitch = clamp(c.controlPitch+pitch, -89, 89)
}

// SetControlRotation sets the camera orientation directly.
func (c *Character) SetControlRotation(yaw, pitch float64) {
	c.controlYaw = NormalizeAxis(yaw)
	c.controlPitch = clamp(pitch, -89, 89)
}

func (c *Character) tickMovement(dt float64) {
	if !c.allowMovement || c.moveInput.IsNearlyZero() {
		c.velocity = Vec3{}
		return
	}
	dir := YawForward(c.controlYaw).Scale(c.moveInput.X).
		Add(YawRight(c.controlYaw).Scale(c.moveInput.Y)).
		SafeNormal(1e-4)
	speed := c.cfg.WalkSpeed
	if c.running {
		speed = c.cfg.RunSpeed
	}
	c.velocity = dir.Scale(speed)
	c.location = c.location.Add(c.velocity.Scale(dt))
	if !c.lockedOn {
		c.yaw = YawOf(dir)
	}
	c.callServer(ServerMove{Location: c.location, Yaw: c.yaw})
}

// tickKickOverlap looks for pawns in front of the kicking foot.
func (c *Character) tickKickOverlap() {
	if c.world == nil {
		return
	}
	center := c.location.Add(c.Forward().Scale(c.cfg.KickReach))
	for _, other := range c.world.OverlapSphere(center, c.cfg.KickRadius, c.id) {
		if other == nil || other == c {
			continue
		}
		if _, hit := c.kickedActors[other.id]; hit {
			continue
		}
		c.kickedActors[other.id] = struct{}{}
		impact := center
		if hits := c.world.SweepSphere(c.location, center, c.cfg.KickRadius, c.id); len(hits) > 0 {
			for _, h := range hits {
				if h.Character == other {
					impact = h.ImpactPoint
					break
				}
			}
		}
		c.ServerVerifyOverlapForDamage(NewDamageTransaction(
			other.id, impact, Pack(0, c.cfg.KickEnduranceDamage, 0), DamageKick))
	}
}

// =============================================================================
// SERVER REQUESTS
// =============================================================================

func (c *Character) ServerVerifyOverlapForDamage(tx DamageTransaction) {
	c.callServer(ServerVerifyOverlapForDamage{DamageTransaction: tx})
}

func (c *Character) ServerVerifyBackStab(target CharacterID, damage float64) {
	c.callServer(ServerVerifyBackStab{Target: target, Damage: damage})
}

func (c *Character) ServerVerifyRiposte(target CharacterID, damage float64) {
	c.callServer(ServerVerifyRiposte{Target: target, Damage: damage})
}

func (c *Character) ServerSpawnProjectile(location Vec3, yaw float64) {
	c.callServer(ServerSpawnProjectile{Location: location, Yaw: yaw})
}

// spawnProjectile launches the projectile of the ranged item held.
func (c *Character) spawnProjectile(location Vec3, yaw float64) {
	if c.world == nil {
		c.log.Warn().Msg("projectile spawn without world")
		return
	}
	var bow *RangedWeapon
	for _, e := range [...]Equipment{c.right, c.left} {
		if r, ok := e.(*RangedWeapon); ok {
			bow = r
			break
		}
	}
	if bow == nil {
		c.log.Warn().Msg("projectile spawn without ranged weapon")
		return
	}
	c.world.SpawnProjectile(c, location, yaw, bow.Params())
}

// ragdoll switches the body to its dead state on this node.
func (c *Character) ragdoll() {
	c.dead = true
	c.ragdolled = true
	c.allowMovement = false
	c.velocity = Vec3{}
	c.moveInput = Vec3{}
	c.kickCanDamage = false
	c.invalidateContinuations()
	c.anim.Stop()
	if c.lockedOn {
		c.lockOn.Clear()
	}
}
