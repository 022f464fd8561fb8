package combat

import "github.com/rs/zerolog"

// EquipmentKind distinguishes the equipment variants.
type EquipmentKind uint8

const (
	KindMelee EquipmentKind = iota
	KindRanged
	KindShield
)

func (k EquipmentKind) String() string {
	switch k {
	case KindMelee:
		return "melee"
	case KindRanged:
		return "ranged"
	case KindShield:
		return "shield"
	default:
		return "equipment"
	}
}

// Equipment is an item held in a hand slot. Every variant implements every
// input explicitly, so an input that means nothing for an item is a visible
// no-op in that item's code rather than an inherited default.
type Equipment interface {
	Name() string
	Kind() EquipmentKind
	State() EquipmentState
	SetState(s EquipmentState)
	MeleeLocomotion() bool

	// Attach binds the item to the character that owns it.
	Attach(owner Owner)
	Destroy()
	Destroyed() bool

	CancelActions()
	CheckForAttackTransition()
	SetAttackCanDamage(active bool)
	// Tick runs hit detection while a damage window is open.
	Tick(dt float64)

	Press1()
	Release1()
	Resume1(held bool)
	Press2()
	Release2()
	Resume2(held bool)

	TwoHandPress1()
	TwoHandRelease1()
	TwoHandPress2()
	TwoHandRelease2()
}

// Owner is everything equipment may ask of the character holding it.
// Equipment never reaches into character internals.
type Owner interface {
	ID() CharacterID
	Logger() *zerolog.Logger
	World() World
	Now() float64
	After(delay float64, fn func()) TimerHandle
	CancelTimer(h TimerHandle)

	Location() Vec3
	Forward() Vec3
	Yaw() float64

	Endurance() float64
	DepleteEndurance(delta float64)

	CanAttack() bool
	CanBlock() bool
	CanPerformStandardAction() bool
	IsBlocking() bool
	IsParrying() bool
	IsRunning() bool

	SetIsAttacking(attacking bool)
	SetIsAiming(aiming bool)
	SetIsBlocking(blocking, leftHanded bool)
	SetIsParrying(parrying bool)
	SetIsRunning(running bool)
	SetAllowMovement(allow bool)
	SetAllowEnduranceRecovery(allow bool)
	CancelBlocking()
	CheckForResumingAction()

	PlayMontageGlobally(m *Montage, section string) float64
	StopMontageGlobally()
	JumpToSection(section string)
	SetOnMontageEnded(kind ActionKind, handler func(interrupted bool))
	ClearOnMontageEnded()

	ServerVerifyOverlapForDamage(tx DamageTransaction)
	ServerVerifyBackStab(target CharacterID, damage float64)
	ServerVerifyRiposte(target CharacterID, damage float64)
	ServerSpawnProjectile(location Vec3, yaw float64)
}

// Hit is one result of a spatial query against character capsules.
type Hit struct {
	Character    *Character
	ImpactPoint  Vec3
	ImpactNormal Vec3
	Distance     float64
}

// World is the spatial and lifecycle service of the node a character lives
// on. Queries only return characters (pawns) and never the ignored one.
type World interface {
	Character(id CharacterID) *Character
	OverlapSphere(center Vec3, radius float64, ignore CharacterID) []*Character
	SweepSphere(start, end Vec3, radius float64, ignore CharacterID) []Hit
	LineTrace(start, end Vec3, ignore CharacterID) (Hit, bool)
	SpawnProjectile(owner *Character, location Vec3, yaw float64, params RangedAttackParams)
	DestroyCharacter(id CharacterID, delay float64)
}

// Widget is the presentation sink for one character on one node.
type Widget interface {
	OnHealthChanged(current, max float64)
	OnEnduranceChanged(current, max float64)
	OnDamageChanged(amount float64)
	SetLockedOnIndicator(visible bool)
}

// SoundSink plays cues at a location.
type SoundSink interface {
	PlaySound(cue Sound, location Vec3)
}

// Transport carries calls to other nodes. Calls whose destination is the
// local node never reach it; the character executes them directly.
type Transport interface {
	// SendServer delivers a call to the authority instance of a character.
	SendServer(id CharacterID, call ServerCall)
	// SendOwner delivers a call to the owning node of a character.
	SendOwner(id CharacterID, call OwnerCall)
	// SendMulticast delivers a call to every remote instance of a character.
	SendMulticast(id CharacterID, call MulticastCall)
}

// Observer is told about protocol outcomes on the authority.
type Observer interface {
	OnCombatOutcome(o Outcome)
}

type nopWidget struct{}

func (nopWidget) OnHealthChanged(float64, float64)    {}
func (nopWidget) OnEnduranceChanged(float64, float64) {}
func (nopWidget) OnDamageChanged(float64)             {}
func (nopWidget) SetLockedOnIndicator(bool)           {}

type nopSound struct{}

func (nopSound) PlaySound(Sound, Vec3) {}

type nopTransport struct{}

func (nopTransport) SendServer(CharacterID, ServerCall)       {}
func (nopTransport) SendOwner(CharacterID, OwnerCall)         {}
func (nopTransport) SendMulticast(CharacterID, MulticastCall) {}

type nopObserver struct{}

func (nopObserver) OnCombatOutcome(Outcome) {}
