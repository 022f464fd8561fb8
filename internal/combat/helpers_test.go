package combat

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/config"
)

const testCapsuleRadius = 34

// testWorld is a flat arena of capsules with brute-force queries.
type testWorld struct {
	chars     map[CharacterID]*Character
	order     []CharacterID
	spawned   []spawnedProjectile
	destroyed map[CharacterID]float64
}

type spawnedProjectile struct {
	owner    CharacterID
	location Vec3
	yaw      float64
	params   RangedAttackParams
}

func newTestWorld() *testWorld {
	return &testWorld{
		chars:     make(map[CharacterID]*Character),
		destroyed: make(map[CharacterID]float64),
	}
}

func (w *testWorld) add(c *Character) {
	w.chars[c.ID()] = c
	w.order = append(w.order, c.ID())
}

func (w *testWorld) Character(id CharacterID) *Character { return w.chars[id] }

func (w *testWorld) OverlapSphere(center Vec3, radius float64, ignore CharacterID) []*Character {
	var out []*Character
	for _, id := range w.order {
		c := w.chars[id]
		if id == ignore || c.IsDead() {
			continue
		}
		if center.DistanceTo(c.Location()) <= radius+c.CapsuleRadius() {
			out = append(out, c)
		}
	}
	return out
}

func (w *testWorld) SweepSphere(start, end Vec3, radius float64, ignore CharacterID) []Hit {
	var out []Hit
	for _, c := range w.OverlapSphere(end, radius, ignore) {
		toward := start.Sub(c.Location()).Flatten().SafeNormal(1e-4)
		out = append(out, Hit{
			Character:   c,
			ImpactPoint: c.Location().Add(toward.Scale(c.CapsuleRadius())),
			Distance:    start.DistanceTo(c.Location()),
		})
	}
	return out
}

func (w *testWorld) LineTrace(start, end Vec3, ignore CharacterID) (Hit, bool) {
	seg := end.Sub(start)
	length := seg.Length()
	if length == 0 {
		return Hit{}, false
	}
	dir := seg.Scale(1 / length)

	var best Hit
	found := false
	for _, id := range w.order {
		c := w.chars[id]
		if id == ignore || c.IsDead() {
			continue
		}
		along := math.Max(0, math.Min(length, c.Location().Sub(start).Dot(dir)))
		closest := start.Add(dir.Scale(along))
		if closest.Flatten().DistanceTo(c.Location().Flatten()) > c.CapsuleRadius() {
			continue
		}
		if !found || along < best.Distance {
			best = Hit{Character: c, ImpactPoint: closest, Distance: along}
			found = true
		}
	}
	return best, found
}

func (w *testWorld) SpawnProjectile(owner *Character, location Vec3, yaw float64, params RangedAttackParams) {
	w.spawned = append(w.spawned, spawnedProjectile{owner: owner.ID(), location: location, yaw: yaw, params: params})
}

func (w *testWorld) DestroyCharacter(id CharacterID, delay float64) {
	w.destroyed[id] = delay
}

type sentServer struct {
	id   CharacterID
	call ServerCall
}

type sentOwner struct {
	id   CharacterID
	call OwnerCall
}

type sentMulticast struct {
	id   CharacterID
	call MulticastCall
}

// recordingTransport keeps every call that would leave the node.
type recordingTransport struct {
	server    []sentServer
	owner     []sentOwner
	multicast []sentMulticast
}

func (r *recordingTransport) SendServer(id CharacterID, call ServerCall) {
	r.server = append(r.server, sentServer{id, call})
}

func (r *recordingTransport) SendOwner(id CharacterID, call OwnerCall) {
	r.owner = append(r.owner, sentOwner{id, call})
}

func (r *recordingTransport) SendMulticast(id CharacterID, call MulticastCall) {
	r.multicast = append(r.multicast, sentMulticast{id, call})
}

func (r *recordingTransport) ownerCalls(id CharacterID) []OwnerCall {
	var out []OwnerCall
	for _, s := range r.owner {
		if s.id == id {
			out = append(out, s.call)
		}
	}
	return out
}

func (r *recordingTransport) sounds() []Sound {
	var out []Sound
	for _, s := range r.multicast {
		if ps, ok := s.call.(MulticastPlaySound); ok {
			out = append(out, ps.Sound)
		}
	}
	return out
}

type recordingWidget struct {
	health    []float64
	endurance []float64
	damage    []float64
	indicator []bool
}

func (w *recordingWidget) OnHealthChanged(current, _ float64)    { w.health = append(w.health, current) }
func (w *recordingWidget) OnEnduranceChanged(current, _ float64) { w.endurance = append(w.endurance, current) }
func (w *recordingWidget) OnDamageChanged(amount float64)        { w.damage = append(w.damage, amount) }
func (w *recordingWidget) SetLockedOnIndicator(v bool)           { w.indicator = append(w.indicator, v) }

type recordingObserver struct {
	outcomes []Outcome
}

func (o *recordingObserver) OnCombatOutcome(out Outcome) { o.outcomes = append(o.outcomes, out) }

func (o *recordingObserver) last(t *testing.T) Outcome {
	t.Helper()
	require.NotEmpty(t, o.outcomes)
	return o.outcomes[len(o.outcomes)-1]
}

// testNode is one simulated node with a shared clock, world and transport.
type testNode struct {
	world    *testWorld
	net      *recordingTransport
	timers   *Scheduler
	observer *recordingObserver
	armory   *Armory
	catalog  *Catalog
	nextID   CharacterID
}

func newTestNode() *testNode {
	return &testNode{
		world:    newTestWorld(),
		net:      &recordingTransport{},
		timers:   NewScheduler(),
		observer: &recordingObserver{},
		armory:   DefaultArmory(),
		catalog:  DefaultCatalog(),
	}
}

// spawn creates a character on the node. The default is the standalone
// player: authority and locally controlled.
func (n *testNode) spawn(t *testing.T, at Vec3, yaw float64, mutate ...func(*CharacterOptions)) *Character {
	t.Helper()
	n.nextID++
	opts := CharacterOptions{
		ID:                n.nextID,
		Name:              "fighter",
		Role:              RoleAuthority,
		Mode:              Standalone,
		LocallyControlled: true,
		Combat:            config.DefaultCombat(),
		Verify:            config.DefaultVerify(),
		LockOn:            config.DefaultLockOn(),
		CapsuleRadius:     testCapsuleRadius,
		CapsuleHalfHeight: 88,
		World:             n.world,
		Transport:         n.net,
		Timers:            n.timers,
		Widget:            &recordingWidget{},
		Observer:          n.observer,
		Catalog:           n.catalog,
		Logger:            zerolog.Nop(),
		Location:          at,
		Yaw:               yaw,
	}
	for _, m := range mutate {
		m(&opts)
	}
	c := NewCharacter(opts)
	n.world.add(c)
	return c
}

// remote makes the spawned instance the server's copy of another
// player's character.
func remote(o *CharacterOptions) { o.LocallyControlled = false }

func (n *testNode) equip(t *testing.T, c *Character, hand Hand, name string) {
	t.Helper()
	require.NoError(t, c.EquipByName(n.armory, hand, name))
}

// step advances the node clock and every character by dt.
func (n *testNode) step(dt float64) {
	n.timers.Advance(dt)
	for _, id := range n.world.order {
		n.world.chars[id].Tick(dt)
	}
}

// run steps the node in small increments for the given duration.
func (n *testNode) run(seconds float64) {
	const dt = 1.0 / 60
	for elapsed := 0.0; elapsed < seconds-1e-9; elapsed += dt {
		n.step(dt)
	}
}

func widgetOf(c *Character) *recordingWidget { return c.widget.(*recordingWidget) }

func swordOf(t *testing.T, c *Character, hand Hand) *MeleeWeapon {
	t.Helper()
	w, ok := c.Equipment(hand).(*MeleeWeapon)
	require.True(t, ok, "expected a melee weapon in the %s hand", hand)
	return w
}

func activeName(c *Character) string {
	m, _ := c.Animator().Active()
	if m == nil {
		return ""
	}
	return m.Name
}
