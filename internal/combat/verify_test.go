package combat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransaction(t *testing.T) {
	ok := NewDamageTransaction(2, Vec3{X: 10.4, Y: -3.6}, Pack(10, 40, 0.5), DamageSlash)
	require.NoError(t, ValidateTransaction(ok))
	assert.Equal(t, Vec3{X: 10, Y: -4}, ok.ImpactPoint, "impact points are quantized")

	bad := []DamageTransaction{
		{Target: 2, Packed: Pack(-1, 0, 0)},
		{Target: 2, Packed: Pack(0, -1, 0)},
		{Target: 2, Packed: Pack(0, 0, -1)},
		{Target: 2, Packed: Pack(math.NaN(), 0, 0)},
		{Target: 2, ImpactPoint: Vec3{X: math.Inf(1)}},
	}
	for _, tx := range bad {
		assert.ErrorIs(t, ValidateTransaction(tx), ErrInvalidRequest)
	}
}

func TestReverify(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0)
	target := n.spawn(t, Vec3{X: 100}, 180, remote)

	got, err := Reverify(n.world, attacker, NewDamageTransaction(target.ID(), Vec3{X: 70}, Pack(10, 0, 0), DamageSlash), 20)
	require.NoError(t, err)
	assert.Same(t, target, got)

	_, err = Reverify(n.world, attacker, NewDamageTransaction(target.ID(), Vec3{X: 10}, Pack(10, 0, 0), DamageSlash), 20)
	assert.ErrorIs(t, err, ErrVerificationMismatch)

	_, err = Reverify(n.world, attacker, NewDamageTransaction(99, Vec3{X: 70}, Pack(10, 0, 0), DamageSlash), 20)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = Reverify(n.world, attacker, NewDamageTransaction(attacker.ID(), Vec3{}, Pack(10, 0, 0), DamageSlash), 20)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = Reverify(nil, attacker, NewDamageTransaction(target.ID(), Vec3{X: 70}, Pack(10, 0, 0), DamageSlash), 20)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestVerifyOverlapRejectsAndReports(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0)
	target := n.spawn(t, Vec3{X: 500}, 180, remote)

	out := attacker.VerifyOverlapForDamage(NewDamageTransaction(target.ID(), Vec3{X: 70}, Pack(10, 40, 0.5), DamageSlash))
	assert.Equal(t, OutcomeRejected, out.Kind)
	assert.Equal(t, StageReverify, out.Stage)
	assert.ErrorIs(t, out.Err, ErrVerificationMismatch)
	assert.Equal(t, 100.0, target.Health())

	out = attacker.VerifyOverlapForDamage(NewDamageTransaction(target.ID(), Vec3{X: 500}, Pack(-5, 0, 0), DamageSlash))
	assert.Equal(t, StageValidate, out.Stage)
	assert.ErrorIs(t, out.Err, ErrInvalidRequest)

	assert.Len(t, n.observer.outcomes, 2)
}

// =============================================================================
// ADJUDICATION
// =============================================================================

// duel places an attacker and the server copy of a remote target in reach.
func duel(t *testing.T) (*testNode, *Character, *Character) {
	t.Helper()
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0)
	target := n.spawn(t, Vec3{X: 100}, 180, remote)
	return n, attacker, target
}

func slash(target *Character, damage float64) DamageTransaction {
	return NewDamageTransaction(target.ID(), target.Location(), Pack(damage, 40, 0.5), DamageSlash)
}

func kick(target *Character) DamageTransaction {
	return NewDamageTransaction(target.ID(), target.Location(), Pack(0, 90, 0), DamageKick)
}

func TestAdjudicateInvincibleIgnoresEverything(t *testing.T) {
	n, attacker, target := duel(t)
	target.invincible = true
	target.parryCanStagger = true

	out := Adjudicate(attacker, target, slash(target, 500))
	assert.Equal(t, OutcomeInvincible, out.Kind)
	assert.Equal(t, 100.0, target.Health())
	assert.False(t, attacker.IsStaggered())
	assert.Empty(t, n.net.owner)
	assert.Empty(t, n.net.sounds())
}

func TestAdjudicateParryStaggersAttacker(t *testing.T) {
	n, attacker, target := duel(t)
	target.parryCanStagger = true
	target.blocking = true

	out := Adjudicate(attacker, target, slash(target, 10))
	assert.Equal(t, OutcomeParried, out.Kind)
	assert.Equal(t, 100.0, target.Health())
	assert.True(t, attacker.IsStaggered(), "the attacker's own node runs the stagger")
	assert.Equal(t, "stagger", activeName(attacker))
	assert.Equal(t, []Sound{SoundParry}, n.net.sounds())
}

func TestAdjudicateParriedKickDrainsTarget(t *testing.T) {
	n, attacker, target := duel(t)
	target.parryCanStagger = true

	out := Adjudicate(attacker, target, kick(target))
	assert.Equal(t, OutcomeParryKick, out.Kind)
	assert.False(t, attacker.IsStaggered())
	assert.Equal(t, []OwnerCall{ClientDepleteEnduranceCanStagger{Endurance: 90}}, n.net.ownerCalls(target.ID()))
	assert.Equal(t, []Sound{SoundKickInterrupt}, n.net.sounds())
}

func TestAdjudicateBlockUsesTargetShield(t *testing.T) {
	n, attacker, target := duel(t)
	n.equip(t, target, LeftHand, "shield")
	target.blocking = true
	target.shieldLeftHanded = true

	out := Adjudicate(attacker, target, slash(target, 10))
	assert.Equal(t, OutcomeBlocked, out.Kind)
	assert.InDelta(t, 5, out.Damage, 1e-9)
	assert.InDelta(t, 28, out.EnduranceDamage, 1e-9)
	assert.InDelta(t, 95, target.Health(), 1e-9)

	calls := n.net.ownerCalls(target.ID())
	require.Len(t, calls, 1)
	drain, ok := calls[0].(ClientDepleteEnduranceCanStagger)
	require.True(t, ok)
	assert.InDelta(t, 28, drain.Endurance, 1e-9)
	assert.Equal(t, []Sound{SoundBlockAttack}, n.net.sounds())
	assert.Equal(t, []float64{5}, widgetOf(target).damage, "the popup shows absorbed damage")
}

func TestAdjudicateBlockedKick(t *testing.T) {
	n, attacker, target := duel(t)
	n.equip(t, target, RightHand, "shield")
	target.blocking = true

	out := Adjudicate(attacker, target, kick(target))
	assert.Equal(t, OutcomeBlocked, out.Kind)
	assert.Equal(t, []Sound{SoundKickBlocked}, n.net.sounds())
	assert.Equal(t, 100.0, target.Health())
}

func TestAdjudicateBlockingWithoutShieldIsRejected(t *testing.T) {
	_, attacker, target := duel(t)
	target.blocking = true

	out := Adjudicate(attacker, target, slash(target, 10))
	assert.Equal(t, OutcomeRejected, out.Kind)
	assert.ErrorIs(t, out.Err, ErrInvalidReference)
	assert.Equal(t, 100.0, target.Health())
}

func TestAdjudicateKickStuns(t *testing.T) {
	n, attacker, target := duel(t)

	out := Adjudicate(attacker, target, kick(target))
	assert.Equal(t, OutcomeKickStun, out.Kind)
	assert.Equal(t, []OwnerCall{ClientStunned{StunTime: 0.1}}, n.net.ownerCalls(target.ID()))
	assert.Equal(t, 100.0, target.Health())
}

func TestAdjudicateHitDamagesAndStuns(t *testing.T) {
	n, attacker, target := duel(t)

	out := Adjudicate(attacker, target, slash(target, 10))
	assert.Equal(t, OutcomeHit, out.Kind)
	assert.Equal(t, 90.0, target.Health())
	assert.Equal(t, 90.0, out.TargetHealth)
	assert.False(t, out.Killed)
	assert.Equal(t, []OwnerCall{ClientStunned{StunTime: 0.5}}, n.net.ownerCalls(target.ID()))
	assert.Equal(t, []Sound{SoundAttackHit}, n.net.sounds())
}

func TestAdjudicateLethalHitKillsOnce(t *testing.T) {
	n, attacker, target := duel(t)
	n.equip(t, target, RightHand, "sword")
	target.health = 10

	out := Adjudicate(attacker, target, slash(target, 25))
	assert.Equal(t, OutcomeHit, out.Kind)
	assert.True(t, out.Killed)
	assert.Equal(t, 0.0, target.Health(), "health clamps at zero")
	assert.True(t, target.IsDead())
	assert.True(t, target.IsRagdoll())
	assert.True(t, target.Equipment(RightHand).Destroyed())
	assert.Equal(t, 5.0, n.world.destroyed[target.ID()])
	assert.Empty(t, n.net.ownerCalls(target.ID()), "the dead are not stunned")

	kills := 0
	for _, m := range n.net.multicast {
		if _, ok := m.call.(MulticastKill); ok {
			kills++
		}
	}
	assert.Equal(t, 1, kills)

	again := Adjudicate(attacker, target, slash(target, 25))
	assert.False(t, again.Killed, "a second lethal claim does not kill twice")
	assert.Equal(t, 0.0, target.Health())
}

func TestKillCharacterIgnoresProxies(t *testing.T) {
	n := newTestNode()
	proxy := n.spawn(t, Vec3{}, 0, func(o *CharacterOptions) {
		o.Role = RoleSimulatedProxy
		o.LocallyControlled = false
		o.Mode = Client
	})
	assert.False(t, KillCharacter(proxy))
	assert.False(t, proxy.IsDead())
	assert.False(t, KillCharacter(nil))
}

func TestListenServerSelfNotifiesHealth(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0, func(o *CharacterOptions) { o.Mode = ListenServer })
	host := n.spawn(t, Vec3{X: 100}, 180, func(o *CharacterOptions) { o.Mode = ListenServer })

	Adjudicate(attacker, host, slash(host, 10))
	assert.Equal(t, []float64{90}, widgetOf(host).health)
	assert.Empty(t, widgetOf(host).damage, "no popup over the host's own head")
}

func TestDedicatedServerDoesNotSelfNotify(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0, func(o *CharacterOptions) { o.Mode = DedicatedServer; o.LocallyControlled = false })
	target := n.spawn(t, Vec3{X: 100}, 180, func(o *CharacterOptions) { o.Mode = DedicatedServer; o.LocallyControlled = false })

	Adjudicate(attacker, target, slash(target, 10))
	assert.Empty(t, widgetOf(target).health)
}

// =============================================================================
// SPECIAL ATTACKS
// =============================================================================

func TestVerifyBackStabThresholds(t *testing.T) {
	tests := []struct {
		name      string
		at        Vec3
		yaw       float64
		wantKind  OutcomeKind
		wantHealt float64
	}{
		{"behind and close", Vec3{X: 60}, 0, OutcomeBackStab, 70},
		{"too far", Vec3{X: 150}, 0, OutcomeRejected, 100},
		{"facing", Vec3{X: 60}, 180, OutcomeRejected, 100},
		{"side on", Vec3{X: 60}, 90, OutcomeRejected, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNode()
			attacker := n.spawn(t, Vec3{}, 0)
			target := n.spawn(t, tt.at, tt.yaw, remote)

			out := attacker.VerifyBackStab(target.ID(), 30)
			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantHealt, target.Health())
		})
	}
}

func TestVerifyRiposteThresholds(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0)
	facing := n.spawn(t, Vec3{X: 60}, 180, remote)
	behind := n.spawn(t, Vec3{Y: 60}, 0, remote)

	assert.Equal(t, OutcomeRiposte, attacker.VerifyRiposte(facing.ID(), 40).Kind)
	assert.Equal(t, 60.0, facing.Health())

	out := attacker.VerifyRiposte(behind.ID(), 40)
	assert.ErrorIs(t, out.Err, ErrVerificationMismatch)
	assert.Equal(t, 100.0, behind.Health())
}

func TestVerifySpecialSkipsInvincibleAndBadInput(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0)
	target := n.spawn(t, Vec3{X: 60}, 0, remote)
	target.invincible = true

	assert.Equal(t, OutcomeInvincible, attacker.VerifyBackStab(target.ID(), 30).Kind)
	assert.Equal(t, 100.0, target.Health())

	target.invincible = false
	assert.ErrorIs(t, attacker.VerifyBackStab(target.ID(), math.NaN()).Err, ErrInvalidRequest)
	assert.ErrorIs(t, attacker.VerifyBackStab(77, 30).Err, ErrInvalidReference)
	assert.ErrorIs(t, attacker.VerifyBackStab(attacker.ID(), 30).Err, ErrInvalidReference)
}

func TestLethalBackStabKills(t *testing.T) {
	n := newTestNode()
	attacker := n.spawn(t, Vec3{}, 0)
	target := n.spawn(t, Vec3{X: 60}, 0, remote)
	target.health = 30

	out := attacker.VerifyBackStab(target.ID(), 30)
	assert.True(t, out.Killed)
	assert.True(t, target.IsDead())
	assert.Empty(t, n.net.ownerCalls(target.ID()))
}

func TestApplyProjectileHit(t *testing.T) {
	n, attacker, target := duel(t)
	bow := DefaultBowParams()

	out := ApplyProjectileHit(attacker, target, target.Location(), bow)
	assert.Equal(t, OutcomeHit, out.Kind)
	assert.Equal(t, StageProjectile, out.Stage)
	assert.Equal(t, DamagePierce, out.DamageType)
	assert.Equal(t, 90.0, target.Health())
	assert.Equal(t, OutcomeHit, n.observer.last(t).Kind)
}
