package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBowOccupiesBothHands(t *testing.T) {
	n := newTestNode()
	c := n.spawn(t, Vec3{}, 0)
	n.equip(t, c, LeftHand, "shield")
	n.equip(t, c, RightHand, "bow")

	assert.Nil(t, c.Equipment(LeftHand))
	require.NotNil(t, c.Equipment(RightHand))
	assert.Equal(t, EquippedTwoHand, c.Equipment(RightHand).State())
	assert.False(t, c.MeleeLocomotion())
}

func TestBowDrawHoldAndRelease(t *testing.T) {
	n := newTestNode()
	c := n.spawn(t, Vec3{}, 0)
	n.equip(t, c, RightHand, "bow")
	bow := c.Equipment(RightHand).(*RangedWeapon)

	c.HandPress1(LeftHand)
	assert.True(t, c.IsAttacking())
	assert.True(t, c.IsAiming())
	assert.True(t, bow.IsPreparing())
	assert.Equal(t, "bow_draw", activeName(c))

	n.step(0.55)
	assert.False(t, bow.IsPreparing())
	assert.True(t, bow.IsDrawn())
	assert.Empty(t, n.world.spawned, "holding keeps the arrow nocked")

	c.HandRelease1(LeftHand)
	require.Len(t, n.world.spawned, 1)
	shot := n.world.spawned[0]
	assert.Equal(t, c.ID(), shot.owner)
	assert.Equal(t, Vec3{X: 40, Z: 50}, shot.location)
	assert.Equal(t, 0.0, shot.yaw)
	assert.Equal(t, DamagePierce, shot.params.Damage.DamageType)

	assert.False(t, c.IsAiming())
	assert.Equal(t, 80.0, c.Endurance())
	assert.Equal(t, "bow_fire", activeName(c))

	n.run(0.6)
	assert.False(t, c.IsAttacking())
	assert.True(t, c.AllowEnduranceRecovery())
}

func TestBowEarlyReleaseFiresWhenPrepared(t *testing.T) {
	n := newTestNode()
	c := n.spawn(t, Vec3{}, 90)
	n.equip(t, c, RightHand, "bow")

	c.HandPress1(LeftHand)
	n.step(0.1)
	c.HandRelease1(LeftHand)
	assert.Empty(t, n.world.spawned)

	n.step(0.45)
	require.Len(t, n.world.spawned, 1)
	assert.Equal(t, 90.0, n.world.spawned[0].yaw)
	assert.Equal(t, Vec3{X: 0, Y: 40, Z: 50}, n.world.spawned[0].location)
}

func TestBowCancelClearsAim(t *testing.T) {
	n := newTestNode()
	c := n.spawn(t, Vec3{}, 0)
	n.equip(t, c, RightHand, "bow")
	bow := c.Equipment(RightHand).(*RangedWeapon)

	c.HandPress1(LeftHand)
	c.CancelActions()

	assert.False(t, c.IsAiming())
	assert.False(t, c.IsAttacking())
	assert.False(t, bow.IsDrawn())
}

func TestBowDrawQueuedWhileKicking(t *testing.T) {
	n := newTestNode()
	c := n.spawn(t, Vec3{}, 0)
	n.equip(t, c, RightHand, "bow")

	c.Kick()
	c.HandPress1(LeftHand)
	assert.False(t, c.IsAiming())

	n.run(1.0)
	assert.True(t, c.IsAiming(), "the draw starts when the kick ends")
}

func TestSpawnProjectileNeedsRangedWeapon(t *testing.T) {
	n := newTestNode()
	c := n.spawn(t, Vec3{}, 0)
	n.equip(t, c, RightHand, "sword")

	c.ServerSpawnProjectile(Vec3{}, 0)
	assert.Empty(t, n.world.spawned)
}
