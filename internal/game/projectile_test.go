package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/combat"
)

func TestProjectileFlightAndHit(t *testing.T) {
	a := newTestArena()
	archer := addBody(a, 1, combat.Vec3{})
	target := addBody(a, 2, combat.Vec3{X: 500})
	a.Rebuild()

	params := combat.DefaultBowParams()
	p := NewProjectile(1, archer, archer.Location(), 0, params)
	assert.InDelta(t, params.ProjectileSpeed, p.Velocity.X, 1e-9)

	var outcome *combat.Outcome
	for i := 0; i < 10 && !p.Stuck; i++ {
		var keep bool
		outcome, keep = p.Update(a, testDT)
		require.True(t, keep)
	}
	require.True(t, p.Stuck)
	require.NotNil(t, outcome)

	assert.Equal(t, combat.OutcomeHit, outcome.Kind)
	assert.Equal(t, combat.StageProjectile, outcome.Stage)
	assert.Equal(t, combat.DamagePierce, outcome.DamageType)
	assert.Equal(t, 90.0, target.Health())
	assert.Equal(t, combat.CharacterID(2), p.StuckTo)
	assert.InDelta(t, 466, p.Location.X, 1e-6, "rests on the capsule")
	assert.Zero(t, p.Age)
}

func TestProjectileFollowsHost(t *testing.T) {
	a := newTestArena()
	archer := addBody(a, 1, combat.Vec3{})
	target := addBody(a, 2, combat.Vec3{X: 500})
	a.Rebuild()

	p := NewProjectile(1, archer, combat.Vec3{}, 0, combat.DefaultBowParams())
	for i := 0; i < 10 && !p.Stuck; i++ {
		p.Update(a, testDT)
	}
	require.True(t, p.Stuck)

	target.SetLocation(combat.Vec3{X: 500, Y: 200})
	_, keep := p.Update(a, testDT)
	assert.True(t, keep)
	assert.InDelta(t, 466, p.Location.X, 1e-6)
	assert.InDelta(t, 200, p.Location.Y, 1e-6)

	// Stuck arrows last their life span.
	_, keep = p.Update(a, ProjectileLifeSpan)
	assert.False(t, keep)
}

func TestProjectileIgnoresOwner(t *testing.T) {
	a := newTestArena()
	archer := addBody(a, 1, combat.Vec3{})
	a.Rebuild()

	p := NewProjectile(1, archer, combat.Vec3{X: -10}, 0, combat.DefaultBowParams())
	outcome, keep := p.Update(a, testDT)
	assert.Nil(t, outcome)
	assert.True(t, keep)
	assert.False(t, p.Stuck)
	assert.Equal(t, 100.0, archer.Health())
}

func TestProjectileExpiresInFlight(t *testing.T) {
	a := newTestArena()
	archer := addBody(a, 1, combat.Vec3{})
	a.Rebuild()

	p := NewProjectile(1, archer, combat.Vec3{}, 90, combat.DefaultBowParams())
	_, keep := p.Update(a, 1)
	assert.True(t, keep)
	_, keep = p.Update(a, ProjectileFlightTime)
	assert.False(t, keep)
}

func TestProjectileSnapshot(t *testing.T) {
	a := newTestArena()
	archer := addBody(a, 7, combat.Vec3{})
	p := NewProjectile(3, archer, combat.Vec3{Z: 50}, 45, combat.DefaultBowParams())

	s := p.ToSnapshot()
	assert.Equal(t, uint64(3), s.ID)
	assert.Equal(t, combat.CharacterID(7), s.Owner)
	assert.Equal(t, 45.0, s.Yaw)
	assert.False(t, s.Stuck)
}
