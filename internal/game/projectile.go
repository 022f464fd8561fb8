package game

import (
	"github.com/samalo0/Ceremony/internal/combat"
)

// Projectile system constants, in seconds and centimetres.
const (
	ProjectileFlightTime = 3.0 // Unstuck projectiles expire after this
	ProjectileLifeSpan   = 5.0 // Time a projectile stays after impact
	ProjectileRadius     = 4.0 // Sweep radius
)

// Projectile is an arrow in flight on the authority. It travels in a
// straight line along the firing yaw, sweeps between positions each tick
// and attaches to the first pawn it touches.
type Projectile struct {
	ID       uint64
	Owner    *combat.Character
	Location combat.Vec3
	Velocity combat.Vec3
	Yaw      float64
	Params   combat.RangedAttackParams

	Age     float64
	Stuck   bool
	StuckTo combat.CharacterID
	offset  combat.Vec3 // from the attached character
}

// NewProjectile launches a projectile from location along yaw.
func NewProjectile(id uint64, owner *combat.Character, location combat.Vec3, yaw float64, params combat.RangedAttackParams) *Projectile {
	return &Projectile{
		ID:       id,
		Owner:    owner,
		Location: location,
		Velocity: combat.YawForward(yaw).Scale(params.ProjectileSpeed),
		Yaw:      yaw,
		Params:   params,
	}
}

// Update moves the projectile through world and applies a hit to the first
// pawn swept. It returns the outcome of a hit, if any, and whether the
// projectile should be kept.
func (p *Projectile) Update(world combat.World, dt float64) (*combat.Outcome, bool) {
	p.Age += dt
	if p.Stuck {
		if host := world.Character(p.StuckTo); host != nil {
			p.Location = host.Location().Add(p.offset)
		}
		return nil, p.Age < ProjectileLifeSpan
	}
	if p.Age >= ProjectileFlightTime {
		return nil, false
	}

	next := p.Location.Add(p.Velocity.Scale(dt))
	ignore := combat.CharacterID(0)
	if p.Owner != nil {
		ignore = p.Owner.ID()
	}
	hits := world.SweepSphere(p.Location, next, ProjectileRadius, ignore)
	if len(hits) == 0 {
		p.Location = next
		return nil, true
	}

	hit := hits[0]
	p.Stuck = true
	p.StuckTo = hit.Character.ID()
	p.Location = hit.ImpactPoint
	p.offset = hit.ImpactPoint.Sub(hit.Character.Location())
	p.Velocity = combat.Vec3{}
	p.Age = 0
	if p.Owner == nil {
		return nil, true
	}
	o := combat.ApplyProjectileHit(p.Owner, hit.Character, hit.ImpactPoint, p.Params)
	return &o, true
}

// ProjectileSnapshot is an immutable copy of projectile state.
type ProjectileSnapshot struct {
	ID       uint64             `json:"id"`
	Owner    combat.CharacterID `json:"owner"`
	Location combat.Vec3        `json:"location"`
	Yaw      float64            `json:"yaw"`
	Stuck    bool               `json:"stuck"`
}

// ToSnapshot creates an immutable snapshot.
func (p *Projectile) ToSnapshot() ProjectileSnapshot {
	s := ProjectileSnapshot{
		ID:       p.ID,
		Location: p.Location,
		Yaw:      p.Yaw,
		Stuck:    p.Stuck,
	}
	if p.Owner != nil {
		s.Owner = p.Owner.ID()
	}
	return s
}
