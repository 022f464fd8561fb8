package game

import (
	"math"
	"sort"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game/spatial"
)

// moveSlack pads broad-phase queries for movement since the last rebuild.
const moveSlack = 100.0

// Arena is the spatial service of one node. It implements combat.World over
// the node's characters, with a grid rebuilt at the start of every tick.
type Arena struct {
	cfg        config.SpatialConfig
	grid       *spatial.SpatialGrid
	characters map[combat.CharacterID]*combat.Character
	order      []combat.CharacterID

	maxCapsule float64
	candidates []combat.CharacterID

	onSpawnProjectile func(owner *combat.Character, location combat.Vec3, yaw float64, params combat.RangedAttackParams)
	onDestroy         func(id combat.CharacterID, delay float64)
}

// NewArena creates an empty arena.
func NewArena(cfg config.SpatialConfig, maxCharacters int) *Arena {
	return &Arena{
		cfg:        cfg,
		grid:       spatial.NewSpatialGrid(cfg.ArenaSize, cfg.GridCellSize, maxCharacters),
		characters: make(map[combat.CharacterID]*combat.Character),
		maxCapsule: cfg.CapsuleRadius,
	}
}

// Add registers a character and makes it visible to queries at once.
func (a *Arena) Add(c *combat.Character) {
	if _, ok := a.characters[c.ID()]; !ok {
		a.order = append(a.order, c.ID())
	}
	a.characters[c.ID()] = c
	if r := c.CapsuleRadius(); r > a.maxCapsule {
		a.maxCapsule = r
	}
	loc := c.Location()
	a.grid.Insert(uint32(c.ID()), loc.X, loc.Y)
}

// Remove drops a character. It reports whether one was present.
func (a *Arena) Remove(id combat.CharacterID) bool {
	if _, ok := a.characters[id]; !ok {
		return false
	}
	delete(a.characters, id)
	for i, other := range a.order {
		if other == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

// Rebuild re-buckets every living character.
func (a *Arena) Rebuild() {
	a.grid.Clear()
	for _, id := range a.order {
		c := a.characters[id]
		if c.IsDead() {
			continue
		}
		loc := c.Location()
		a.grid.Insert(uint32(id), loc.X, loc.Y)
	}
}

// Order returns character ids in join order. The slice is owned by the
// arena.
func (a *Arena) Order() []combat.CharacterID { return a.order }

// Len returns the number of registered characters.
func (a *Arena) Len() int { return len(a.order) }

// Character implements combat.World.
func (a *Arena) Character(id combat.CharacterID) *combat.Character {
	return a.characters[id]
}

// gather copies broad-phase ids out of the grid scratch buffer, keeping
// living characters other than ignore, sorted by id.
func (a *Arena) gather(ids []uint32, ignore combat.CharacterID) []combat.CharacterID {
	a.candidates = a.candidates[:0]
	for _, raw := range ids {
		id := combat.CharacterID(raw)
		if id == ignore {
			continue
		}
		c, ok := a.characters[id]
		if !ok || c.IsDead() {
			continue
		}
		a.candidates = append(a.candidates, id)
	}
	sort.Slice(a.candidates, func(i, j int) bool { return a.candidates[i] < a.candidates[j] })
	// Characters added mid-tick can be bucketed twice.
	out := a.candidates[:0]
	for i, id := range a.candidates {
		if i > 0 && a.candidates[i-1] == id {
			continue
		}
		out = append(out, id)
	}
	a.candidates = out
	return out
}

// axis returns the end points of the capsule's inner segment.
func axis(c *combat.Character) (combat.Vec3, combat.Vec3) {
	half := math.Max(0, c.CapsuleHalfHeight()-c.CapsuleRadius())
	loc := c.Location()
	return loc.Sub(combat.Vec3{Z: half}), loc.Add(combat.Vec3{Z: half})
}

// OverlapSphere implements combat.World.
func (a *Arena) OverlapSphere(center combat.Vec3, radius float64, ignore combat.CharacterID) []*combat.Character {
	pad := radius + a.maxCapsule + moveSlack
	var out []*combat.Character
	for _, id := range a.gather(a.grid.QueryRadius(center.X, center.Y, pad), ignore) {
		c := a.characters[id]
		lo, hi := axis(c)
		if center.DistanceTo(closestOnSegment(center, lo, hi)) <= radius+c.CapsuleRadius() {
			out = append(out, c)
		}
	}
	return out
}

// SweepSphere implements combat.World. Hits are ordered by distance along
// the sweep.
func (a *Arena) SweepSphere(start, end combat.Vec3, radius float64, ignore combat.CharacterID) []combat.Hit {
	pad := radius + a.maxCapsule + moveSlack
	var hits []combat.Hit
	for _, id := range a.gather(a.grid.QuerySegment(start.X, start.Y, end.X, end.Y, pad), ignore) {
		c := a.characters[id]
		lo, hi := axis(c)
		onSweep, onAxis := closestBetweenSegments(start, end, lo, hi)
		if onSweep.DistanceTo(onAxis) > radius+c.CapsuleRadius() {
			continue
		}
		normal := onSweep.Sub(onAxis).SafeNormal(1e-4)
		if normal.IsNearlyZero() {
			normal = start.Sub(onAxis).Flatten().SafeNormal(1e-4)
		}
		hits = append(hits, combat.Hit{
			Character:    c,
			ImpactPoint:  onAxis.Add(normal.Scale(c.CapsuleRadius())),
			ImpactNormal: normal,
			Distance:     start.DistanceTo(onSweep),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// LineTrace implements combat.World.
func (a *Arena) LineTrace(start, end combat.Vec3, ignore combat.CharacterID) (combat.Hit, bool) {
	hits := a.SweepSphere(start, end, 0, ignore)
	if len(hits) == 0 {
		return combat.Hit{}, false
	}
	return hits[0], true
}

// SpawnProjectile implements combat.World.
func (a *Arena) SpawnProjectile(owner *combat.Character, location combat.Vec3, yaw float64, params combat.RangedAttackParams) {
	if a.onSpawnProjectile != nil {
		a.onSpawnProjectile(owner, location, yaw, params)
	}
}

// DestroyCharacter implements combat.World.
func (a *Arena) DestroyCharacter(id combat.CharacterID, delay float64) {
	if a.onDestroy != nil {
		a.onDestroy(id, delay)
	}
}

// SpawnPoint returns a point on the spawn ring and the yaw facing the
// centre. Slots are spread a quarter turn apart, then offset each lap.
func (a *Arena) SpawnPoint(slot int) (combat.Vec3, float64) {
	angle := float64(slot%4)*90 + float64(slot/4)*30
	dir := combat.YawForward(angle)
	return dir.Scale(a.cfg.SpawnRadius), combat.NormalizeAxis(angle + 180)
}

// =============================================================================
// GEOMETRY
// =============================================================================

// closestOnSegment returns the point of segment [a, b] nearest p.
func closestOnSegment(p, a, b combat.Vec3) combat.Vec3 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom == 0 {
		return a
	}
	t := clamp01(p.Sub(a).Dot(ab) / denom)
	return a.Add(ab.Scale(t))
}

// closestBetweenSegments returns the closest pair of points on segments
// [p1, q1] and [p2, q2].
func closestBetweenSegments(p1, q1, p2, q2 combat.Vec3) (combat.Vec3, combat.Vec3) {
	const eps = 1e-9
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)
	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a <= eps && e <= eps:
		return p1, p2
	case a <= eps:
		t = clamp01(f / e)
	default:
		c := d1.Dot(r)
		if e <= eps {
			s = clamp01(-c / a)
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > eps {
				s = clamp01((b*f - c*e) / denom)
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = clamp01(-c / a)
			} else if t > 1 {
				t = 1
				s = clamp01((b - c) / a)
			}
		}
	}
	return p1.Add(d1.Scale(s)), p2.Add(d2.Scale(t))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
