package game

import (
	"sync"
	"time"

	"github.com/samalo0/Ceremony/internal/combat"
)

// CharacterSnapshot is an immutable copy of one character's state.
// Uses value types (not pointers) to ensure immutability
type CharacterSnapshot struct {
	ID           combat.CharacterID `json:"id"`
	Name         string             `json:"name"`
	PlayerNumber int                `json:"player_number"`
	Role         string             `json:"role"`
	Location     combat.Vec3        `json:"location"`
	Yaw          float64            `json:"yaw"`

	Health       float64 `json:"health"`
	HealthMax    float64 `json:"health_max"`
	Endurance    float64 `json:"endurance"`
	EnduranceMax float64 `json:"endurance_max"`

	Attacking  bool `json:"attacking"`
	Blocking   bool `json:"blocking"`
	Parrying   bool `json:"parrying"`
	Rolling    bool `json:"rolling"`
	Kicking    bool `json:"kicking"`
	Stunned    bool `json:"stunned"`
	Staggered  bool `json:"staggered"`
	Invincible bool `json:"invincible"`
	Running    bool `json:"running"`
	LockedOn   bool `json:"locked_on"`
	Dead       bool `json:"dead"`

	RightHand string `json:"right_hand,omitempty"`
	LeftHand  string `json:"left_hand,omitempty"`
	Montage   string `json:"montage,omitempty"`

	Kills  int `json:"kills"`
	Deaths int `json:"deaths"`
}

func snapshotCharacter(c *combat.Character) CharacterSnapshot {
	rep := c.Snapshot()
	s := CharacterSnapshot{
		ID:           c.ID(),
		Name:         c.Name(),
		PlayerNumber: c.PlayerNumber(),
		Role:         c.Role().String(),
		Location:     c.Location(),
		Yaw:          c.Yaw(),
		Health:       c.Health(),
		HealthMax:    c.HealthMax(),
		Endurance:    c.Endurance(),
		EnduranceMax: c.EnduranceMax(),
		Attacking:    c.IsAttacking(),
		Blocking:     c.IsBlocking(),
		Parrying:     c.IsParrying(),
		Rolling:      c.IsRolling(),
		Kicking:      c.IsKicking(),
		Stunned:      c.IsStunned(),
		Staggered:    c.IsStaggered(),
		Invincible:   c.IsInvincible(),
		Running:      c.IsRunning(),
		LockedOn:     c.IsLockedOn(),
		Dead:         c.IsDead(),
		RightHand:    rep.RightHand,
		LeftHand:     rep.LeftHand,
	}
	if m, _ := c.Animator().Active(); m != nil {
		s.Montage = m.Name
	}
	return s
}

// GameSnapshot is a complete immutable view of a node for the API.
// Slices are pre-allocated and capped by the resource limits.
type GameSnapshot struct {
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Tick      uint64    `json:"tick"`
	RoundID   string    `json:"round_id"`
	Mode      string    `json:"mode"`

	Characters  []CharacterSnapshot  `json:"characters"`
	Projectiles []ProjectileSnapshot `json:"projectiles"`

	PlayerCount int `json:"player_count"`
	AliveCount  int `json:"alive_count"`
	TotalKills  int `json:"total_kills"`
}

// Clone deep-copies the snapshot.
func (s *GameSnapshot) Clone() GameSnapshot {
	out := *s
	out.Characters = append([]CharacterSnapshot(nil), s.Characters...)
	out.Projectiles = append([]ProjectileSnapshot(nil), s.Projectiles...)
	return out
}

// SnapshotPool is a triple buffer between the tick goroutine and readers.
// The producer fills a buffer no reader can see, then publishes it; the
// lock is only held to swap and to copy out.
type SnapshotPool struct {
	mu        sync.RWMutex
	snapshots [3]GameSnapshot
	published int
	writing   int
	sequence  uint64
}

// NewSnapshotPool creates a pool with pre-allocated slices.
func NewSnapshotPool(maxCharacters, maxProjectiles int) *SnapshotPool {
	pool := &SnapshotPool{writing: -1}
	for i := range pool.snapshots {
		pool.snapshots[i] = GameSnapshot{
			Characters:  make([]CharacterSnapshot, 0, maxCharacters),
			Projectiles: make([]ProjectileSnapshot, 0, maxProjectiles),
		}
	}
	return pool
}

// AcquireWrite returns an unpublished buffer with reset slices (producer
// only).
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	p.writing = (p.published + 1) % len(p.snapshots)
	snap := &p.snapshots[p.writing]
	snap.Characters = snap.Characters[:0]
	snap.Projectiles = snap.Projectiles[:0]
	snap.PlayerCount, snap.AliveCount, snap.TotalKills = 0, 0, 0

	p.sequence++
	snap.Sequence = p.sequence
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite makes the buffer from AcquireWrite the latest.
func (p *SnapshotPool) PublishWrite() {
	if p.writing < 0 {
		return
	}
	p.mu.Lock()
	p.published = p.writing
	p.mu.Unlock()
	p.writing = -1
}

// Latest returns a copy of the most recently published snapshot.
func (p *SnapshotPool) Latest() GameSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshots[p.published].Clone()
}
