package client

import (
	"context"
	"time"

	"github.com/samalo0/Ceremony/internal/combat"
)

// sightRange is how far a sparring partner looks for an opponent.
const sightRange = 3000

// Step is one scripted input. Do runs, the script waits Hold, then Undo
// runs if set. Both run on the engine's tick goroutine.
type Step struct {
	Name string
	Do   func(*combat.Character)
	Hold time.Duration
	Undo func(*combat.Character)
}

// DefaultScript closes in on the nearest opponent and cycles through
// attack, block, kick and roll.
func DefaultScript() []Step {
	return []Step{
		{Name: "face", Do: FaceNearest, Hold: 50 * time.Millisecond},
		{Name: "lock on", Do: func(c *combat.Character) {
			if !c.IsLockedOn() {
				c.LockOnPress()
			}
		}, Hold: 100 * time.Millisecond},
		{Name: "close in", Do: func(c *combat.Character) {
			FaceNearest(c)
			c.MoveInput(1, 0)
		}, Hold: 600 * time.Millisecond, Undo: stop},
		{Name: "attack", Do: func(c *combat.Character) { c.HandPress1(combat.RightHand) }, Hold: 900 * time.Millisecond},
		{Name: "block", Do: func(c *combat.Character) { c.HandPress1(combat.LeftHand) }, Hold: time.Second,
			Undo: func(c *combat.Character) { c.HandRelease1(combat.LeftHand) }},
		{Name: "kick", Do: func(c *combat.Character) { c.Kick() }, Hold: 700 * time.Millisecond},
		{Name: "roll", Do: func(c *combat.Character) {
			c.MoveInput(-1, 0)
			c.Roll()
		}, Hold: 700 * time.Millisecond, Undo: stop},
	}
}

func stop(c *combat.Character) { c.MoveInput(0, 0) }

// FaceNearest turns the control rotation toward the closest living
// opponent in sight.
func FaceNearest(c *combat.Character) {
	if c.World() == nil {
		return
	}
	var best *combat.Character
	bestDist := 0.0
	for _, o := range c.World().OverlapSphere(c.Location(), sightRange, c.ID()) {
		if o.IsDead() {
			continue
		}
		if d := c.Location().DistanceTo(o.Location()); best == nil || d < bestDist {
			best, bestDist = o, d
		}
	}
	if best == nil {
		return
	}
	yaw := combat.YawOf(best.Location().Sub(c.Location()))
	c.SetControlRotation(yaw, 0)
	c.SetYaw(yaw)
}

// Spar loops script on the local character until ctx ends or the session
// drops.
func (c *Client) Spar(ctx context.Context, script []Step) error {
	if len(script) == 0 {
		script = DefaultScript()
	}
	for {
		for _, step := range script {
			c.log.Debug().Str("step", step.Name).Msg("sparring")
			c.engine.Control(0, step.Do)
			if !c.wait(ctx, step.Hold) {
				if err := ctx.Err(); err != nil {
					return err
				}
				return c.Err()
			}
			if step.Undo != nil {
				c.engine.Control(0, step.Undo)
			}
		}
	}
}

// wait sleeps d unless ctx ends or the session drops first.
func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	}
}
