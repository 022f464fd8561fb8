package combat

// ActionKind tags the in-flight action a continuation completes.
type ActionKind uint8

const (
	ActionAttack ActionKind = iota
	ActionKick
	ActionRoll
	ActionParry
	ActionBlockImpact
	ActionFire
	ActionVictim
	ActionYawCorrection
)

func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionKick:
		return "kick"
	case ActionRoll:
		return "roll"
	case ActionParry:
		return "parry"
	case ActionBlockImpact:
		return "block_impact"
	case ActionFire:
		return "fire"
	case ActionVictim:
		return "victim"
	case ActionYawCorrection:
		return "yaw_correction"
	default:
		return "action"
	}
}

// continuationGrace is how long past its deadline a continuation may wait
// before it is forced to complete as interrupted.
const continuationGrace = 1.0

// PendingAction is the completion continuation of the montage currently
// playing. It is bound to one montage instance and one cancellation
// generation; anything else delivering to it is a no-op.
type PendingAction struct {
	Kind     ActionKind
	Handler  func(interrupted bool)
	Deadline float64

	montage    *Montage
	instance   uint64
	generation uint64
}

// SetOnMontageEnded binds handler to the montage that is playing now. It
// replaces any previous continuation.
func (c *Character) SetOnMontageEnded(kind ActionKind, handler func(interrupted bool)) {
	m, instance := c.anim.Active()
	if m == nil {
		// Nothing is playing, so nothing will ever end. Complete at once
		// rather than leave the action stuck.
		c.log.Debug().Str("action", kind.String()).Msg("continuation bound with no montage playing")
		handler(true)
		return
	}
	c.pending = &PendingAction{
		Kind:       kind,
		Handler:    handler,
		Deadline:   c.Now() + (m.Length - c.anim.Position()),
		montage:    m,
		instance:   instance,
		generation: c.generation,
	}
}

// ClearOnMontageEnded drops the current continuation.
func (c *Character) ClearOnMontageEnded() {
	c.pending = nil
}

// Pending returns the continuation waiting for the active montage, if any.
func (c *Character) Pending() *PendingAction {
	return c.pending
}

// invalidateContinuations makes every outstanding continuation stale.
func (c *Character) invalidateContinuations() {
	c.generation++
	c.pending = nil
}

// completeMontage delivers a montage end to its continuation.
func (c *Character) completeMontage(m *Montage, instance uint64, interrupted bool) {
	p := c.pending
	if p == nil || p.montage != m || p.instance != instance || p.generation != c.generation {
		return
	}
	c.pending = nil
	p.Handler(interrupted)
}

// expireContinuation forces a continuation whose montage can no longer end
// naturally (looping or lost) to complete once its deadline has passed.
func (c *Character) expireContinuation() {
	p := c.pending
	if p == nil || c.Now() <= p.Deadline+continuationGrace {
		return
	}
	if c.anim.IsPlaying(p.montage) {
		if _, inst := c.anim.Active(); inst == p.instance {
			// Still legitimately playing, e.g. a looping section.
			return
		}
	}
	c.log.Warn().Str("action", p.Kind.String()).Msg("continuation expired")
	c.pending = nil
	p.Handler(true)
}
