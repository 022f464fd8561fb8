package combat

// =============================================================================
// STANDARD ACTIONS
// =============================================================================

// Kick starts a kick, or queues one for the next resume when the character
// is busy.
func (c *Character) Kick() {
	if !c.CanPerformStandardAction() {
		c.kickOnResume = true
		return
	}
	c.kickOnResume = false

	if c.blocking {
		c.CancelBlocking()
	}
	if c.running {
		c.SetIsRunning(false)
	}
	clear(c.kickedActors)

	c.DepleteEndurance(c.cfg.KickEnduranceConsumption)
	c.allowEnduranceRecovery = false
	c.allowMovement = false
	c.kicking = true
	c.PlayMontageGlobally(c.montages.Kick, "")
	c.SetOnMontageEnded(ActionKick, c.onKickEnded)
}

func (c *Character) onKickEnded(bool) {
	c.allowEnduranceRecovery = true
	c.allowMovement = true
	c.kicking = false
	c.kickCanDamage = false
	c.CheckForResumingAction()
}

// Roll starts a roll, or queues one for the next resume.
func (c *Character) Roll() {
	if !c.CanPerformStandardAction() {
		c.rollOnResume = true
		return
	}
	c.rollOnResume = false

	if c.blocking {
		c.CancelBlocking()
	}
	if !c.moveInput.IsNearlyZero() {
		dir := YawForward(c.controlYaw).Scale(c.moveInput.X).Add(YawRight(c.controlYaw).Scale(c.moveInput.Y))
		c.yaw = YawOf(dir)
	}

	c.DepleteEndurance(c.cfg.RollEnduranceConsumption)
	c.allowEnduranceRecovery = false
	c.allowMovement = false
	c.rolling = true
	c.PlayMontageGlobally(c.montages.Roll, "")
	c.SetOnMontageEnded(ActionRoll, c.onRollEnded)
}

func (c *Character) onRollEnded(bool) {
	c.allowEnduranceRecovery = true
	c.allowMovement = true
	c.StopMontageGlobally()
	c.rolling = false
	c.CheckForResumingAction()
}

// RunPress starts running. A character below zero endurance cannot run.
func (c *Character) RunPress() {
	if c.endurance < 0 {
		return
	}
	c.SetIsRunning(true)
	c.runHeld = true
	c.runPressedAt = c.Now()
}

// RunRelease stops running; a short tap rolls instead.
func (c *Character) RunRelease() {
	c.SetIsRunning(false)
	c.runHeld = false
	if c.Now()-c.runPressedAt < c.cfg.RollPressReleaseTime {
		c.Roll()
	}
}

// Jump leaves the ground for JumpAirTime seconds.
func (c *Character) Jump() {
	if c.falling || c.endurance <= 0 {
		return
	}
	c.DepleteEndurance(c.cfg.JumpEnduranceConsumption)
	c.falling = true
	c.landTimer = c.After(c.cfg.JumpAirTime, func() {
		c.landTimer = 0
		c.falling = false
	})
}

// =============================================================================
// CANCELLATION & RESUME
// =============================================================================

// CancelActions stops every action in flight. It is safe to call at any
// time and more than once. Costs already paid stay paid.
func (c *Character) CancelActions() {
	for _, e := range [...]Equipment{c.left, c.right} {
		if e != nil && !e.Destroyed() {
			e.CancelActions()
		}
	}

	c.attacking = false
	c.kicking = false
	c.kickCanDamage = false
	c.parrying = false
	c.rolling = false
	c.SetIsRunning(false)
	if c.staggered {
		c.SetIsStaggered(false)
	}
	c.staggerTimer = 0
	c.stunned = false

	c.invalidateContinuations()
	if m, _ := c.anim.Active(); m != nil {
		c.StopMontageGlobally()
	}
	c.allowMovement = true
	c.allowEnduranceRecovery = true
}

// CancelBlocking lowers the shield.
func (c *Character) CancelBlocking() {
	if s := c.shield(); s != nil {
		s.CancelActions()
	}
	if c.blocking {
		c.SetIsBlocking(false, c.shieldLeftHanded)
	}
}

// CheckForResumingAction retriggers the action queued while the character
// was busy. Roll wins over kick, and both win over equipment.
func (c *Character) CheckForResumingAction() {
	if c.rollOnResume {
		c.Roll()
		return
	}
	if c.kickOnResume {
		c.Kick()
		return
	}
	if c.left != nil {
		c.left.Resume1(c.leftHeld1)
		c.left.Resume2(c.leftHeld2)
	}
	if c.right != nil {
		c.right.Resume1(c.rightHeld1)
		c.right.Resume2(c.rightHeld2)
	}
	if c.runHeld {
		c.RunPress()
	}
}

// RollQueued reports whether a roll waits for the next resume.
func (c *Character) RollQueued() bool { return c.rollOnResume }

// KickQueued reports whether a kick waits for the next resume.
func (c *Character) KickQueued() bool { return c.kickOnResume }

// =============================================================================
// HIT REACTIONS (owning node)
// =============================================================================

// Stunned interrupts the character for stunTime seconds. Hits beyond
// StunCountMaximum inside one stun break it instead of extending it.
func (c *Character) Stunned(stunTime float64) {
	if c.staggered {
		c.SetIsStaggered(false)
	}

	c.stunCount++
	if c.stunCount > c.cfg.StunCountMaximum {
		c.stunned = false
		c.stunCount = 0
		c.stunTimer = 0
		c.allowMovement = true
		c.StopMontageGlobally()
		return
	}

	c.stunTimer = stunTime
	if c.stunned {
		return
	}
	c.CancelActions()
	c.allowMovement = false
	c.stunned = true
	c.PlayMontageGlobally(c.montages.Stun, "")
}

// Staggered leaves the character open to a riposte for StaggerTime.
func (c *Character) Staggered() {
	for _, e := range [...]Equipment{c.left, c.right} {
		if e != nil && !e.Destroyed() {
			e.CancelActions()
		}
	}
	// A cut-off kick or roll never reaches the end handler that restores
	// recovery.
	if c.kicking || c.rolling {
		c.allowEnduranceRecovery = true
	}
	c.kicking = false
	c.kickCanDamage = false
	c.rolling = false
	c.invalidateContinuations()

	c.allowMovement = false
	c.SetIsStaggered(true)
	c.PlayMontageGlobally(c.montages.Stagger, "")
}

// DepleteEnduranceCanStagger drains endurance from a blocked or parried
// hit, staggering the character when it runs out.
func (c *Character) DepleteEnduranceCanStagger(endurance float64) {
	c.DepleteEndurance(endurance)

	if c.blocking && c.endurance > 0 {
		if s := c.shield(); s != nil {
			s.ShowBlockImpact()
		}
	}
	if c.endurance < 0 {
		c.Staggered()
	}
}

// BackStabbed plays the victim side of a backstab.
func (c *Character) BackStabbed() {
	c.CancelActions()
	c.playVictim(c.montages.BackStabbed)
}

// Riposted plays the victim side of a riposte.
func (c *Character) Riposted() {
	c.CancelActions()
	c.SetIsStaggered(false)
	c.playVictim(c.montages.Riposted)
}

func (c *Character) playVictim(m *Montage) {
	c.allowMovement = false
	c.SetIsInvincible(true)
	c.allowEnduranceRecovery = false
	c.PlayMontageGlobally(m, "")
	c.SetOnMontageEnded(ActionVictim, func(bool) {
		c.allowMovement = true
		c.SetIsInvincible(false)
		c.allowEnduranceRecovery = true
		c.StopMontageGlobally()
	})
}

// =============================================================================
// HAND INPUT
// =============================================================================

// HandPress1 routes the primary press of a hand. An empty hand drives the
// other hand's two-handed item.
func (c *Character) HandPress1(hand Hand) {
	if e := c.Equipment(hand); e != nil {
		e.Press1()
	} else if o := c.twoHandedOther(hand); o != nil {
		o.TwoHandPress1()
	}
	c.setHeld(hand, true, true)
}

// HandRelease1 routes the primary release of a hand.
func (c *Character) HandRelease1(hand Hand) {
	if e := c.Equipment(hand); e != nil {
		e.Release1()
	} else if o := c.twoHandedOther(hand); o != nil {
		o.TwoHandRelease1()
	}
	c.setHeld(hand, true, false)
}

// HandPress2 routes the secondary press of a hand.
func (c *Character) HandPress2(hand Hand) {
	if e := c.Equipment(hand); e != nil {
		e.Press2()
	} else if o := c.twoHandedOther(hand); o != nil {
		o.TwoHandPress2()
	}
	c.setHeld(hand, false, true)
}

// HandRelease2 routes the secondary release of a hand.
func (c *Character) HandRelease2(hand Hand) {
	if e := c.Equipment(hand); e != nil {
		e.Release2()
	} else if o := c.twoHandedOther(hand); o != nil {
		o.TwoHandRelease2()
	}
	c.setHeld(hand, false, false)
}

func (c *Character) twoHandedOther(hand Hand) Equipment {
	o := c.Equipment(otherHand(hand))
	if o == nil || o.State() != EquippedTwoHand {
		return nil
	}
	return o
}

func (c *Character) setHeld(hand Hand, primary, held bool) {
	switch {
	case hand == LeftHand && primary:
		c.leftHeld1 = held
	case hand == LeftHand:
		c.leftHeld2 = held
	case primary:
		c.rightHeld1 = held
	default:
		c.rightHeld2 = held
	}
}

// LockOnPress toggles lock-on.
func (c *Character) LockOnPress() {
	c.lockOn.Press()
}
