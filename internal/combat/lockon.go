package combat

import (
	"math"
	"sort"

	"github.com/samalo0/Ceremony/internal/config"
)

// yawDeadZone is how far, in degrees, the character may face away from its
// target before lock-on turns it.
const yawDeadZone = 10.0

// LockOnCandidate is a character the owner could lock onto, measured
// against the camera's horizontal forward.
type LockOnCandidate struct {
	Character *Character
	Cross     Vec3
	Dot       float64
}

// LockOn selects and tracks a target for the locally controlled character.
type LockOn struct {
	owner *Character
	cfg   config.LockOnConfig

	target     *Character
	candidates []LockOnCandidate

	blockUntilYawReturn  bool
	playingYawCorrection bool
}

func newLockOn(owner *Character, cfg config.LockOnConfig) *LockOn {
	return &LockOn{owner: owner, cfg: cfg}
}

// Target returns the locked-on character, or nil.
func (l *LockOn) Target() *Character { return l.target }

// Candidates returns the result of the last gather.
func (l *LockOn) Candidates() []LockOnCandidate { return l.candidates }

// Press toggles lock-on. Locking picks the candidate nearest the centre of
// the camera.
func (l *LockOn) Press() {
	if l.target != nil {
		l.Clear()
		return
	}
	l.GatherCandidates()
	if t := l.highestDot(); t != nil {
		l.set(t)
	}
}

// GatherCandidates rebuilds the candidate list: living characters inside
// the lock-on sphere whose direction from the owner is within the camera's
// dot range, sorted left to right.
func (l *LockOn) GatherCandidates() []LockOnCandidate {
	l.candidates = l.candidates[:0]
	o := l.owner
	if o.world == nil {
		o.log.Error().Msg("lock-on without world")
		return l.candidates
	}

	camera := o.CameraForward()
	for _, other := range o.world.OverlapSphere(o.location, l.cfg.SphereRadius, o.id) {
		if other == nil || other == o || other.dead || other.health == 0 {
			continue
		}
		dir := other.location.Sub(o.location).Flatten().SafeNormal(0.1)
		dot := camera.Dot(dir)
		if dot < l.cfg.DotProductRange {
			continue
		}
		l.candidates = append(l.candidates, LockOnCandidate{
			Character: other,
			Cross:     camera.Cross(dir),
			Dot:       dot,
		})
	}
	sort.SliceStable(l.candidates, func(i, j int) bool {
		return l.candidates[i].Cross.Z < l.candidates[j].Cross.Z
	})
	return l.candidates
}

func (l *LockOn) highestDot() *Character {
	if len(l.candidates) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(l.candidates); i++ {
		if l.candidates[i].Dot > l.candidates[best].Dot {
			best = i
		}
	}
	return l.candidates[best].Character
}

func (l *LockOn) set(t *Character) {
	if l.target != nil && l.target != t {
		l.target.SetOpponentHasLockedOn(false)
	}
	l.target = t
	t.SetOpponentHasLockedOn(true)
	l.owner.SetIsLockedOn(true)
	l.owner.log.Debug().Uint32("target", uint32(t.id)).Msg("locked on")
}

// Clear drops the target.
func (l *LockOn) Clear() {
	if l.target != nil {
		l.target.SetOpponentHasLockedOn(false)
	}
	l.target = nil
	l.playingYawCorrection = false
	l.owner.SetIsLockedOn(false)
}

// YawInput switches target with a flick of the look axis. The axis has to
// return inside the threshold before it can switch again.
func (l *LockOn) YawInput(v float64) {
	if math.Abs(v) < l.cfg.SelectNewTargetThreshold {
		l.blockUntilYawReturn = false
		return
	}
	if l.blockUntilYawReturn {
		return
	}
	l.blockUntilYawReturn = true

	l.GatherCandidates()
	switch len(l.candidates) {
	case 0:
		l.Clear()
		return
	case 1:
		l.set(l.candidates[0].Character)
		return
	}

	current := -1
	for i, c := range l.candidates {
		if c.Character == l.target {
			current = i
			break
		}
	}
	if current < 0 {
		l.set(l.highestDot())
		return
	}

	next := current - 1
	if v > 0 {
		next = current + 1
	}
	if next < 0 || next >= len(l.candidates) {
		// Nothing further that way; keep the current target.
		return
	}
	l.set(l.candidates[next].Character)
}

// Tick keeps the owner and camera facing the target.
func (l *LockOn) Tick(dt float64) {
	t := l.target
	if t == nil {
		return
	}
	o := l.owner
	if t.dead || t.health == 0 || (o.world != nil && o.world.Character(t.id) != t) ||
		o.location.DistanceTo(t.location) > l.cfg.SphereRadius {
		l.Clear()
		return
	}

	l.rotateCharacter(dt)
	l.rotateCameraYaw(dt)
	l.rotateCameraPitch(dt)
}

// stepToward moves by at most rate*dt toward diff.
func stepToward(diff, rate, dt float64) float64 {
	if diff > 0 {
		return clamp(rate*dt, 0, diff)
	}
	return clamp(-rate*dt, diff, 0)
}

func (l *LockOn) rotateCharacter(dt float64) {
	o := l.owner
	if !o.allowMovement {
		return
	}
	want := YawOf(l.target.location.Sub(o.location))
	diff := NormalizeAxis(want - o.yaw)
	if math.Abs(diff) < yawDeadZone {
		return
	}
	step := stepToward(diff, l.cfg.CharacterRotationRate, dt)

	if !l.playingYawCorrection && o.velocity.Length() <= 1 {
		if m, _ := o.anim.Active(); m == nil {
			l.playingYawCorrection = true
			o.PlayMontageGlobally(o.montages.YawCorrection, "")
			o.SetOnMontageEnded(ActionYawCorrection, l.onYawCorrectionEnded)
		}
	}

	o.yaw = NormalizeAxis(o.yaw + step)
	o.callServer(ServerSetActorRotation{Yaw: o.yaw})
}

func (l *LockOn) onYawCorrectionEnded(interrupted bool) {
	if !interrupted {
		l.owner.StopMontageGlobally()
	}
	l.playingYawCorrection = false
}

func (l *LockOn) rotateCameraYaw(dt float64) {
	o := l.owner
	dir := l.target.location.Sub(o.location).Flatten().SafeNormal(1e-4)
	if dir.IsNearlyZero() {
		return
	}
	diff := NormalizeAxis(YawOf(dir) - o.controlYaw)
	if isNearlyZero(diff) {
		return
	}
	o.controlYaw = NormalizeAxis(o.controlYaw + stepToward(diff, l.cfg.CameraAdjustmentRate, dt))
}

func (l *LockOn) rotateCameraPitch(dt float64) {
	o := l.owner
	eye := o.location.Add(Vec3{Z: l.cfg.PitchOffset})
	v := l.target.location.Sub(eye)
	horizontal := math.Hypot(v.X, v.Y)
	if horizontal == 0 && v.Z == 0 {
		return
	}
	want := math.Atan2(v.Z, horizontal) * 180 / math.Pi
	diff := want - o.controlPitch
	if isNearlyZero(diff) {
		return
	}
	o.controlPitch = clamp(o.controlPitch+stepToward(diff, l.cfg.CameraAdjustmentRate, dt), -89, 89)
}
