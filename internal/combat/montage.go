package combat

// NotifyKind is a point event placed on a montage timeline.
type NotifyKind uint8

const (
	// NotifyAttackTransition lets the owning weapon chain the next queued attack.
	NotifyAttackTransition NotifyKind = iota
	NotifyPlaySound
	NotifyFootstep
)

// WindowKind is a begin/end event pair placed on a montage timeline.
type WindowKind uint8

const (
	WindowAttackDamage WindowKind = iota
	WindowInvincibility
	WindowKickDamage
	WindowParryStagger
)

func (k WindowKind) String() string {
	switch k {
	case WindowAttackDamage:
		return "attack_damage"
	case WindowInvincibility:
		return "invincibility"
	case WindowKickDamage:
		return "kick_damage"
	case WindowParryStagger:
		return "parry_stagger"
	default:
		return "window"
	}
}

// Notify fires once when playback passes At.
type Notify struct {
	At        float64
	Kind      NotifyKind
	Hand      Hand  // NotifyAttackTransition
	Sound     Sound // NotifyPlaySound
	Multicast bool  // NotifyPlaySound: route through the authority to every node
	RightFoot bool  // NotifyFootstep
}

// NotifyWindow is open while playback is inside [Begin, End).
type NotifyWindow struct {
	Begin float64
	End   float64
	Kind  WindowKind
	Hand  Hand // WindowAttackDamage
}

// Section is a named span of a montage. Looping sections wrap at End until
// playback is jumped elsewhere or stopped.
type Section struct {
	Name  string
	Start float64
	End   float64
	Loop  bool
}

// Montage is an opaque timed cosmetic with a completion signal. Only the
// timeline (sections, notifies, windows) is interpreted here.
type Montage struct {
	Name     string
	Length   float64
	Sections []Section
	Notifies []Notify
	Windows  []NotifyWindow
}

func (m *Montage) section(name string) (int, bool) {
	for i, s := range m.Sections {
		if s.Name == name {
			return i, true
		}
	}
	return -1, false
}

func (m *Montage) sectionAt(pos float64) int {
	for i, s := range m.Sections {
		if pos >= s.Start && pos < s.End {
			return i
		}
	}
	return -1
}

// Mirrored returns a copy whose hand-bound events target the other hand.
func (m *Montage) Mirrored() *Montage {
	if m == nil {
		return nil
	}
	out := *m
	out.Notifies = make([]Notify, len(m.Notifies))
	for i, n := range m.Notifies {
		n.Hand = otherHand(n.Hand)
		out.Notifies[i] = n
	}
	out.Windows = make([]NotifyWindow, len(m.Windows))
	for i, w := range m.Windows {
		w.Hand = otherHand(w.Hand)
		out.Windows[i] = w
	}
	return &out
}

func otherHand(h Hand) Hand {
	if h == RightHand {
		return LeftHand
	}
	return RightHand
}

// MontageListener receives timeline events from a MontagePlayer.
type MontageListener interface {
	OnMontageNotify(m *Montage, n Notify)
	OnMontageWindow(m *Montage, w NotifyWindow, open bool)
	OnMontageEnded(m *Montage, instance uint64, interrupted bool)
}

type montageInstance struct {
	id      uint64
	montage *Montage
	pos     float64
	open    []bool
}

type endedMontage struct {
	montage  *Montage
	instance uint64
}

// MontagePlayer plays one montage at a time, stepped by the owning
// character's tick. Interrupted montages report their end on the next
// Advance, the way a blend-out completes a frame later.
type MontagePlayer struct {
	listener MontageListener
	active   *montageInstance
	nextID   uint64
	ended    []endedMontage
}

// NewMontagePlayer creates a player reporting to listener.
func NewMontagePlayer(listener MontageListener) *MontagePlayer {
	return &MontagePlayer{listener: listener}
}

// Play starts m, optionally at a named section, and returns the start
// position. A montage already playing is interrupted.
func (p *MontagePlayer) Play(m *Montage, section string) float64 {
	if m == nil {
		return 0
	}
	p.interrupt()

	p.nextID++
	inst := &montageInstance{
		id:      p.nextID,
		montage: m,
		open:    make([]bool, len(m.Windows)),
	}
	if section != "" {
		if i, ok := m.section(section); ok {
			inst.pos = m.Sections[i].Start
		}
	}
	p.active = inst
	return inst.pos
}

// PlayAt starts m at an absolute position, used when mirroring a montage
// that another node started.
func (p *MontagePlayer) PlayAt(m *Montage, position float64) {
	p.Play(m, "")
	if p.active != nil {
		p.active.pos = clamp(position, 0, m.Length)
	}
}

// JumpToSection moves the active montage to the start of a section.
func (p *MontagePlayer) JumpToSection(name string) {
	if p.active == nil {
		return
	}
	if i, ok := p.active.montage.section(name); ok {
		p.setPosition(p.active.montage.Sections[i].Start)
	}
}

// Stop interrupts the active montage.
func (p *MontagePlayer) Stop() {
	p.interrupt()
}

// Active returns the playing montage and its instance id.
func (p *MontagePlayer) Active() (*Montage, uint64) {
	if p.active == nil {
		return nil, 0
	}
	return p.active.montage, p.active.id
}

// Position returns the playback position of the active montage.
func (p *MontagePlayer) Position() float64 {
	if p.active == nil {
		return 0
	}
	return p.active.pos
}

// IsPlaying reports whether m is the active montage.
func (p *MontagePlayer) IsPlaying(m *Montage) bool {
	return p.active != nil && p.active.montage == m
}

// Advance steps playback by dt, firing notifies, window edges and ends.
func (p *MontagePlayer) Advance(dt float64) {
	if len(p.ended) > 0 {
		ended := p.ended
		p.ended = nil
		for _, e := range ended {
			p.listener.OnMontageEnded(e.montage, e.instance, true)
		}
	}

	inst := p.active
	if inst == nil || dt <= 0 {
		return
	}
	m := inst.montage
	from := inst.pos
	to := from + dt

	sec := m.sectionAt(from)
	if sec >= 0 && m.Sections[sec].Loop && to >= m.Sections[sec].End {
		s := m.Sections[sec]
		p.fireNotifies(inst, from, s.End)
		p.sweepWindows(inst, from, s.End)
		if p.active != inst {
			return
		}
		span := s.End - s.Start
		wrapped := s.Start
		if span > 0 {
			for to >= s.End {
				to -= span
			}
			wrapped = to
		}
		inst.pos = wrapped
		p.syncWindows(inst)
		return
	}

	p.fireNotifies(inst, from, to)
	if p.active != inst {
		return
	}
	p.sweepWindows(inst, from, to)
	if p.active != inst {
		return
	}
	inst.pos = to
	if to >= m.Length {
		inst.pos = m.Length
		p.closeWindows(inst)
		p.active = nil
		p.listener.OnMontageEnded(m, inst.id, false)
	}
}

// fireNotifies fires notifies in (from, to]. A listener may replace the
// active montage, in which case the rest are dropped.
func (p *MontagePlayer) fireNotifies(inst *montageInstance, from, to float64) {
	for _, n := range inst.montage.Notifies {
		if n.At > from && n.At <= to {
			p.listener.OnMontageNotify(inst.montage, n)
			if p.active != inst {
				return
			}
		}
	}
}

// sweepWindows opens and closes windows crossed between from and to,
// including windows entirely skipped over by a long step.
func (p *MontagePlayer) sweepWindows(inst *montageInstance, from, to float64) {
	m := inst.montage
	for i, w := range m.Windows {
		inside := to >= w.Begin && to < w.End
		switch {
		case inst.open[i] && !inside:
			inst.open[i] = false
			p.listener.OnMontageWindow(m, w, false)
		case !inst.open[i] && inside:
			inst.open[i] = true
			p.listener.OnMontageWindow(m, w, true)
		case !inst.open[i] && from < w.Begin && to >= w.End:
			p.listener.OnMontageWindow(m, w, true)
			if p.active == inst {
				p.listener.OnMontageWindow(m, w, false)
			}
		}
		if p.active != inst {
			return
		}
	}
}

// syncWindows reconciles window state after a discontinuous jump.
func (p *MontagePlayer) syncWindows(inst *montageInstance) {
	for i, w := range inst.montage.Windows {
		inside := inst.pos >= w.Begin && inst.pos < w.End
		if inside != inst.open[i] {
			inst.open[i] = inside
			p.listener.OnMontageWindow(inst.montage, w, inside)
			if p.active != inst {
				return
			}
		}
	}
}

func (p *MontagePlayer) setPosition(pos float64) {
	inst := p.active
	inst.pos = clamp(pos, 0, inst.montage.Length)
	p.syncWindows(inst)
}

func (p *MontagePlayer) closeWindows(inst *montageInstance) {
	for i, w := range inst.montage.Windows {
		if inst.open[i] {
			inst.open[i] = false
			p.listener.OnMontageWindow(inst.montage, w, false)
		}
	}
}

func (p *MontagePlayer) interrupt() {
	inst := p.active
	if inst == nil {
		return
	}
	p.active = nil
	p.closeWindows(inst)
	p.ended = append(p.ended, endedMontage{montage: inst.montage, instance: inst.id})
}
