package combat

// FieldMask selects replicated fields.
type FieldMask uint32

const (
	FieldHealth FieldMask = 1 << iota
	FieldPlayerNumber
	FieldName
	FieldDead
	FieldCosmetic
	FieldLockedOn
	FieldRunning
	FieldStaggered
	FieldMeleeLocomotion
	FieldTransform
	FieldEquipment
)

const (
	// fieldsSkipOwner are driven by the owning node itself.
	fieldsSkipOwner = FieldCosmetic | FieldLockedOn | FieldRunning | FieldStaggered |
		FieldMeleeLocomotion | FieldTransform
	// fieldsOwnerOnly only matter where the character is controlled.
	fieldsOwnerOnly = FieldEquipment

	FieldAll = FieldEquipment<<1 - 1
)

// Has reports whether every bit of f is set.
func (m FieldMask) Has(f FieldMask) bool { return m&f == f }

// Visible narrows m to the fields a node may receive: the owning node does
// not get skip-owner fields, other nodes do not get owner-only fields.
func (m FieldMask) Visible(toOwner bool) FieldMask {
	if toOwner {
		return m &^ fieldsSkipOwner
	}
	return m &^ fieldsOwnerOnly
}

// ReplicatedState is the authority's published view of a character.
type ReplicatedState struct {
	Health       float64 `json:"health"`
	PlayerNumber int     `json:"player_number"`
	Name         string  `json:"name"`
	Dead         bool    `json:"dead"`

	Cosmetic        CosmeticMontage `json:"cosmetic"`
	LockedOn        bool            `json:"locked_on"`
	Running         bool            `json:"running"`
	Staggered       bool            `json:"staggered"`
	MeleeLocomotion bool            `json:"melee_locomotion"`
	Location        Vec3            `json:"location"`
	Yaw             float64         `json:"yaw"`

	RightHand string `json:"right_hand,omitempty"`
	LeftHand  string `json:"left_hand,omitempty"`
}

// StateDelta carries the fields of a state selected by Mask.
type StateDelta struct {
	ID    CharacterID     `json:"id"`
	Mask  FieldMask       `json:"mask"`
	State ReplicatedState `json:"state"`
}

// Snapshot captures the replicated view of c.
func (c *Character) Snapshot() ReplicatedState {
	s := ReplicatedState{
		Health:          c.health,
		PlayerNumber:    c.playerNumber,
		Name:            c.name,
		Dead:            c.dead,
		Cosmetic:        c.cosmetic,
		LockedOn:        c.lockedOn,
		Running:         c.running,
		Staggered:       c.staggered,
		MeleeLocomotion: c.MeleeLocomotion(),
		Location:        c.location,
		Yaw:             c.yaw,
	}
	if c.right != nil && !c.right.Destroyed() {
		s.RightHand = c.right.Name()
	}
	if c.left != nil && !c.left.Destroyed() {
		s.LeftHand = c.left.Name()
	}
	return s
}

// Diff returns the fields that differ between two states.
func Diff(prev, next ReplicatedState) FieldMask {
	var m FieldMask
	if prev.Health != next.Health {
		m |= FieldHealth
	}
	if prev.PlayerNumber != next.PlayerNumber {
		m |= FieldPlayerNumber
	}
	if prev.Name != next.Name {
		m |= FieldName
	}
	if prev.Dead != next.Dead {
		m |= FieldDead
	}
	if prev.Cosmetic != next.Cosmetic {
		m |= FieldCosmetic
	}
	if prev.LockedOn != next.LockedOn {
		m |= FieldLockedOn
	}
	if prev.Running != next.Running {
		m |= FieldRunning
	}
	if prev.Staggered != next.Staggered {
		m |= FieldStaggered
	}
	if prev.MeleeLocomotion != next.MeleeLocomotion {
		m |= FieldMeleeLocomotion
	}
	if prev.Location != next.Location || prev.Yaw != next.Yaw {
		m |= FieldTransform
	}
	if prev.RightHand != next.RightHand || prev.LeftHand != next.LeftHand {
		m |= FieldEquipment
	}
	return m
}

// ApplyReplicated writes a delta received from the authority into a
// non-authoritative instance and runs the matching change handlers.
func (c *Character) ApplyReplicated(d StateDelta, armory *Armory) {
	if c.HasAuthority() {
		return
	}
	s, m := d.State, d.Mask

	if m.Has(FieldName) {
		c.name = s.Name
	}
	if m.Has(FieldPlayerNumber) {
		c.playerNumber = s.PlayerNumber
	}
	if m.Has(FieldHealth) {
		c.health = s.Health
		c.OnRepHealth()
	}
	if m.Has(FieldLockedOn) && !c.local {
		c.lockedOn = s.LockedOn
	}
	if m.Has(FieldRunning) && !c.local {
		c.running = s.Running
	}
	if m.Has(FieldStaggered) && !c.local {
		c.staggered = s.Staggered
	}
	if m.Has(FieldTransform) && !c.local {
		c.location = s.Location
		c.yaw = NormalizeAxis(s.Yaw)
	}
	if m.Has(FieldEquipment) && armory != nil {
		c.applyEquipment(armory, RightHand, s.RightHand)
		c.applyEquipment(armory, LeftHand, s.LeftHand)
	}
	if m.Has(FieldCosmetic) && !c.local {
		c.cosmetic = s.Cosmetic
		c.OnRepCosmetic()
	}
	if m.Has(FieldDead) && s.Dead && !c.dead {
		// A node that joined after the kill multicast.
		c.ragdoll()
	}
}

func (c *Character) applyEquipment(armory *Armory, hand Hand, name string) {
	cur := ""
	if e := c.Equipment(hand); e != nil && !e.Destroyed() {
		cur = e.Name()
	}
	if cur == name {
		return
	}
	if name == "" {
		c.Equip(hand, nil, false)
		return
	}
	if err := c.EquipByName(armory, hand, name); err != nil {
		c.log.Warn().Err(err).Str("hand", hand.String()).Msg("replicated equipment not built")
	}
}
