package combat

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownItem is returned when an armory entry does not exist.
var ErrUnknownItem = errors.New("unknown item")

// Catalog resolves montages by name. Observers receive montage names over
// the wire and look them up here.
type Catalog struct {
	Character CharacterMontages

	montages map[string]*Montage
}

// NewCatalog creates an empty catalog for the given character montages.
func NewCatalog(character CharacterMontages) *Catalog {
	c := &Catalog{Character: character, montages: make(map[string]*Montage)}
	c.Register(character.Kick, character.Roll, character.Stun, character.Stagger,
		character.BackStabbed, character.Riposted, character.YawCorrection)
	return c
}

// Register adds montages. Nil entries are skipped; a later montage with
// the same name wins.
func (c *Catalog) Register(ms ...*Montage) {
	for _, m := range ms {
		if m != nil {
			c.montages[m.Name] = m
		}
	}
}

// Montage returns the montage with the given name, or nil.
func (c *Catalog) Montage(name string) *Montage {
	return c.montages[name]
}

// Names returns every registered montage name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.montages))
	for n := range c.montages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// DEFAULT MONTAGES
// =============================================================================

func attackMontage(name string, length float64) *Montage {
	return &Montage{
		Name:   name,
		Length: length,
		Sections: []Section{
			{Name: "Windup", Start: 0, End: 0.2},
			{Name: "Swing", Start: 0.2, End: length},
		},
		Notifies: []Notify{
			{At: 0.25, Kind: NotifyPlaySound, Sound: SoundSwing, Multicast: true},
			{At: length * 0.6, Kind: NotifyAttackTransition, Hand: RightHand},
		},
		Windows: []NotifyWindow{
			{Begin: 0.25, End: 0.45, Kind: WindowAttackDamage, Hand: RightHand},
		},
	}
}

func plainMontage(name string, length float64) *Montage {
	return &Montage{Name: name, Length: length}
}

// DefaultCatalog returns the montages of the stock character, sword,
// shield and bow.
func DefaultCatalog() *Catalog {
	cat := NewCatalog(CharacterMontages{
		Kick: &Montage{
			Name:    "kick",
			Length:  0.9,
			Windows: []NotifyWindow{{Begin: 0.25, End: 0.45, Kind: WindowKickDamage}},
		},
		Roll: &Montage{
			Name:    "roll",
			Length:  0.8,
			Windows: []NotifyWindow{{Begin: 0.05, End: 0.5, Kind: WindowInvincibility}},
			Notifies: []Notify{
				{At: 0.7, Kind: NotifyFootstep, RightFoot: true},
			},
		},
		Stun:          plainMontage("stun", 0.5),
		Stagger:       plainMontage("stagger", 2.0),
		BackStabbed:   plainMontage("backstabbed", 3.0),
		Riposted:      plainMontage("riposted", 3.0),
		YawCorrection: plainMontage("yaw_correction", 0.4),
	})

	sword := DefaultSwordParams()
	for _, a := range sword.Press1 {
		cat.Register(a.Montage)
	}
	cat.Register(sword.Press1Running.Montage, sword.Press2.ChargeMontage, sword.Press2.AttackMontage,
		sword.Press2Jumping.Montage, sword.BackStabMontage, sword.RiposteMontage)

	shield := DefaultShieldParams()
	cat.Register(shield.BlockingMontage, shield.ImpactMontage, shield.ParryMontage)

	bow := DefaultBowParams()
	cat.Register(bow.PrepareMontage, bow.AttackMontage)
	return cat
}

// DefaultSwordParams returns a one-handed sword with a three-swing combo.
func DefaultSwordParams() MeleeParams {
	damage := DefaultDamageParams()
	combo := make([]StandardAttackParams, 3)
	for i := range combo {
		combo[i] = StandardAttackParams{
			Damage:               damage,
			EnduranceConsumption: 20,
			Montage:              attackMontage(fmt.Sprintf("sword_attack_%d", i+1), 1.0),
		}
		if i > 0 {
			combo[i].JumpSection = "Swing"
		}
	}

	charge := &Montage{
		Name:     "sword_charge",
		Length:   1.0,
		Sections: []Section{{Name: "Charge", Start: 0, End: 1.0, Loop: true}},
	}
	heavy := DefaultDamageParams()
	heavy.DamageType = DamageBludgeon

	return MeleeParams{
		Press1: combo,
		Press1Running: StandardAttackParams{
			Damage:               damage,
			EnduranceConsumption: 20,
			Montage:              attackMontage("sword_running_attack", 1.0),
		},
		Press2: ChargedAttackParams{
			AttackMontage:               attackMontage("sword_charged_attack", 1.0),
			ChargeMontage:               charge,
			ChargeSeconds:               3,
			Damage:                      heavy,
			EnduranceConsumptionMinimum: 20,
			EnduranceConsumptionMaximum: 50,
		},
		Press2Jumping: StandardAttackParams{
			Damage:               heavy,
			EnduranceConsumption: 30,
			Montage:              attackMontage("sword_jumping_attack", 1.2),
		},

		BackStabMontage:              plainMontage("sword_backstab", 2.5),
		BackStabEnduranceConsumption: 20,
		RiposteMontage:               plainMontage("sword_riposte", 2.5),
		RiposteEnduranceConsumption:  20,

		SpecialAttackReach:        100,
		BackStabDotProductMinimum: 0.8,
		RiposteDotProductMaximum:  -0.8,

		Reach:     80,
		HitRadius: 30,

		MeleeLocomotion: true,
	}
}

// DefaultShieldParams returns a wooden shield.
func DefaultShieldParams() ShieldParams {
	return ShieldParams{
		Block: DefaultShieldBlockParams(),
		BlockingMontage: &Montage{
			Name:   "shield_block",
			Length: 1.5,
			Sections: []Section{
				{Name: "Raise", Start: 0, End: 0.2},
				{Name: "Idle", Start: 0.2, End: 1.2, Loop: true},
				{Name: "Exit", Start: 1.2, End: 1.5},
			},
		},
		IdleSection:   "Idle",
		ExitSection:   "Exit",
		ImpactMontage: plainMontage("shield_impact", 0.4),
		ParryMontage: &Montage{
			Name:    "shield_parry",
			Length:  0.8,
			Windows: []NotifyWindow{{Begin: 0.1, End: 0.4, Kind: WindowParryStagger}},
		},
		ParryEnduranceConsumption: 20,
	}
}

// DefaultBowParams returns a short bow.
func DefaultBowParams() RangedAttackParams {
	damage := DefaultDamageParams()
	damage.DamageType = DamagePierce
	return RangedAttackParams{
		Damage:               damage,
		EnduranceConsumption: 20,
		PrepareMontage: &Montage{
			Name:     "bow_draw",
			Length:   0.6,
			Notifies: []Notify{{At: 0.5, Kind: NotifyAttackTransition, Hand: RightHand}},
		},
		AttackMontage: &Montage{
			Name:     "bow_fire",
			Length:   0.5,
			Notifies: []Notify{{At: 0.05, Kind: NotifyPlaySound, Sound: SoundBowRelease, Multicast: true}},
		},
		ProjectileSpeed: 6858,
	}
}

// =============================================================================
// ARMORY
// =============================================================================

type armoryEntry struct {
	twoHanded bool
	build     func() Equipment
}

// Armory builds equipment by name. Nodes agree on names only; each node
// builds its own instance.
type Armory struct {
	entries map[string]armoryEntry
}

// NewArmory creates an empty armory.
func NewArmory() *Armory {
	return &Armory{entries: make(map[string]armoryEntry)}
}

// Add registers a builder.
func (a *Armory) Add(name string, twoHanded bool, build func() Equipment) {
	a.entries[name] = armoryEntry{twoHanded: twoHanded, build: build}
}

// Has reports whether name is a known item.
func (a *Armory) Has(name string) bool {
	_, ok := a.entries[name]
	return ok
}

// Build creates a fresh instance of the named item and reports whether it
// occupies both hands.
func (a *Armory) Build(name string) (Equipment, bool, error) {
	e, ok := a.entries[name]
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrUnknownItem, name)
	}
	return e.build(), e.twoHanded, nil
}

// DefaultArmory returns the stock sword, shield and bow.
func DefaultArmory() *Armory {
	a := NewArmory()
	a.Add("sword", false, func() Equipment { return NewMeleeWeapon("sword", DefaultSwordParams()) })
	a.Add("shield", false, func() Equipment { return NewShield("shield", DefaultShieldParams()) })
	a.Add("bow", true, func() Equipment { return NewRangedWeapon("bow", DefaultBowParams()) })
	return a
}

// EquipByName builds an item from the armory and places it in a hand.
// An empty name empties the hand.
func (c *Character) EquipByName(armory *Armory, hand Hand, name string) error {
	if name == "" {
		c.Equip(hand, nil, false)
		return nil
	}
	e, twoHanded, err := armory.Build(name)
	if err != nil {
		return err
	}
	c.Equip(hand, e, twoHanded)
	return nil
}
