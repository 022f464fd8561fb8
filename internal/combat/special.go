package combat

// ClassifySpecial picks the special attack for a pair of facings. dot is
// attackerForward·targetForward: near -1 they face each other, near 1 the
// attacker stands behind the target. Riposte takes precedence and needs a
// staggered target.
func ClassifySpecial(targetStaggered bool, dot, riposteMax, backStabMin float64) SpecialAttack {
	if targetStaggered && dot <= riposteMax {
		return SpecialRiposte
	}
	if dot >= backStabMin {
		return SpecialBackStab
	}
	return SpecialNone
}

// checkForSpecialAttack traces ahead of the owner for a character to
// finish. The result is only a hint; the authority re-checks it.
func (w *MeleeWeapon) checkForSpecialAttack() (*Character, SpecialAttack) {
	world := w.owner.World()
	if world == nil {
		w.owner.Logger().Warn().Str("item", w.name).Msg("special attack check without world")
		return nil, SpecialNone
	}

	start := w.owner.Location()
	forward := w.owner.Forward()
	end := start.Add(forward.Scale(w.params.SpecialAttackReach))

	hit, ok := world.LineTrace(start, end, w.owner.ID())
	if !ok || hit.Character == nil || hit.Character.IsDead() {
		return nil, SpecialNone
	}

	dot := forward.Dot(hit.Character.Forward())
	special := ClassifySpecial(hit.Character.IsStaggered(), dot,
		w.params.RiposteDotProductMaximum, w.params.BackStabDotProductMinimum)
	if special != SpecialNone {
		w.owner.Logger().Debug().
			Uint32("target", uint32(hit.Character.ID())).
			Float64("dot", dot).
			Str("special", special.String()).
			Msg("special attack")
	}
	return hit.Character, special
}
