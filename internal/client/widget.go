package client

import (
	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
)

// LogWidget renders a character's HUD as debug log lines.
type LogWidget struct {
	log zerolog.Logger
}

// NewLogWidget builds the widget for character id.
func NewLogWidget(log zerolog.Logger, id combat.CharacterID, local bool) *LogWidget {
	return &LogWidget{log: log.With().Uint32("character", uint32(id)).Bool("local", local).Logger()}
}

func (w *LogWidget) OnHealthChanged(current, max float64) {
	w.log.Debug().Float64("health", current).Float64("max", max).Msg("health")
}

func (w *LogWidget) OnEnduranceChanged(current, max float64) {
	w.log.Trace().Float64("endurance", current).Float64("max", max).Msg("endurance")
}

func (w *LogWidget) OnDamageChanged(amount float64) {
	w.log.Debug().Float64("damage", amount).Msg("damage")
}

func (w *LogWidget) SetLockedOnIndicator(visible bool) {
	w.log.Debug().Bool("visible", visible).Msg("lock-on indicator")
}

// WidgetFactory returns a game.Options.Widget func backed by LogWidget.
func WidgetFactory(log zerolog.Logger) func(combat.CharacterID, bool) combat.Widget {
	return func(id combat.CharacterID, local bool) combat.Widget {
		return NewLogWidget(log, id, local)
	}
}

// LogSound logs played cues.
type LogSound struct {
	Log zerolog.Logger
}

func (s LogSound) PlaySound(cue combat.Sound, location combat.Vec3) {
	s.Log.Debug().Str("cue", string(cue)).Float64("x", location.X).Float64("y", location.Y).Msg("sound")
}
