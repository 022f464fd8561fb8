package game

import (
	"time"

	"github.com/samalo0/Ceremony/internal/combat"
)

// Metrics receives engine measurements. The api package backs it with
// prometheus collectors.
type Metrics interface {
	ObserveTick(d time.Duration, characters, projectiles int)
	CountOutcome(o combat.Outcome)
	CountCall(direction, name string)
	CountDroppedCommand()
}

type nopMetrics struct{}

func (nopMetrics) ObserveTick(time.Duration, int, int) {}
func (nopMetrics) CountOutcome(combat.Outcome)         {}
func (nopMetrics) CountCall(string, string)            {}
func (nopMetrics) CountDroppedCommand()                {}
