package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/samalo0/Ceremony/internal/config"
)

// Round holds the game mode rules: player numbering and the periodic
// restart of dead players.
type Round struct {
	ID         uuid.UUID
	StartedAt  time.Time
	TotalKills int

	cfg          config.RoundConfig
	sinceRestart float64
}

// NewRound starts a round with a fresh id.
func NewRound(cfg config.RoundConfig) *Round {
	return &Round{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		cfg:       cfg,
	}
}

// PlayerNumber is the colour slot for a player who makes the count
// numPlayers.
func (r *Round) PlayerNumber(numPlayers int) int {
	return numPlayers % r.cfg.PlayerColors
}

// DueRestart accumulates dt and reports whether a restart check is due.
func (r *Round) DueRestart(dt float64) bool {
	r.sinceRestart += dt
	interval := r.cfg.RestartInterval.Seconds()
	if r.sinceRestart < interval {
		return false
	}
	r.sinceRestart -= interval
	if r.sinceRestart > interval {
		// Long stalls do not queue up checks.
		r.sinceRestart = 0
	}
	return true
}

// Reset begins a new round.
func (r *Round) Reset() {
	r.ID = uuid.New()
	r.StartedAt = time.Now()
	r.TotalKills = 0
	r.sinceRestart = 0
}
