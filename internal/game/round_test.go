package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/samalo0/Ceremony/internal/config"
)

func TestRoundPlayerNumber(t *testing.T) {
	r := NewRound(config.DefaultRound())

	tests := []struct {
		players int
		want    int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{4, 0},
		{5, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.PlayerNumber(tt.players), "players=%d", tt.players)
	}
}

func TestRoundDueRestart(t *testing.T) {
	r := NewRound(config.RoundConfig{RestartInterval: time.Second, PlayerColors: 4})

	assert.False(t, r.DueRestart(0.5))
	assert.True(t, r.DueRestart(0.5))
	assert.False(t, r.DueRestart(0.9))
	assert.True(t, r.DueRestart(0.2))

	// A long stall yields one check, not a burst.
	assert.True(t, r.DueRestart(3.5))
	assert.False(t, r.DueRestart(0.5))
}

func TestRoundReset(t *testing.T) {
	r := NewRound(config.DefaultRound())
	id := r.ID
	r.TotalKills = 7

	r.Reset()
	assert.NotEqual(t, id, r.ID)
	assert.Zero(t, r.TotalKills)
}
