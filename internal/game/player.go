package game

import (
	"time"

	"github.com/samalo0/Ceremony/internal/combat"
)

// Player is a seat in the arena on the server. It outlives the characters
// it controls: a dead character is destroyed and a fresh one restarted
// under the same id.
type Player struct {
	ID       combat.CharacterID
	Name     string
	Number   int
	Local    bool // controlled on the server node itself
	JoinedAt time.Time

	Kills  int
	Deaths int

	Character       *combat.Character
	awaitingRestart bool
}

// Alive reports whether the player has a living character.
func (p *Player) Alive() bool {
	return p.Character != nil && !p.Character.IsDead()
}

// AwaitingRestart reports whether the player's body was destroyed and the
// next round check will restart it.
func (p *Player) AwaitingRestart() bool { return p.awaitingRestart }

// PlayerInfo is a read-only view of a player for the API.
type PlayerInfo struct {
	ID       combat.CharacterID `json:"id"`
	Name     string             `json:"name"`
	Number   int                `json:"player_number"`
	Kills    int                `json:"kills"`
	Deaths   int                `json:"deaths"`
	Alive    bool               `json:"alive"`
	Health   float64            `json:"health"`
	JoinedAt time.Time          `json:"joined_at"`
}

func (p *Player) info() PlayerInfo {
	info := PlayerInfo{
		ID:       p.ID,
		Name:     p.Name,
		Number:   p.Number,
		Kills:    p.Kills,
		Deaths:   p.Deaths,
		Alive:    p.Alive(),
		JoinedAt: p.JoinedAt,
	}
	if p.Character != nil {
		info.Health = p.Character.Health()
	}
	return info
}
