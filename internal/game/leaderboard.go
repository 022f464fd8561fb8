package game

import (
	"sync"
	"time"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/game/spatial"
)

// Score weights: kills count, deaths cost a little.
const (
	ScorePerKill  = 100.0
	ScorePerDeath = -10.0
)

// Leaderboard ranks the seated players of a round by score in O(log n).
// Readers on other goroutines may query it while the tick updates it.
type Leaderboard struct {
	ranks *spatial.SkipList

	mu    sync.RWMutex
	stats map[combat.CharacterID]LeaderboardEntry
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Character combat.CharacterID `json:"id"`
	Name      string             `json:"name"`
	Kills     int                `json:"kills"`
	Deaths    int                `json:"deaths"`
	Score     float64            `json:"score"`
	Rank      int                `json:"rank"`
}

// NewLeaderboard creates an empty leaderboard.
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		ranks: spatial.NewSkipList(time.Now().UnixNano()),
		stats: make(map[combat.CharacterID]LeaderboardEntry),
	}
}

// Score computes a player's score.
func Score(kills, deaths int) float64 {
	return float64(kills)*ScorePerKill + float64(deaths)*ScorePerDeath
}

// Record inserts or updates a player.
func (lb *Leaderboard) Record(p *Player) {
	e := LeaderboardEntry{
		Character: p.ID,
		Name:      p.Name,
		Kills:     p.Kills,
		Deaths:    p.Deaths,
		Score:     Score(p.Kills, p.Deaths),
	}
	lb.mu.Lock()
	lb.stats[p.ID] = e
	lb.mu.Unlock()
	lb.ranks.Set(uint32(p.ID), e.Score)
}

// Remove drops a player.
func (lb *Leaderboard) Remove(id combat.CharacterID) {
	lb.ranks.Remove(uint32(id))
	lb.mu.Lock()
	delete(lb.stats, id)
	lb.mu.Unlock()
}

// Rank returns a player's 1-based rank, or 0 if unknown.
func (lb *Leaderboard) Rank(id combat.CharacterID) int {
	return lb.ranks.Rank(uint32(id))
}

// Top returns the first n players.
func (lb *Leaderboard) Top(n int) []LeaderboardEntry {
	return lb.entries(lb.ranks.Range(1, n), 1)
}

// Around returns a player with up to above players ranked higher and below
// ranked lower.
func (lb *Leaderboard) Around(id combat.CharacterID, above, below int) []LeaderboardEntry {
	rank := lb.Rank(id)
	if rank == 0 {
		return nil
	}
	start := rank - above
	if start < 1 {
		start = 1
	}
	return lb.entries(lb.ranks.Range(start, rank+below), start)
}

func (lb *Leaderboard) entries(ranked []spatial.RankEntry, first int) []LeaderboardEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	out := make([]LeaderboardEntry, 0, len(ranked))
	for i, r := range ranked {
		e, ok := lb.stats[combat.CharacterID(r.ID)]
		if !ok {
			continue
		}
		e.Rank = first + i
		out = append(out, e)
	}
	return out
}

// Len returns the number of ranked players.
func (lb *Leaderboard) Len() int { return lb.ranks.Len() }

// Clear removes everyone.
func (lb *Leaderboard) Clear() {
	lb.ranks.Clear()
	lb.mu.Lock()
	lb.stats = make(map[combat.CharacterID]LeaderboardEntry)
	lb.mu.Unlock()
}
