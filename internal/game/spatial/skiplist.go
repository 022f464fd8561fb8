package spatial

// This file implements a skip list with span counts for O(log n) rank
// queries (Pugh 1990, ranked the way Redis sorted sets are).

import (
	"math/rand"
	"sync"
)

const (
	maxLevel         = 32   // Max skip list height
	levelProbability = 0.25 // P=0.25 gives optimal balance
)

// RankEntry is one scored id. Higher scores rank first; equal scores rank
// by ascending id.
type RankEntry struct {
	ID    uint32
	Score float64
}

func (a RankEntry) before(b RankEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

type skipNode struct {
	entry RankEntry
	next  []*skipNode
	span  []int // Distance to next at each level
}

// SkipList is a ranked set of ids. It is safe for concurrent use.
type SkipList struct {
	mu     sync.RWMutex
	head   *skipNode
	level  int
	length int
	scores map[uint32]float64
	rng    *rand.Rand
}

// NewSkipList creates an empty list. The seed drives node heights only.
func NewSkipList(seed int64) *SkipList {
	return &SkipList{
		head: &skipNode{
			next: make([]*skipNode, maxLevel),
			span: make([]int, maxLevel),
		},
		level:  1,
		scores: make(map[uint32]float64),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (sl *SkipList) randomLevel() int {
	level := 1
	for level < maxLevel && sl.rng.Float64() < levelProbability {
		level++
	}
	return level
}

// Set inserts id or moves it to a new score.
func (sl *SkipList) Set(id uint32, score float64) {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	if old, ok := sl.scores[id]; ok {
		if old == score {
			return
		}
		sl.delete(RankEntry{ID: id, Score: old})
	}
	sl.insert(RankEntry{ID: id, Score: score})
	sl.scores[id] = score
}

func (sl *SkipList) insert(e RankEntry) {
	var update [maxLevel]*skipNode
	var rank [maxLevel]int

	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		if i < sl.level-1 {
			rank[i] = rank[i+1]
		}
		for x.next[i] != nil && x.next[i].entry.before(e) {
			rank[i] += x.span[i]
			x = x.next[i]
		}
		update[i] = x
	}

	level := sl.randomLevel()
	if level > sl.level {
		for i := sl.level; i < level; i++ {
			rank[i] = 0
			update[i] = sl.head
			update[i].span[i] = sl.length
		}
		sl.level = level
	}

	node := &skipNode{
		entry: e,
		next:  make([]*skipNode, level),
		span:  make([]int, level),
	}
	for i := 0; i < level; i++ {
		node.next[i] = update[i].next[i]
		update[i].next[i] = node
		node.span[i] = update[i].span[i] - (rank[0] - rank[i])
		update[i].span[i] = rank[0] - rank[i] + 1
	}
	for i := level; i < sl.level; i++ {
		update[i].span[i]++
	}
	sl.length++
}

// Remove drops id. It reports whether id was present.
func (sl *SkipList) Remove(id uint32) bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	score, ok := sl.scores[id]
	if !ok {
		return false
	}
	sl.delete(RankEntry{ID: id, Score: score})
	delete(sl.scores, id)
	return true
}

func (sl *SkipList) delete(e RankEntry) {
	var update [maxLevel]*skipNode
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && x.next[i].entry.before(e) {
			x = x.next[i]
		}
		update[i] = x
	}
	node := x.next[0]
	if node == nil || node.entry != e {
		return
	}

	for i := 0; i < sl.level; i++ {
		if update[i].next[i] == node {
			update[i].span[i] += node.span[i] - 1
			update[i].next[i] = node.next[i]
		} else {
			update[i].span[i]--
		}
	}
	for sl.level > 1 && sl.head.next[sl.level-1] == nil {
		sl.level--
	}
	sl.length--
}

// Rank returns the 1-based rank of id, or 0 if absent.
func (sl *SkipList) Rank(id uint32) int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	score, ok := sl.scores[id]
	if !ok {
		return 0
	}
	e := RankEntry{ID: id, Score: score}

	rank := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && (x.next[i].entry.before(e) || x.next[i].entry == e) {
			rank += x.span[i]
			x = x.next[i]
		}
		if x != sl.head && x.entry == e {
			return rank
		}
	}
	return 0
}

// Score returns the score of id.
func (sl *SkipList) Score(id uint32) (float64, bool) {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	score, ok := sl.scores[id]
	return score, ok
}

// Range returns entries ranked start through end, 1-based and inclusive.
func (sl *SkipList) Range(start, end int) []RankEntry {
	sl.mu.RLock()
	defer sl.mu.RUnlock()

	if start < 1 {
		start = 1
	}
	if end > sl.length {
		end = sl.length
	}
	if start > end {
		return nil
	}

	// Walk down to the node just before start.
	traversed := 0
	x := sl.head
	for i := sl.level - 1; i >= 0; i-- {
		for x.next[i] != nil && traversed+x.span[i] < start {
			traversed += x.span[i]
			x = x.next[i]
		}
	}

	out := make([]RankEntry, 0, end-start+1)
	for x = x.next[0]; x != nil && traversed < end; x = x.next[0] {
		traversed++
		out = append(out, x.entry)
	}
	return out
}

// Len returns the number of entries.
func (sl *SkipList) Len() int {
	sl.mu.RLock()
	defer sl.mu.RUnlock()
	return sl.length
}

// Clear removes all entries.
func (sl *SkipList) Clear() {
	sl.mu.Lock()
	defer sl.mu.Unlock()

	for i := range sl.head.next {
		sl.head.next[i] = nil
		sl.head.span[i] = 0
	}
	sl.level = 1
	sl.length = 0
	sl.scores = make(map[uint32]float64)
}
