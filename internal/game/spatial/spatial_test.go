package spatial

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridQueryRadius(t *testing.T) {
	g := NewSpatialGrid(1000, 100, 16)
	cols, rows, size := g.Dimensions()
	assert.Equal(t, 10, cols)
	assert.Equal(t, 10, rows)
	assert.Equal(t, 100.0, size)

	g.Insert(1, 0, 0)
	g.Insert(2, 50, 50)
	g.Insert(3, -450, -450)
	g.Insert(4, 9000, 9000) // clamped into the far corner
	assert.Equal(t, 4, g.Len())

	got := append([]uint32(nil), g.QueryRadius(10, 10, 60)...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []uint32{1, 2}, got)

	assert.Equal(t, []uint32{3}, g.QueryRadius(-480, -480, 10))
	assert.Equal(t, []uint32{4}, g.QueryRadius(499, 499, 1))

	g.Clear()
	assert.Empty(t, g.QueryRadius(0, 0, 500))
	assert.Zero(t, g.Stats().TotalEntities)
}

func TestGridQuerySegment(t *testing.T) {
	g := NewSpatialGrid(2000, 100, 16)
	g.Insert(1, 500, 10)
	g.Insert(2, 500, 400)

	got := g.QuerySegment(0, 0, 900, 0, 50)
	assert.Contains(t, got, uint32(1))
	assert.NotContains(t, got, uint32(2))
}

func TestGridStats(t *testing.T) {
	g := NewSpatialGridRect(0, 0, 200, 100, 100, 4)
	g.Insert(1, 10, 10)
	g.Insert(2, 20, 20)
	g.Insert(3, 150, 10)

	s := g.Stats()
	assert.Equal(t, 2, s.TotalCells)
	assert.Equal(t, 2, s.NonEmptyCells)
	assert.Equal(t, 3, s.TotalEntities)
	assert.Equal(t, 2, s.MaxInCell)
	assert.InDelta(t, 1.5, s.AvgPerNonEmpty, 1e-9)
}

func TestQueueFIFOAndCapacity(t *testing.T) {
	q := NewLockFreeQueue[int](3)
	require.Equal(t, 4, q.Cap())

	for i := 0; i < 4; i++ {
		require.True(t, q.TryPush(i))
	}
	assert.False(t, q.TryPush(99), "full")
	assert.Equal(t, 4, q.Len())

	v, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 0, v)
	assert.True(t, q.TryPush(4), "a pop frees a slot")

	buf := make([]int, 8)
	n := q.DrainTo(buf)
	assert.Equal(t, []int{1, 2, 3, 4}, buf[:n])

	_, ok = q.TryPop()
	assert.False(t, ok)
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers, each = 8, 1000
	q := NewLockFreeQueue[int](producers * each)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				for !q.TryPush(p*each + i) {
				}
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int]bool, producers*each)
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		require.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
		p, i := v/each, v%each
		require.Greater(t, i, last[p], "per-producer order")
		last[p] = i
	}
	assert.Len(t, seen, producers*each)
}

func TestSkipListRanksByScoreThenID(t *testing.T) {
	sl := NewSkipList(1)
	sl.Set(3, 100)
	sl.Set(1, 50)
	sl.Set(2, 100)
	sl.Set(4, -10)

	assert.Equal(t, 4, sl.Len())
	assert.Equal(t, []RankEntry{{2, 100}, {3, 100}, {1, 50}, {4, -10}}, sl.Range(1, 10))
	assert.Equal(t, 1, sl.Rank(2))
	assert.Equal(t, 2, sl.Rank(3))
	assert.Equal(t, 4, sl.Rank(4))
	assert.Zero(t, sl.Rank(99))
	assert.Equal(t, []RankEntry{{3, 100}, {1, 50}}, sl.Range(2, 3))
	assert.Nil(t, sl.Range(5, 9))
}

func TestSkipListMoveAndRemove(t *testing.T) {
	sl := NewSkipList(2)
	for id := uint32(1); id <= 5; id++ {
		sl.Set(id, float64(id))
	}
	assert.Equal(t, 1, sl.Rank(5))

	sl.Set(1, 1000)
	assert.Equal(t, 1, sl.Rank(1))
	assert.Equal(t, 2, sl.Rank(5))
	assert.Equal(t, 5, sl.Len())

	assert.True(t, sl.Remove(5))
	assert.False(t, sl.Remove(5))
	assert.Equal(t, 2, sl.Rank(4))
	score, ok := sl.Score(1)
	assert.True(t, ok)
	assert.Equal(t, 1000.0, score)

	sl.Clear()
	assert.Zero(t, sl.Len())
	assert.Nil(t, sl.Range(1, 3))
	_, ok = sl.Score(1)
	assert.False(t, ok)
}

func TestSkipListMatchesSort(t *testing.T) {
	sl := NewSkipList(3)
	scores := make(map[uint32]float64)
	for i := 0; i < 500; i++ {
		id := uint32(i%97 + 1)
		score := float64((i * 37) % 23)
		if i%11 == 0 {
			sl.Remove(id)
			delete(scores, id)
			continue
		}
		sl.Set(id, score)
		scores[id] = score
	}

	want := make([]RankEntry, 0, len(scores))
	for id, s := range scores {
		want = append(want, RankEntry{ID: id, Score: s})
	}
	sort.Slice(want, func(i, j int) bool { return want[i].before(want[j]) })

	require.Equal(t, len(want), sl.Len())
	assert.Equal(t, want, sl.Range(1, len(want)))
	for i, e := range want {
		assert.Equal(t, i+1, sl.Rank(e.ID), "id %d", e.ID)
	}
}
