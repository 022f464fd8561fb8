package game

import (
	"fmt"
	"io"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/game/spatial"
)

// =============================================================================
// BENCHMARK SUITE: CRITICAL PATH PERFORMANCE TESTS
// Run with: go test -bench=. -benchmem ./internal/game/...
// =============================================================================

// -----------------------------------------------------------------------------
// ENGINE TICK BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkEngineStep_2Players(b *testing.B)  { benchmarkEngineStep(b, 2) }
func BenchmarkEngineStep_8Players(b *testing.B)  { benchmarkEngineStep(b, 8) }
func BenchmarkEngineStep_16Players(b *testing.B) { benchmarkEngineStep(b, 16) }
func BenchmarkEngineStep_64Players(b *testing.B) { benchmarkEngineStep(b, 64) }

func benchmarkEngineStep(b *testing.B, playerCount int) {
	opts := testOptions(combat.DedicatedServer)
	opts.Config.Server.MaxPlayers = playerCount
	opts.Config.Limits.MaxCharacters = playerCount
	engine := NewEngine(opts)

	for i := 0; i < playerCount; i++ {
		if _, err := engine.Join(fmt.Sprintf("Player%d", i), false); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.Step(testDT)
	}
}

// BenchmarkLoopbackMelee measures a full session where every client swings.
func BenchmarkLoopbackMelee(b *testing.B) {
	lb := NewLoopback()
	opts := testOptions(combat.DedicatedServer)
	opts.Link = lb.ServerLink()
	server := NewEngine(opts)
	lb.Attach(server)

	var clients []*Engine
	for i := 0; i < 4; i++ {
		c, _, err := lb.Connect(testOptions(combat.Client), fmt.Sprintf("Player%d", i))
		if err != nil {
			b.Fatal(err)
		}
		clients = append(clients, c)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if i%60 == 0 {
			for _, c := range clients {
				c.Control(0, func(ch *combat.Character) { ch.HandPress1(combat.RightHand) })
			}
		}
		server.Step(testDT)
		for _, c := range clients {
			c.Step(testDT)
		}
	}
}

// -----------------------------------------------------------------------------
// SNAPSHOT GENERATION BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkProduceSnapshot_8Players(b *testing.B)  { benchmarkSnapshot(b, 8) }
func BenchmarkProduceSnapshot_64Players(b *testing.B) { benchmarkSnapshot(b, 64) }

func benchmarkSnapshot(b *testing.B, playerCount int) {
	opts := testOptions(combat.DedicatedServer)
	opts.Config.Server.MaxPlayers = playerCount
	engine := NewEngine(opts)

	for i := 0; i < playerCount; i++ {
		if _, err := engine.Join(fmt.Sprintf("Player%d", i), false); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.produceSnapshot()
	}
}

func BenchmarkSnapshotLatest(b *testing.B) {
	pool := NewSnapshotPool(64, 64)
	w := pool.AcquireWrite()
	for i := 0; i < 64; i++ {
		w.Characters = append(w.Characters, CharacterSnapshot{ID: combat.CharacterID(i + 1)})
	}
	pool.PublishWrite()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = pool.Latest()
	}
}

// -----------------------------------------------------------------------------
// ARENA QUERY BENCHMARKS
// -----------------------------------------------------------------------------

func benchmarkArena(b *testing.B, count int) *Arena {
	b.Helper()
	a := newTestArena()
	for i := 0; i < count; i++ {
		x := rand.Float64()*4000 - 2000
		y := rand.Float64()*4000 - 2000
		addBody(a, combat.CharacterID(i+1), combat.Vec3{X: x, Y: y})
	}
	a.Rebuild()
	return a
}

func BenchmarkArenaRebuild_64(b *testing.B) {
	a := benchmarkArena(b, 64)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		a.Rebuild()
	}
}

func BenchmarkArenaOverlapSphere_64(b *testing.B) {
	a := benchmarkArena(b, 64)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		center := combat.Vec3{X: rand.Float64()*4000 - 2000, Y: rand.Float64()*4000 - 2000}
		_ = a.OverlapSphere(center, 30, 0)
	}
}

func BenchmarkArenaSweepSphere_64(b *testing.B) {
	a := benchmarkArena(b, 64)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		start := combat.Vec3{X: rand.Float64()*4000 - 2000, Y: rand.Float64()*4000 - 2000}
		_ = a.SweepSphere(start, start.Add(combat.Vec3{X: 80}), 30, 0)
	}
}

// -----------------------------------------------------------------------------
// SPATIAL GRID BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkSpatialGrid_Insert(b *testing.B) {
	grid := spatial.NewSpatialGrid(6000, 250, 64)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		grid.Clear()
		for j := 0; j < 64; j++ {
			grid.Insert(uint32(j), rand.Float64()*6000-3000, rand.Float64()*6000-3000)
		}
	}
}

// -----------------------------------------------------------------------------
// COMMAND QUEUE BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkSubmitDrain(b *testing.B) {
	engine := NewEngine(testOptions(combat.DedicatedServer))
	id, err := engine.Join("Player0", false)
	if err != nil {
		b.Fatal(err)
	}
	call := combat.ServerSetRunning{Running: true}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		engine.Submit(Command{Kind: CommandServerCall, Character: id, Server: call})
		if i%64 == 63 {
			engine.Step(testDT)
		}
	}
}

// -----------------------------------------------------------------------------
// EVENT LOG BENCHMARKS
// -----------------------------------------------------------------------------

func BenchmarkEventLogEmit(b *testing.B) {
	el := NewEventLog(zerolog.Nop())
	el.StartWriter(io.Discard)
	defer el.Stop()
	out := combat.Outcome{Kind: combat.OutcomeHit, Attacker: 1, Target: 2, Damage: 10}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		el.EmitOutcome(uint64(i), "bench", out)
	}
}
