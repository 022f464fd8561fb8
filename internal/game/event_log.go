package game

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/game/spatial"
)

const (
	EventBufferSize         = 1024                   // Queue capacity
	MaxEventsPerSec         = 10000                  // Global rate limit
	MaxEventsPerCharacter   = 100                    // Per-character rate limit per second
	BatchFlushSize          = 64                     // Events per batch write
	BatchFlushInterval      = 100 * time.Millisecond // How often to flush
	CharacterLimiterCleanup = 5 * time.Minute        // Cleanup interval for character limiters
)

// EventLog is a bounded, rate-limited JSONL log of combat events. The tick
// goroutine emits; a writer goroutine batches to disk.
type EventLog struct {
	queue *spatial.LockFreeQueue[Event]
	seq   atomic.Uint64
	log   zerolog.Logger

	// Rate limiting for DoS protection
	globalLimiter     *rate.Limiter
	characterLimiters sync.Map // map[combat.CharacterID]*characterLimiterEntry

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out    *bufio.Writer
	closer io.Closer

	// Stats for DoS detection and monitoring
	droppedCount atomic.Uint64
	totalCount   atomic.Uint64
	writtenCount atomic.Uint64
	byType       [EventTypeRespawn + 1]atomic.Uint64
}

type characterLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// NewEventLog creates a new bounded event log
func NewEventLog(log zerolog.Logger) *EventLog {
	return &EventLog{
		queue:         spatial.NewLockFreeQueue[Event](EventBufferSize),
		log:           log,
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the writer goroutines.
func (el *EventLog) Start(filePath string) error {
	if el.running.Load() {
		return nil
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	el.StartWriter(file)
	return nil
}

// StartWriter begins writing to w. If w is an io.Closer it is closed by
// Stop.
func (el *EventLog) StartWriter(w io.Writer) {
	if !el.running.CompareAndSwap(false, true) {
		return
	}
	el.out = bufio.NewWriter(w)
	if c, ok := w.(io.Closer); ok {
		el.closer = c
	}
	el.writerWg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
}

// Stop flushes pending events and shuts down the writer.
func (el *EventLog) Stop() {
	if !el.running.Load() {
		return
	}
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.writerWg.Wait()
		if el.closer != nil {
			if err := el.closer.Close(); err != nil {
				el.log.Warn().Err(err).Msg("close event log")
			}
		}
	})
}

// Running reports whether events are accepted.
func (el *EventLog) Running() bool { return el.running.Load() }

// Emit adds an event. It returns false if rate limited or the queue is
// full.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		el.droppedCount.Add(1)
		return false
	}

	// Per-character limit keeps one spamming client from flooding the log.
	if event.Character != 0 && !el.characterLimiter(event.Character).Allow() {
		el.droppedCount.Add(1)
		return false
	}

	event.Sequence = el.seq.Add(1)
	if !el.queue.TryPush(event) {
		el.droppedCount.Add(1)
		return false
	}

	el.totalCount.Add(1)
	if int(event.Type) < len(el.byType) {
		el.byType[event.Type].Add(1)
	}
	return true
}

// EmitOutcome logs a verification outcome.
func (el *EventLog) EmitOutcome(tick uint64, roundID string, o combat.Outcome) bool {
	return el.Emit(NewEvent(EventTypeForOutcome(o), tick, roundID, o.Attacker, NewOutcomePayload(o)))
}

func (el *EventLog) characterLimiter(id combat.CharacterID) *rate.Limiter {
	now := time.Now().UnixNano()
	if entry, ok := el.characterLimiters.Load(id); ok {
		e := entry.(*characterLimiterEntry)
		e.lastUsed.Store(now)
		return e.limiter
	}

	entry := &characterLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerCharacter, MaxEventsPerCharacter/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.characterLimiters.LoadOrStore(id, entry)
	return actual.(*characterLimiterEntry).limiter
}

// writerLoop batches and writes events asynchronously
func (el *EventLog) writerLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			for el.flushBatch(batch) == len(batch) {
			}
			return
		case <-ticker.C:
			for el.flushBatch(batch) == len(batch) {
			}
		}
	}
}

// cleanupLoop removes stale character limiters
func (el *EventLog) cleanupLoop() {
	defer el.writerWg.Done()

	ticker := time.NewTicker(CharacterLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupCharacterLimiters()
		}
	}
}

func (el *EventLog) cleanupCharacterLimiters() {
	cutoff := time.Now().Add(-CharacterLimiterCleanup).UnixNano()
	el.characterLimiters.Range(func(key, value any) bool {
		if value.(*characterLimiterEntry).lastUsed.Load() < cutoff {
			el.characterLimiters.Delete(key)
		}
		return true
	})
}

// flushBatch drains up to len(batch) events as newline-delimited JSON and
// returns how many it drained.
func (el *EventLog) flushBatch(batch []Event) int {
	n := el.queue.DrainTo(batch)
	if n == 0 {
		return 0
	}
	enc := json.NewEncoder(el.out)
	for i := range batch[:n] {
		if err := enc.Encode(&batch[i]); err != nil {
			el.log.Warn().Err(err).Str("event", batch[i].Name).Msg("encode event")
			continue
		}
		el.writtenCount.Add(1)
	}
	if err := el.out.Flush(); err != nil {
		el.log.Warn().Err(err).Msg("flush event log")
	}
	return n
}

// EventStats is a summary of event log activity.
type EventStats struct {
	Total   uint64            `json:"total"`
	Dropped uint64            `json:"dropped"`
	Written uint64            `json:"written"`
	Pending int               `json:"pending"`
	Running bool              `json:"running"`
	ByType  map[string]uint64 `json:"by_type"`
}

// Stats returns metrics for DoS monitoring
func (el *EventLog) Stats() EventStats {
	s := EventStats{
		Total:   el.totalCount.Load(),
		Dropped: el.droppedCount.Load(),
		Written: el.writtenCount.Load(),
		Pending: el.queue.Len(),
		Running: el.running.Load(),
		ByType:  make(map[string]uint64),
	}
	for i := range el.byType {
		if n := el.byType[i].Load(); n > 0 {
			s.ByType[EventType(i).String()] = n
		}
	}
	return s
}
