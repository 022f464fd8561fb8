package game

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/config"
	"github.com/samalo0/Ceremony/internal/game/spatial"
	"github.com/samalo0/Ceremony/internal/protocol"
)

var (
	ErrFull      = errors.New("arena full")
	ErrNotServer = errors.New("node is not a server")
)

// Options configure an Engine. Zero values fall back to defaults.
type Options struct {
	Config  config.AppConfig
	Mode    combat.NetMode
	Logger  zerolog.Logger
	Link    Link
	Metrics Metrics
	Armory  *combat.Armory
	Catalog *combat.Catalog
	Sound   combat.SoundSink

	// Widget builds the presentation sink for a character. local is true
	// for the character controlled on this node.
	Widget func(id combat.CharacterID, local bool) combat.Widget
}

// Engine is one node of a session: it owns the node's characters and steps
// them on a single goroutine. Other goroutines talk to it through Submit,
// Join and Leave.
type Engine struct {
	mu   sync.Mutex
	cfg  config.AppConfig
	mode combat.NetMode
	log  zerolog.Logger

	arena   *Arena
	timers  *combat.Scheduler
	catalog *combat.Catalog
	armory  *combat.Armory
	sound   combat.SoundSink
	widget  func(id combat.CharacterID, local bool) combat.Widget
	metrics Metrics

	inbox  *spatial.LockFreeQueue[Command]
	drain  []Command
	outbox []Outgoing
	link   Link

	players   map[combat.CharacterID]*Player
	nextID    combat.CharacterID
	localID   combat.CharacterID
	published map[combat.CharacterID]combat.ReplicatedState
	tickOrder []combat.CharacterID

	projectiles      []*Projectile
	nextProjectileID uint64

	round     *Round
	board     *Leaderboard
	eventLog  *EventLog
	snapshots *SnapshotPool

	tickCount uint64
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	done      chan struct{}
}

// NewEngine creates an engine for the given node mode.
func NewEngine(opts Options) *Engine {
	cfg := opts.Config
	if cfg.Server.TickRate <= 0 {
		cfg = config.Default()
	}
	e := &Engine{
		cfg:       cfg,
		mode:      opts.Mode,
		log:       opts.Logger.With().Str("component", "engine").Str("mode", opts.Mode.String()).Logger(),
		timers:    combat.NewScheduler(),
		catalog:   opts.Catalog,
		armory:    opts.Armory,
		sound:     opts.Sound,
		widget:    opts.Widget,
		metrics:   opts.Metrics,
		inbox:     spatial.NewLockFreeQueue[Command](cfg.Limits.MaxInboxCommands),
		link:      opts.Link,
		players:   make(map[combat.CharacterID]*Player),
		published: make(map[combat.CharacterID]combat.ReplicatedState),
		round:     NewRound(cfg.Round),
		board:     NewLeaderboard(),
		snapshots: NewSnapshotPool(cfg.Limits.MaxCharacters, cfg.Limits.MaxProjectiles),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	e.drain = make([]Command, e.inbox.Cap())
	e.arena = NewArena(cfg.Spatial, cfg.Limits.MaxCharacters)
	e.arena.onSpawnProjectile = e.spawnProjectile
	e.arena.onDestroy = e.destroyCharacter
	e.eventLog = NewEventLog(e.log.With().Str("component", "eventlog").Logger())

	if e.catalog == nil {
		e.catalog = combat.DefaultCatalog()
	}
	if e.armory == nil {
		e.armory = combat.DefaultArmory()
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.link == nil {
		e.link = nopLink{}
	}
	return e
}

// IsServer reports whether this node holds authority over characters.
func (e *Engine) IsServer() bool { return e.mode != combat.Client }

// Mode returns the node mode.
func (e *Engine) Mode() combat.NetMode { return e.mode }

// Config returns the engine configuration.
func (e *Engine) Config() config.AppConfig { return e.cfg }

// Start begins the game loop
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(e.cfg.Server.TickInterval())
	e.mu.Unlock()

	dt := 1 / float64(e.cfg.Server.TickRate)
	go func() {
		defer close(e.done)
		for {
			select {
			case <-e.ticker.C:
				e.Step(dt)
			case <-e.stopChan:
				return
			}
		}
	}()

	e.log.Info().Int("tickrate", e.cfg.Server.TickRate).Msg("Game engine started")
}

// Stop stops the game loop and waits for the current tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		e.eventLog.Stop()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	e.mu.Unlock()

	<-e.done
	e.eventLog.Stop()
	e.log.Info().Uint64("ticks", e.tickCount).Msg("Game engine stopped")
}

// Submit queues a command for the next tick. It never blocks; false means
// the inbox was full and the command was dropped.
func (e *Engine) Submit(cmd Command) bool {
	if e.inbox.TryPush(cmd) {
		return true
	}
	e.metrics.CountDroppedCommand()
	e.log.Warn().Stringer("command", cmd.Kind).Uint32("character", uint32(cmd.Character)).Msg("inbox full, command dropped")
	return false
}

// Control queues fn to run against a character on the tick goroutine. A
// zero id selects the local character.
func (e *Engine) Control(id combat.CharacterID, fn func(*combat.Character)) bool {
	return e.Submit(Command{Kind: CommandControl, Character: id, Control: fn})
}

// =============================================================================
// TICK
// =============================================================================

// Step advances the node by dt seconds: commands, timers, characters,
// projectiles, round rules, replication, snapshot and outbox, in that order.
func (e *Engine) Step(dt float64) {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickCount++
	e.drainInbox()
	e.timers.Advance(dt)
	e.arena.Rebuild()

	e.tickOrder = append(e.tickOrder[:0], e.arena.Order()...)
	for _, id := range e.tickOrder {
		if c := e.arena.Character(id); c != nil {
			c.Tick(dt)
		}
	}

	if e.IsServer() {
		e.updateProjectiles(dt)
		if e.round.DueRestart(dt) {
			e.restartDeadPlayers()
		}
		e.replicate()
	}

	e.produceSnapshot()
	e.flush()
	e.metrics.ObserveTick(time.Since(start), e.arena.Len(), len(e.projectiles))
}

func (e *Engine) drainInbox() {
	n := e.inbox.DrainTo(e.drain)
	for i := range e.drain[:n] {
		e.handle(e.drain[i])
		e.drain[i] = Command{}
	}
}

func (e *Engine) handle(cmd Command) {
	switch cmd.Kind {
	case CommandControl:
		id := cmd.Character
		if id == 0 {
			id = e.localID
		}
		if c := e.arena.Character(id); c != nil && cmd.Control != nil {
			cmd.Control(c)
		}
		return
	case CommandRestartRound:
		if e.IsServer() {
			e.restartRound("admin")
		}
		return
	}

	if e.IsServer() {
		if cmd.Kind != CommandServerCall || cmd.Server == nil {
			e.log.Warn().Stringer("command", cmd.Kind).Msg("client command on server dropped")
			return
		}
		c := e.arena.Character(cmd.Character)
		if c == nil {
			e.log.Debug().Uint32("character", uint32(cmd.Character)).Str("call", cmd.Server.ServerCallName()).Msg("server call for unknown character")
			return
		}
		e.metrics.CountCall("in", cmd.Server.ServerCallName())
		c.ExecuteServerCall(cmd.Server)
		return
	}

	switch cmd.Kind {
	case CommandWelcome:
		e.localID = cmd.Character
		e.log.Info().Uint32("character", uint32(cmd.Character)).Msg("Welcomed")
	case CommandSpawn:
		e.spawnProxy(cmd.Spawn)
	case CommandDespawn:
		e.arena.Remove(cmd.Character)
	case CommandOwnerCall:
		if c := e.arena.Character(cmd.Character); c != nil && cmd.Owner != nil {
			e.metrics.CountCall("in", cmd.Owner.OwnerCallName())
			c.ExecuteOwnerCall(cmd.Owner)
		}
	case CommandMulticast:
		if c := e.arena.Character(cmd.Character); c != nil && cmd.Multicast != nil {
			e.metrics.CountCall("in", cmd.Multicast.MulticastCallName())
			c.ExecuteMulticast(cmd.Multicast)
		}
	case CommandState:
		if c := e.arena.Character(cmd.Delta.ID); c != nil {
			c.ApplyReplicated(cmd.Delta, e.armory)
		}
	default:
		e.log.Warn().Stringer("command", cmd.Kind).Msg("server command on client dropped")
	}
}

func (e *Engine) emit(out Outgoing) {
	e.outbox = append(e.outbox, out)
}

func (e *Engine) flush() {
	if len(e.outbox) == 0 {
		return
	}
	e.link.Deliver(e.outbox)
	for i := range e.outbox {
		e.outbox[i] = Outgoing{}
	}
	e.outbox = e.outbox[:0]
}

// replicate publishes what changed on every authority character since the
// last tick.
func (e *Engine) replicate() {
	for _, id := range e.arena.Order() {
		prev, ok := e.published[id]
		if !ok {
			continue
		}
		next := e.arena.Character(id).Snapshot()
		if mask := combat.Diff(prev, next); mask != 0 {
			e.published[id] = next
			e.emit(Outgoing{Kind: OutState, Character: id, Delta: combat.StateDelta{ID: id, Mask: mask, State: next}})
		}
	}
}

// =============================================================================
// CHARACTERS
// =============================================================================

func (e *Engine) newCharacter(id combat.CharacterID, name string, role combat.NetRole, local bool, at combat.Vec3, yaw float64) *combat.Character {
	opts := combat.CharacterOptions{
		ID:                id,
		Name:              name,
		Role:              role,
		Mode:              e.mode,
		LocallyControlled: local,
		Combat:            e.cfg.Combat,
		Verify:            e.cfg.Verify,
		LockOn:            e.cfg.LockOn,
		CapsuleRadius:     e.cfg.Spatial.CapsuleRadius,
		CapsuleHalfHeight: e.cfg.Spatial.CapsuleHalf,
		World:             e.arena,
		Transport:         (*engineTransport)(e),
		Timers:            e.timers,
		Sound:             e.sound,
		Catalog:           e.catalog,
		Logger:            e.log,
		Location:          at,
		Yaw:               yaw,
	}
	if e.widget != nil {
		opts.Widget = e.widget(id, local)
	}
	if role == combat.RoleAuthority {
		opts.Observer = (*engineObserver)(e)
	}
	return combat.NewCharacter(opts)
}

// Join seats a new player and spawns their character. local marks the
// player controlled on this node (the listen-server host or the standalone
// player).
func (e *Engine) Join(name string, local bool) (combat.CharacterID, error) {
	return e.join(name, local, nil)
}

// JoinSession seats a remote player. attach runs with the engine locked,
// before any message addressed to the new id can be delivered, so the
// caller can route the session first. attach must not call the engine.
func (e *Engine) JoinSession(name string, attach func(combat.CharacterID)) (combat.CharacterID, error) {
	return e.join(name, false, attach)
}

func (e *Engine) join(name string, local bool, attach func(combat.CharacterID)) (combat.CharacterID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.IsServer() {
		return 0, ErrNotServer
	}
	if len(e.players) >= e.cfg.Server.MaxPlayers || e.arena.Len() >= e.cfg.Limits.MaxCharacters {
		e.log.Warn().Str("name", name).Int("players", len(e.players)).Msg("Player limit reached, rejecting")
		return 0, ErrFull
	}

	e.nextID++
	p := &Player{
		ID:       e.nextID,
		Name:     name,
		Local:    local,
		JoinedAt: time.Now(),
	}
	p.Number = e.round.PlayerNumber(len(e.players) + 1)
	if local {
		e.localID = p.ID
	}
	if attach != nil {
		attach(p.ID)
	}

	// The newcomer learns about everyone already here first.
	for _, id := range e.arena.Order() {
		c := e.arena.Character(id)
		e.emit(Outgoing{Kind: OutSpawn, To: p.ID, Character: id, Spawn: spawnMessage(c)})
		e.emit(Outgoing{Kind: OutState, To: p.ID, Character: id, Delta: combat.StateDelta{ID: id, Mask: combat.FieldAll, State: c.Snapshot()}})
	}

	e.players[p.ID] = p
	e.board.Record(p)
	c := e.spawn(p)
	e.eventLog.Emit(NewEvent(EventTypePlayerJoin, e.tickCount, e.round.ID.String(), 0, PlayerPayload{
		Character:    p.ID,
		Name:         p.Name,
		PlayerNumber: p.Number,
		Location:     c.Location(),
	}))
	e.log.Info().Uint32("character", uint32(p.ID)).Str("name", name).Int("player_number", p.Number).Msg("Player joined")
	return p.ID, nil
}

// spawn creates the authority character for p and announces it.
func (e *Engine) spawn(p *Player) *combat.Character {
	at, yaw := e.arena.SpawnPoint(int(p.ID) - 1)
	c := e.newCharacter(p.ID, p.Name, combat.RoleAuthority, p.Local, at, yaw)
	c.SetPlayerNumber(p.Number)
	e.equipLoadout(c)

	e.arena.Add(c)
	p.Character = c
	p.awaitingRestart = false

	st := c.Snapshot()
	e.published[p.ID] = st
	e.emit(Outgoing{Kind: OutSpawn, Character: p.ID, Spawn: spawnMessage(c)})
	e.emit(Outgoing{Kind: OutState, Character: p.ID, Delta: combat.StateDelta{ID: p.ID, Mask: combat.FieldAll, State: st}})
	return c
}

func (e *Engine) equipLoadout(c *combat.Character) {
	for _, slot := range []struct {
		hand combat.Hand
		name string
	}{
		{combat.RightHand, e.cfg.Loadout.RightHand},
		{combat.LeftHand, e.cfg.Loadout.LeftHand},
	} {
		if slot.name == "" {
			continue
		}
		if err := c.EquipByName(e.armory, slot.hand, slot.name); err != nil {
			e.log.Warn().Err(err).Str("item", slot.name).Stringer("hand", slot.hand).Msg("loadout item skipped")
		}
	}
}

func spawnMessage(c *combat.Character) protocol.Spawn {
	return protocol.Spawn{
		ID:           c.ID(),
		Name:         c.Name(),
		PlayerNumber: c.PlayerNumber(),
		Location:     c.Location(),
		Yaw:          c.Yaw(),
	}
}

// spawnProxy creates a client-side instance from a spawn message. The
// welcomed character becomes the autonomous proxy.
func (e *Engine) spawnProxy(s protocol.Spawn) {
	if s.ID == 0 {
		return
	}
	local := s.ID == e.localID
	role := combat.RoleSimulatedProxy
	if local {
		role = combat.RoleAutonomousProxy
	}
	e.arena.Remove(s.ID)
	c := e.newCharacter(s.ID, s.Name, role, local, s.Location, s.Yaw)
	e.arena.Add(c)
	e.log.Debug().Uint32("character", uint32(s.ID)).Stringer("role", role).Msg("Spawned")
}

// Leave removes a player and their character.
func (e *Engine) Leave(id combat.CharacterID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.players[id]
	if !ok {
		return false
	}
	delete(e.players, id)
	e.board.Remove(id)
	e.removeBody(id)

	// Arrows in flight lose their owner's credit.
	kept := e.projectiles[:0]
	for _, pr := range e.projectiles {
		if pr.Owner == nil || pr.Owner.ID() != id {
			kept = append(kept, pr)
		}
	}
	e.projectiles = kept

	e.eventLog.Emit(NewEvent(EventTypePlayerLeave, e.tickCount, e.round.ID.String(), 0, PlayerPayload{
		Character:    id,
		Name:         p.Name,
		PlayerNumber: p.Number,
	}))
	e.log.Info().Uint32("character", uint32(id)).Str("name", p.Name).Msg("Player left")
	return true
}

func (e *Engine) removeBody(id combat.CharacterID) {
	if !e.arena.Remove(id) {
		return
	}
	delete(e.published, id)
	e.emit(Outgoing{Kind: OutDespawn, Character: id})
}

// destroyCharacter schedules removal of a dead body.
func (e *Engine) destroyCharacter(id combat.CharacterID, delay float64) {
	c := e.arena.Character(id)
	e.timers.After(delay, func() {
		// A restart may have replaced the body in the meantime.
		if e.arena.Character(id) != c {
			return
		}
		e.removeBody(id)
		if p, ok := e.players[id]; ok {
			p.Character = nil
			p.awaitingRestart = true
		}
	})
}

// restartDeadPlayers spawns a fresh character for every player whose body
// was destroyed.
func (e *Engine) restartDeadPlayers() {
	for _, id := range e.playerIDs() {
		p := e.players[id]
		if !p.awaitingRestart {
			continue
		}
		c := e.spawn(p)
		e.eventLog.Emit(NewEvent(EventTypeRespawn, e.tickCount, e.round.ID.String(), 0, PlayerPayload{
			Character:    id,
			Name:         p.Name,
			PlayerNumber: p.Number,
			Location:     c.Location(),
		}))
		e.log.Info().Uint32("character", uint32(id)).Msg("Player restarted")
	}
}

// restartRound clears scores and respawns every player.
func (e *Engine) restartRound(reason string) {
	e.round.Reset()
	e.board.Clear()
	e.projectiles = e.projectiles[:0]
	for _, id := range e.playerIDs() {
		p := e.players[id]
		p.Kills, p.Deaths = 0, 0
		e.board.Record(p)
		e.removeBody(id)
		e.spawn(p)
	}
	e.eventLog.Emit(NewEvent(EventTypeRoundStart, e.tickCount, e.round.ID.String(), 0, RoundPayload{
		Reason:  reason,
		Players: len(e.players),
	}))
	e.log.Info().Str("round", e.round.ID.String()).Str("reason", reason).Msg("Round restarted")
}

// RestartRound queues a round restart.
func (e *Engine) RestartRound() bool {
	return e.Submit(Command{Kind: CommandRestartRound})
}

func (e *Engine) playerIDs() []combat.CharacterID {
	ids := make([]combat.CharacterID, 0, len(e.players))
	for id := range e.players {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// =============================================================================
// PROJECTILES
// =============================================================================

func (e *Engine) spawnProjectile(owner *combat.Character, location combat.Vec3, yaw float64, params combat.RangedAttackParams) {
	if len(e.projectiles) >= e.cfg.Limits.MaxProjectiles {
		e.log.Warn().Uint32("character", uint32(owner.ID())).Msg("projectile limit reached")
		return
	}
	e.nextProjectileID++
	e.projectiles = append(e.projectiles, NewProjectile(e.nextProjectileID, owner, location, yaw, params))
}

func (e *Engine) updateProjectiles(dt float64) {
	kept := e.projectiles[:0]
	for _, p := range e.projectiles {
		if _, keep := p.Update(e.arena, dt); keep {
			kept = append(kept, p)
		}
	}
	for i := len(kept); i < len(e.projectiles); i++ {
		e.projectiles[i] = nil
	}
	e.projectiles = kept
}

// =============================================================================
// OBSERVER
// =============================================================================

// engineObserver implements combat.Observer for authority characters.
type engineObserver Engine

func (o *engineObserver) OnCombatOutcome(out combat.Outcome) {
	e := (*Engine)(o)
	e.metrics.CountOutcome(out)
	e.eventLog.EmitOutcome(e.tickCount, e.round.ID.String(), out)

	if out.Kind == combat.OutcomeRejected {
		e.log.Debug().Err(out.Err).Str("stage", string(out.Stage)).
			Uint32("attacker", uint32(out.Attacker)).Uint32("target", uint32(out.Target)).
			Msg("hit claim rejected")
		return
	}
	if !out.Killed {
		return
	}
	e.round.TotalKills++
	if p, ok := e.players[out.Attacker]; ok && out.Attacker != out.Target {
		p.Kills++
		e.board.Record(p)
	}
	if p, ok := e.players[out.Target]; ok {
		p.Deaths++
		e.board.Record(p)
	}
	e.log.Info().Uint32("killer", uint32(out.Attacker)).Uint32("victim", uint32(out.Target)).
		Stringer("outcome", out.Kind).Msg("Kill")
}

// =============================================================================
// READ ACCESS
// =============================================================================

func (e *Engine) produceSnapshot() {
	snap := e.snapshots.AcquireWrite()
	snap.Tick = e.tickCount
	snap.RoundID = e.round.ID.String()
	snap.Mode = e.mode.String()
	snap.TotalKills = e.round.TotalKills
	snap.PlayerCount = e.arena.Len()

	for _, id := range e.arena.Order() {
		c := e.arena.Character(id)
		s := snapshotCharacter(c)
		if p, ok := e.players[id]; ok {
			s.Kills, s.Deaths = p.Kills, p.Deaths
		}
		if !s.Dead {
			snap.AliveCount++
		}
		snap.Characters = append(snap.Characters, s)
	}
	for _, p := range e.projectiles {
		snap.Projectiles = append(snap.Projectiles, p.ToSnapshot())
	}
	e.snapshots.PublishWrite()
}

// Snapshot returns the state published by the last tick. Safe from any
// goroutine.
func (e *Engine) Snapshot() GameSnapshot {
	return e.snapshots.Latest()
}

// Players lists seated players ordered by id.
func (e *Engine) Players() []PlayerInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]PlayerInfo, 0, len(e.players))
	for _, id := range e.playerIDs() {
		out = append(out, e.players[id].info())
	}
	return out
}

// Character returns a character instance on this node. The pointer must
// only be used on the tick goroutine or while the engine is stopped.
func (e *Engine) Character(id combat.CharacterID) *combat.Character {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.Character(id)
}

// LocalID returns the id of the character controlled on this node.
func (e *Engine) LocalID() combat.CharacterID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.localID
}

// LocalCharacter returns the character controlled on this node, if any.
// The same rule as Character applies.
func (e *Engine) LocalCharacter() *combat.Character {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.Character(e.localID)
}

// Projectiles returns the number of live projectiles.
func (e *Engine) Projectiles() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.projectiles)
}

// Leaderboard returns the top n players of the current round. Safe from
// any goroutine.
func (e *Engine) Leaderboard(n int) []LeaderboardEntry {
	return e.board.Top(n)
}

// EventLog exposes the combat event log.
func (e *Engine) EventLog() *EventLog { return e.eventLog }

// StartEventLog begins appending events to path.
func (e *Engine) StartEventLog(path string) error {
	return e.eventLog.Start(path)
}

// Now returns simulation seconds on this node.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timers.Now()
}
