// Package config provides centralized configuration management.
// Defaults live here; a ceremony.json file and CEREMONY_* environment
// variables override them through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port       int
	MaxPlayers int
	TickRate   int    // Simulation ticks per second
	ListenHost bool   // Host plays on the server node (listen server)
	HostName   string // Display name of the listen-server player
	AdminToken string // Shared secret for /api/admin login, empty disables admin
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:       3000,
		MaxPlayers: 16,
		TickRate:   60,
		ListenHost: false,
		HostName:   "host",
	}
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and performance limits.
type ResourceLimits struct {
	MaxCharacters    int // Hard cap on live characters per node
	MaxProjectiles   int // Maximum active projectiles
	MaxInboxCommands int // Command inbox capacity, rounded up to a power of 2
	RPCPerSecond     int // Sustained action server calls per session
	RPCBurst         int

	// Movement and rotation, sent every tick, have their own budget.
	StreamRPCPerSecond int
	StreamRPCBurst     int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxCharacters:    64,
		MaxProjectiles:   64,
		MaxInboxCommands: 4096,
		RPCPerSecond:     120,
		RPCBurst:         240,

		StreamRPCPerSecond: 150,
		StreamRPCBurst:     300,
	}
}

// =============================================================================
// SPATIAL CONFIGURATION
// =============================================================================

// SpatialConfig holds arena and broad-phase settings, in centimetres.
type SpatialConfig struct {
	ArenaSize     float64 // Square arena side length
	GridCellSize  float64 // Spatial grid cell size
	SpawnRadius   float64 // Ring on which characters spawn
	CapsuleRadius float64 // Character collision capsule
	CapsuleHalf   float64 // Character capsule half height
}

// DefaultSpatial returns the default spatial configuration.
func DefaultSpatial() SpatialConfig {
	return SpatialConfig{
		ArenaSize:     6000,
		GridCellSize:  250,
		SpawnRadius:   600,
		CapsuleRadius: 34,
		CapsuleHalf:   88,
	}
}

// =============================================================================
// CHARACTER COMBAT CONFIGURATION
// =============================================================================

// CombatConfig holds the per-character resource and action tunables.
type CombatConfig struct {
	HealthMaximum    float64
	EnduranceMaximum float64

	EnduranceRecoveryPerSecond         float64
	BlockingEnduranceRecoveryPerSecond float64
	AimingEnduranceRecoveryPerSecond   float64

	RunEnduranceCostPerSecond float64
	RunToZeroEndurancePenalty float64 // Endurance is pinned here when running drains it
	WalkSpeed                 float64
	RunSpeed                  float64
	MoveTolerance             float64 // Slack on top of RunSpeed for reported moves

	JumpEnduranceConsumption float64
	JumpAirTime              float64 // Seconds spent falling after a jump

	RollEnduranceConsumption float64
	RollPressReleaseTime     float64 // Run taps shorter than this roll

	KickEnduranceConsumption float64
	KickEnduranceDamage      float64
	KickStunTime             float64
	KickReach                float64
	KickRadius               float64

	StaggerTime        float64
	StunCountMaximum   int
	MontageBlendOut    float64
	LifeSpanAfterDeath float64
}

// DefaultCombat returns the default character tunables.
func DefaultCombat() CombatConfig {
	return CombatConfig{
		HealthMaximum:    100,
		EnduranceMaximum: 100,

		EnduranceRecoveryPerSecond:         40,
		BlockingEnduranceRecoveryPerSecond: 10,
		AimingEnduranceRecoveryPerSecond:   10,

		RunEnduranceCostPerSecond: 20,
		RunToZeroEndurancePenalty: -30,
		WalkSpeed:                 400,
		RunSpeed:                  600,
		MoveTolerance:             150,

		JumpEnduranceConsumption: 40,
		JumpAirTime:              0.8,

		RollEnduranceConsumption: 20,
		RollPressReleaseTime:     0.2,

		KickEnduranceConsumption: 20,
		KickEnduranceDamage:      90,
		KickStunTime:             0.1,
		KickReach:                70,
		KickRadius:               25,

		StaggerTime:        2.0,
		StunCountMaximum:   1,
		MontageBlendOut:    0.25,
		LifeSpanAfterDeath: 5.0,
	}
}

// =============================================================================
// SERVER VERIFICATION
// =============================================================================

// VerifyConfig holds the authoritative thresholds used when re-checking
// client hit claims.
type VerifyConfig struct {
	OverlapSphereRadius   float64
	BackStabMaxDistance   float64
	BackStabMinDotProduct float64
	RiposteMaxDistance    float64
	RiposteMaxDotProduct  float64
}

// DefaultVerify returns the default server thresholds.
func DefaultVerify() VerifyConfig {
	return VerifyConfig{
		OverlapSphereRadius:   20,
		BackStabMaxDistance:   100,
		BackStabMinDotProduct: 0.8,
		RiposteMaxDistance:    100,
		RiposteMaxDotProduct:  -0.8,
	}
}

// =============================================================================
// LOCK-ON
// =============================================================================

// LockOnConfig holds target selection settings.
type LockOnConfig struct {
	DotProductRange          float64 // Minimum facing dot for a candidate
	SphereRadius             float64
	SelectNewTargetThreshold float64 // Yaw input magnitude that re-selects
	CharacterRotationRate    float64 // Degrees per second
	CameraAdjustmentRate     float64
	PitchOffset              float64
}

// DefaultLockOn returns the default lock-on configuration.
func DefaultLockOn() LockOnConfig {
	return LockOnConfig{
		DotProductRange:          0.5,
		SphereRadius:             1000,
		SelectNewTargetThreshold: 0.5,
		CharacterRotationRate:    360,
		CameraAdjustmentRate:     50,
		PitchOffset:              200,
	}
}

// =============================================================================
// LOADOUT & ROUND
// =============================================================================

// LoadoutConfig names the armory entries handed to every new character.
type LoadoutConfig struct {
	RightHand string
	LeftHand  string
}

// DefaultLoadout returns sword and shield.
func DefaultLoadout() LoadoutConfig {
	return LoadoutConfig{
		RightHand: "sword",
		LeftHand:  "shield",
	}
}

// RoundConfig holds game mode settings.
type RoundConfig struct {
	RestartInterval time.Duration // How often dead players are respawned
	PlayerColors    int           // Player numbers cycle modulo this
}

// DefaultRound returns the default game mode settings.
func DefaultRound() RoundConfig {
	return RoundConfig{
		RestartInterval: time.Second,
		PlayerColors:    4,
	}
}

// =============================================================================
// LOGGING & OBSERVABILITY
// =============================================================================

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level   string // debug, info, warn, error
	Console bool   // Human-readable console output instead of JSON
}

// DefaultLogging returns info-level console logging.
func DefaultLogging() LoggingConfig {
	return LoggingConfig{
		Level:   "info",
		Console: true,
	}
}

// ObservabilityConfig holds debug endpoint and event log settings.
type ObservabilityConfig struct {
	DebugPort    int
	EventLogPath string // Empty disables the combat event log
}

// DefaultObservability returns the default observability settings.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		DebugPort:    6060,
		EventLogPath: "events.jsonl",
	}
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server        ServerConfig
	Limits        ResourceLimits
	Spatial       SpatialConfig
	Combat        CombatConfig
	Verify        VerifyConfig
	LockOn        LockOnConfig
	Loadout       LoadoutConfig
	Round         RoundConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
}

// Default returns the complete configuration without any overrides.
func Default() AppConfig {
	return AppConfig{
		Server:        DefaultServer(),
		Limits:        DefaultLimits(),
		Spatial:       DefaultSpatial(),
		Combat:        DefaultCombat(),
		Verify:        DefaultVerify(),
		LockOn:        DefaultLockOn(),
		Loadout:       DefaultLoadout(),
		Round:         DefaultRound(),
		Logging:       DefaultLogging(),
		Observability: DefaultObservability(),
	}
}

// Load returns the complete configuration with file and environment overrides.
func Load() (AppConfig, error) {
	v := viper.New()
	return LoadWith(v)
}

// LoadWith reads overrides through the given viper instance. Tests use a
// fresh instance pointed at a temp directory.
func LoadWith(v *viper.Viper) (AppConfig, error) {
	cfg := Default()
	setDefaults(v, cfg)

	v.SetConfigName("ceremony")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if dir := os.Getenv("CEREMONY_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("CEREMONY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}

	// Legacy PORT variable still wins, deploy scripts set it.
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Server.Port = p
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations the simulation cannot run with.
func (c AppConfig) Validate() error {
	switch {
	case c.Server.TickRate <= 0:
		return fmt.Errorf("server.tickrate must be positive, got %d", c.Server.TickRate)
	case c.Combat.HealthMaximum <= 0:
		return fmt.Errorf("combat.healthmaximum must be positive, got %v", c.Combat.HealthMaximum)
	case c.Combat.EnduranceMaximum <= 0:
		return fmt.Errorf("combat.endurancemaximum must be positive, got %v", c.Combat.EnduranceMaximum)
	case c.Combat.MoveTolerance < 0:
		return fmt.Errorf("combat.movetolerance must not be negative, got %v", c.Combat.MoveTolerance)
	case c.Spatial.GridCellSize <= 0:
		return fmt.Errorf("spatial.gridcellsize must be positive, got %v", c.Spatial.GridCellSize)
	case c.Round.PlayerColors <= 0:
		return fmt.Errorf("round.playercolors must be positive, got %d", c.Round.PlayerColors)
	}
	return nil
}

// TickInterval is the wall-clock duration of one simulation tick.
func (s ServerConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// setDefaults registers every leaf key so AutomaticEnv can resolve nested
// fields such as CEREMONY_SERVER_PORT.
func setDefaults(v *viper.Viper, cfg AppConfig) {
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.maxplayers", cfg.Server.MaxPlayers)
	v.SetDefault("server.tickrate", cfg.Server.TickRate)
	v.SetDefault("server.listenhost", cfg.Server.ListenHost)
	v.SetDefault("server.hostname", cfg.Server.HostName)
	v.SetDefault("server.admintoken", cfg.Server.AdminToken)

	v.SetDefault("limits.maxcharacters", cfg.Limits.MaxCharacters)
	v.SetDefault("limits.maxprojectiles", cfg.Limits.MaxProjectiles)
	v.SetDefault("limits.maxinboxcommands", cfg.Limits.MaxInboxCommands)
	v.SetDefault("limits.rpcpersecond", cfg.Limits.RPCPerSecond)
	v.SetDefault("limits.rpcburst", cfg.Limits.RPCBurst)
	v.SetDefault("limits.streamrpcpersecond", cfg.Limits.StreamRPCPerSecond)
	v.SetDefault("limits.streamrpcburst", cfg.Limits.StreamRPCBurst)

	v.SetDefault("spatial.arenasize", cfg.Spatial.ArenaSize)
	v.SetDefault("spatial.gridcellsize", cfg.Spatial.GridCellSize)
	v.SetDefault("spatial.spawnradius", cfg.Spatial.SpawnRadius)
	v.SetDefault("spatial.capsuleradius", cfg.Spatial.CapsuleRadius)
	v.SetDefault("spatial.capsulehalf", cfg.Spatial.CapsuleHalf)

	v.SetDefault("combat.healthmaximum", cfg.Combat.HealthMaximum)
	v.SetDefault("combat.endurancemaximum", cfg.Combat.EnduranceMaximum)
	v.SetDefault("combat.endurancerecoverypersecond", cfg.Combat.EnduranceRecoveryPerSecond)
	v.SetDefault("combat.blockingendurancerecoverypersecond", cfg.Combat.BlockingEnduranceRecoveryPerSecond)
	v.SetDefault("combat.aimingendurancerecoverypersecond", cfg.Combat.AimingEnduranceRecoveryPerSecond)
	v.SetDefault("combat.runendurancecostpersecond", cfg.Combat.RunEnduranceCostPerSecond)
	v.SetDefault("combat.runtozeroendurancepenalty", cfg.Combat.RunToZeroEndurancePenalty)
	v.SetDefault("combat.walkspeed", cfg.Combat.WalkSpeed)
	v.SetDefault("combat.runspeed", cfg.Combat.RunSpeed)
	v.SetDefault("combat.movetolerance", cfg.Combat.MoveTolerance)
	v.SetDefault("combat.jumpenduranceconsumption", cfg.Combat.JumpEnduranceConsumption)
	v.SetDefault("combat.jumpairtime", cfg.Combat.JumpAirTime)
	v.SetDefault("combat.rollenduranceconsumption", cfg.Combat.RollEnduranceConsumption)
	v.SetDefault("combat.rollpressreleasetime", cfg.Combat.RollPressReleaseTime)
	v.SetDefault("combat.kickenduranceconsumption", cfg.Combat.KickEnduranceConsumption)
	v.SetDefault("combat.kickendurancedamage", cfg.Combat.KickEnduranceDamage)
	v.SetDefault("combat.kickstuntime", cfg.Combat.KickStunTime)
	v.SetDefault("combat.kickreach", cfg.Combat.KickReach)
	v.SetDefault("combat.kickradius", cfg.Combat.KickRadius)
	v.SetDefault("combat.staggertime", cfg.Combat.StaggerTime)
	v.SetDefault("combat.stuncountmaximum", cfg.Combat.StunCountMaximum)
	v.SetDefault("combat.montageblendout", cfg.Combat.MontageBlendOut)
	v.SetDefault("combat.lifespanafterdeath", cfg.Combat.LifeSpanAfterDeath)

	v.SetDefault("verify.overlapsphereradius", cfg.Verify.OverlapSphereRadius)
	v.SetDefault("verify.backstabmaxdistance", cfg.Verify.BackStabMaxDistance)
	v.SetDefault("verify.backstabmindotproduct", cfg.Verify.BackStabMinDotProduct)
	v.SetDefault("verify.ripostemaxdistance", cfg.Verify.RiposteMaxDistance)
	v.SetDefault("verify.ripostemaxdotproduct", cfg.Verify.RiposteMaxDotProduct)

	v.SetDefault("lockon.dotproductrange", cfg.LockOn.DotProductRange)
	v.SetDefault("lockon.sphereradius", cfg.LockOn.SphereRadius)
	v.SetDefault("lockon.selectnewtargetthreshold", cfg.LockOn.SelectNewTargetThreshold)
	v.SetDefault("lockon.characterrotationrate", cfg.LockOn.CharacterRotationRate)
	v.SetDefault("lockon.cameraadjustmentrate", cfg.LockOn.CameraAdjustmentRate)
	v.SetDefault("lockon.pitchoffset", cfg.LockOn.PitchOffset)

	v.SetDefault("loadout.righthand", cfg.Loadout.RightHand)
	v.SetDefault("loadout.lefthand", cfg.Loadout.LeftHand)

	v.SetDefault("round.restartinterval", cfg.Round.RestartInterval)
	v.SetDefault("round.playercolors", cfg.Round.PlayerColors)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)

	v.SetDefault("observability.debugport", cfg.Observability.DebugPort)
	v.SetDefault("observability.eventlogpath", cfg.Observability.EventLogPath)
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
