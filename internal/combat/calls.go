package combat

// ServerCall is a reliable request from an owning node to the authority.
type ServerCall interface {
	ServerCallName() string
}

// OwnerCall is a reliable request from the authority to the owning node.
type OwnerCall interface {
	OwnerCallName() string
}

// MulticastCall is a reliable request from the authority to every node.
type MulticastCall interface {
	MulticastCallName() string
}

// Server calls.
type (
	ServerSetBlocking struct {
		Blocking   bool `json:"blocking"`
		LeftHanded bool `json:"left_handed"`
	}
	ServerSetParryCanStagger struct {
		Active bool `json:"active"`
	}
	ServerSetInvincible struct {
		Active bool `json:"active"`
	}
	ServerSetLockedOn struct {
		Locked bool `json:"locked"`
	}
	ServerSetRunning struct {
		Running bool `json:"running"`
	}
	ServerSetStaggered struct {
		Staggered bool `json:"staggered"`
	}
	ServerPlayCosmeticMontage struct {
		Montage  string  `json:"montage"`
		Position float64 `json:"position"`
	}
	ServerVerifyOverlapForDamage struct {
		DamageTransaction
	}
	ServerVerifyBackStab struct {
		Target CharacterID `json:"target"`
		Damage float64     `json:"damage"`
	}
	ServerVerifyRiposte struct {
		Target CharacterID `json:"target"`
		Damage float64     `json:"damage"`
	}
	ServerSpawnProjectile struct {
		Location Vec3    `json:"location"`
		Yaw      float64 `json:"yaw"`
	}
	ServerSetActorRotation struct {
		Yaw float64 `json:"yaw"`
	}
	ServerPlaySound struct {
		Sound Sound `json:"sound"`
	}
	ServerMove struct {
		Location Vec3    `json:"location"`
		Yaw      float64 `json:"yaw"`
	}
)

func (ServerSetBlocking) ServerCallName() string            { return "set_blocking" }
func (ServerSetParryCanStagger) ServerCallName() string     { return "set_parry_can_stagger" }
func (ServerSetInvincible) ServerCallName() string          { return "set_invincible" }
func (ServerSetLockedOn) ServerCallName() string            { return "set_locked_on" }
func (ServerSetRunning) ServerCallName() string             { return "set_running" }
func (ServerSetStaggered) ServerCallName() string           { return "set_staggered" }
func (ServerPlayCosmeticMontage) ServerCallName() string    { return "play_cosmetic_montage" }
func (ServerVerifyOverlapForDamage) ServerCallName() string { return "verify_overlap_for_damage" }
func (ServerVerifyBackStab) ServerCallName() string         { return "verify_backstab" }
func (ServerVerifyRiposte) ServerCallName() string          { return "verify_riposte" }
func (ServerSpawnProjectile) ServerCallName() string        { return "spawn_projectile" }
func (ServerSetActorRotation) ServerCallName() string       { return "set_actor_rotation" }
func (ServerPlaySound) ServerCallName() string              { return "play_sound" }
func (ServerMove) ServerCallName() string                   { return "move" }

// Owner calls.
type (
	ClientStunned struct {
		StunTime float64 `json:"stun_time"`
	}
	ClientDepleteEnduranceCanStagger struct {
		Endurance float64 `json:"endurance"`
	}

	ClientStaggered   struct{}
	ClientBackStabbed struct{}
	ClientRiposted    struct{}
)

func (ClientStunned) OwnerCallName() string                    { return "stunned" }
func (ClientStaggered) OwnerCallName() string                  { return "staggered" }
func (ClientDepleteEnduranceCanStagger) OwnerCallName() string { return "deplete_endurance_can_stagger" }
func (ClientBackStabbed) OwnerCallName() string                { return "backstabbed" }
func (ClientRiposted) OwnerCallName() string                   { return "riposted" }

// Multicast calls.
type (
	MulticastPlaySound struct {
		Sound    Sound `json:"sound"`
		Location Vec3  `json:"location"`
	}
	MulticastSetActorRotation struct {
		Yaw float64 `json:"yaw"`
	}
	MulticastOpponentDamage struct {
		Damage float64 `json:"damage"`
	}

	MulticastKill struct{}
)

func (MulticastPlaySound) MulticastCallName() string        { return "play_sound" }
func (MulticastKill) MulticastCallName() string             { return "kill" }
func (MulticastSetActorRotation) MulticastCallName() string { return "set_actor_rotation" }
func (MulticastOpponentDamage) MulticastCallName() string   { return "opponent_damage" }

// ExecuteServerCall runs a server call on the authority instance.
func (c *Character) ExecuteServerCall(call ServerCall) {
	if !c.HasAuthority() {
		c.log.Warn().Str("call", call.ServerCallName()).Msg("server call on non-authority instance dropped")
		return
	}
	if c.dead {
		// A dead character's queued calls are stale.
		return
	}

	switch call := call.(type) {
	case ServerSetBlocking:
		c.blocking = call.Blocking
		c.shieldLeftHanded = call.LeftHanded
	case ServerSetParryCanStagger:
		c.parryCanStagger = call.Active
	case ServerSetInvincible:
		c.invincible = call.Active
	case ServerSetLockedOn:
		c.SetIsLockedOn(call.Locked)
	case ServerSetRunning:
		c.running = call.Running
	case ServerSetStaggered:
		c.SetIsStaggered(call.Staggered)
	case ServerPlayCosmeticMontage:
		c.setCosmetic(call.Montage, call.Position)
	case ServerVerifyOverlapForDamage:
		c.VerifyOverlapForDamage(call.DamageTransaction)
	case ServerVerifyBackStab:
		c.VerifyBackStab(call.Target, call.Damage)
	case ServerVerifyRiposte:
		c.VerifyRiposte(call.Target, call.Damage)
	case ServerSpawnProjectile:
		c.spawnProjectile(call.Location, call.Yaw)
	case ServerSetActorRotation:
		c.multicast(MulticastSetActorRotation{Yaw: call.Yaw})
	case ServerPlaySound:
		c.multicast(MulticastPlaySound{Sound: call.Sound, Location: c.location})
	case ServerMove:
		c.acceptMove(call.Location)
		c.yaw = call.Yaw
	default:
		c.log.Warn().Str("call", call.ServerCallName()).Msg("unhandled server call")
	}
}

// ExecuteOwnerCall runs an owner call on the locally controlled instance.
func (c *Character) ExecuteOwnerCall(call OwnerCall) {
	if !c.local {
		c.log.Warn().Str("call", call.OwnerCallName()).Msg("owner call on remote instance dropped")
		return
	}
	if c.dead {
		return
	}

	switch call := call.(type) {
	case ClientStunned:
		c.Stunned(call.StunTime)
	case ClientStaggered:
		c.Staggered()
	case ClientDepleteEnduranceCanStagger:
		c.DepleteEnduranceCanStagger(call.Endurance)
	case ClientBackStabbed:
		c.BackStabbed()
	case ClientRiposted:
		c.Riposted()
	default:
		c.log.Warn().Str("call", call.OwnerCallName()).Msg("unhandled owner call")
	}
}

// ExecuteMulticast runs a multicast call on any instance.
func (c *Character) ExecuteMulticast(call MulticastCall) {
	switch call := call.(type) {
	case MulticastPlaySound:
		c.sound.PlaySound(call.Sound, call.Location)
	case MulticastKill:
		c.ragdoll()
	case MulticastSetActorRotation:
		// The owning client turned itself already.
		if !c.local {
			c.yaw = NormalizeAxis(call.Yaw)
		}
	case MulticastOpponentDamage:
		if !c.local {
			c.widget.OnDamageChanged(call.Damage)
		}
	default:
		c.log.Warn().Str("call", call.MulticastCallName()).Msg("unhandled multicast")
	}
}

// callServer runs call on the authority: directly when this instance is the
// authority, otherwise through the transport.
func (c *Character) callServer(call ServerCall) {
	if c.HasAuthority() {
		c.ExecuteServerCall(call)
		return
	}
	c.net.SendServer(c.id, call)
}

// callOwner runs call on the owning node.
func (c *Character) callOwner(call OwnerCall) {
	if c.local {
		c.ExecuteOwnerCall(call)
		return
	}
	if c.HasAuthority() {
		c.net.SendOwner(c.id, call)
	}
}

// multicast runs call here and on every remote instance. Only the
// authority multicasts.
func (c *Character) multicast(call MulticastCall) {
	if !c.HasAuthority() {
		return
	}
	c.ExecuteMulticast(call)
	c.net.SendMulticast(c.id, call)
}
