package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/combat"
)

func roundTrip(t *testing.T) func(Envelope, error) Envelope {
	return func(env Envelope, err error) Envelope {
		t.Helper()
		return roundTripEnv(t, env, err)
	}
}

func roundTripEnv(t *testing.T, env Envelope, err error) Envelope {
	t.Helper()
	require.NoError(t, err)
	data, err := Marshal(env)
	require.NoError(t, err)
	out, err := Unmarshal(data)
	require.NoError(t, err)
	return out
}

func TestServerCallCarriesEmbeddedTransaction(t *testing.T) {
	tx := combat.NewDamageTransaction(7, combat.Vec3{X: 70.4, Y: -3.6}, combat.Pack(10, 40, 0.5), combat.DamageSlash)
	env := roundTrip(t)(ServerCall(3, combat.ServerVerifyOverlapForDamage{DamageTransaction: tx}))

	assert.Equal(t, TypeServerCall, env.Type)
	assert.Equal(t, combat.CharacterID(3), env.Character)
	assert.Equal(t, "verify_overlap_for_damage", env.Call)

	call, err := DecodeServerCall(env)
	require.NoError(t, err)
	got, ok := call.(combat.ServerVerifyOverlapForDamage)
	require.True(t, ok)
	assert.Equal(t, tx, got.DamageTransaction)
	assert.Equal(t, combat.Vec3{X: 70, Y: -4}, got.ImpactPoint)
}

func TestEmptyPayloadDecodesToZeroCall(t *testing.T) {
	env := roundTrip(t)(Multicast(9, combat.MulticastKill{}))
	call, err := DecodeMulticast(env)
	require.NoError(t, err)
	assert.Equal(t, combat.MulticastKill{}, call)

	env = Envelope{Type: TypeOwnerCall, Character: 9, Call: "staggered"}
	owner, err := DecodeOwnerCall(env)
	require.NoError(t, err)
	assert.Equal(t, combat.ClientStaggered{}, owner)
}

func TestOwnerCallRoundTrip(t *testing.T) {
	env := roundTrip(t)(OwnerCall(2, combat.ClientDepleteEnduranceCanStagger{Endurance: 90}))
	call, err := DecodeOwnerCall(env)
	require.NoError(t, err)
	assert.Equal(t, combat.ClientDepleteEnduranceCanStagger{Endurance: 90}, call)
}

func TestDecodeRejectsUnknownAndMismatchedCalls(t *testing.T) {
	_, err := DecodeServerCall(Envelope{Type: TypeServerCall, Call: "teleport"})
	assert.True(t, errors.Is(err, ErrUnknownCall))

	// A multicast name arriving as a server call is refused.
	_, err = DecodeServerCall(Envelope{Type: TypeMulticast, Call: "play_sound"})
	assert.True(t, errors.Is(err, ErrUnknownCall))

	_, err = DecodeServerCall(Envelope{Type: TypeServerCall, Call: "move", Payload: []byte(`{"location":"north"}`)})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.True(t, errors.Is(err, ErrMalformed))

	_, err = Unmarshal([]byte(`{"character":1}`))
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestStateAndSpawnPayloads(t *testing.T) {
	delta := combat.StateDelta{
		ID:    4,
		Mask:  combat.FieldHealth | combat.FieldCosmetic,
		State: combat.ReplicatedState{Health: 55, Cosmetic: combat.CosmeticMontage{Name: "kick", Position: 0.25, Serial: 2}},
	}
	env := roundTrip(t)(State(delta))
	assert.Equal(t, combat.CharacterID(4), env.Character)
	got, err := Decode[combat.StateDelta](env)
	require.NoError(t, err)
	assert.Equal(t, delta, got)

	spawn := Spawn{ID: 4, Name: "duelist", PlayerNumber: 1, Location: combat.Vec3{X: 600}, Yaw: 180}
	env = roundTrip(t)(New(TypeSpawn, spawn.ID, "", spawn))
	back, err := Decode[Spawn](env)
	require.NoError(t, err)
	assert.Equal(t, spawn, back)
}

func TestEveryServerCallIsRegistered(t *testing.T) {
	assert.Equal(t, []string{
		"move",
		"play_cosmetic_montage",
		"play_sound",
		"set_actor_rotation",
		"set_blocking",
		"set_invincible",
		"set_locked_on",
		"set_parry_can_stagger",
		"set_running",
		"set_staggered",
		"spawn_projectile",
		"verify_backstab",
		"verify_overlap_for_damage",
		"verify_riposte",
	}, ServerCallNames())
}
