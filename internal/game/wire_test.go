package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/protocol"
)

func TestEncodeOutgoingNarrowsState(t *testing.T) {
	out := Outgoing{
		Kind:      OutState,
		Character: 3,
		Delta: combat.StateDelta{
			ID:    3,
			Mask:  combat.FieldHealth | combat.FieldCosmetic,
			State: combat.ReplicatedState{Health: 40},
		},
	}

	env, ok, err := EncodeOutgoing(out, false)
	require.NoError(t, err)
	require.True(t, ok)
	cmd, err := DecodeCommand(env)
	require.NoError(t, err)
	assert.Equal(t, CommandState, cmd.Kind)
	assert.Equal(t, combat.FieldHealth|combat.FieldCosmetic, cmd.Delta.Mask)

	// The owner drives its own cosmetic montage.
	env, ok, err = EncodeOutgoing(out, true)
	require.NoError(t, err)
	require.True(t, ok)
	cmd, err = DecodeCommand(env)
	require.NoError(t, err)
	assert.Equal(t, combat.FieldHealth, cmd.Delta.Mask)
	assert.Equal(t, 40.0, cmd.Delta.State.Health)

	out.Delta.Mask = combat.FieldCosmetic
	_, ok, err = EncodeOutgoing(out, true)
	require.NoError(t, err)
	assert.False(t, ok, "nothing left for the owner")
}

func TestWireCommandKinds(t *testing.T) {
	tests := []struct {
		name string
		out  Outgoing
		want CommandKind
	}{
		{"server call", Outgoing{Kind: OutServerCall, Character: 2, Server: combat.ServerSetBlocking{Blocking: true}}, CommandServerCall},
		{"owner call", Outgoing{Kind: OutOwnerCall, Character: 2, Owner: combat.ClientStunned{StunTime: 0.5}}, CommandOwnerCall},
		{"multicast", Outgoing{Kind: OutMulticast, Character: 2, Multicast: combat.MulticastKill{}}, CommandMulticast},
		{"spawn", Outgoing{Kind: OutSpawn, Character: 2, Spawn: protocol.Spawn{ID: 2, Name: "b", PlayerNumber: 2}}, CommandSpawn},
		{"despawn", Outgoing{Kind: OutDespawn, Character: 2}, CommandDespawn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, ok := throughWire(tt.out, false)
			require.True(t, ok)
			assert.Equal(t, tt.want, cmd.Kind)
			assert.Equal(t, combat.CharacterID(2), cmd.Character)
		})
	}

	cmd, ok := throughWire(Outgoing{Kind: OutOwnerCall, Character: 2, Owner: combat.ClientStunned{StunTime: 0.5}}, true)
	require.True(t, ok)
	assert.Equal(t, combat.ClientStunned{StunTime: 0.5}, cmd.Owner)

	cmd, ok = throughWire(Outgoing{Kind: OutSpawn, Character: 2, Spawn: protocol.Spawn{ID: 2, Name: "b"}}, false)
	require.True(t, ok)
	assert.Equal(t, "b", cmd.Spawn.Name)
}

func TestDecodeCommandWelcomeAndErrors(t *testing.T) {
	env, err := protocol.New(protocol.TypeWelcome, 0, "", protocol.Welcome{Character: 7, TickRate: 60})
	require.NoError(t, err)
	cmd, err := DecodeCommand(env)
	require.NoError(t, err)
	assert.Equal(t, CommandWelcome, cmd.Kind)
	assert.Equal(t, combat.CharacterID(7), cmd.Character)

	env, err = protocol.New(protocol.TypeError, 0, "", protocol.Error{Message: "arena full"})
	require.NoError(t, err)
	_, err = DecodeCommand(env)
	assert.ErrorIs(t, err, ErrUnexpectedMessage)
	assert.Contains(t, err.Error(), "arena full")

	_, err = DecodeCommand(protocol.Envelope{Type: protocol.TypeHello})
	assert.ErrorIs(t, err, ErrUnexpectedMessage)

	_, err = DecodeCommand(protocol.Envelope{Type: protocol.TypeServerCall, Call: "fly"})
	assert.ErrorIs(t, err, protocol.ErrUnknownCall)

	_, _, err = EncodeOutgoing(Outgoing{Kind: OutKind(99)}, false)
	assert.ErrorIs(t, err, ErrUnexpectedMessage)
}

func TestWireLoopbackMeleeHit(t *testing.T) {
	s := newSessionOn(t, NewWireLoopback(), testOptions(combat.DedicatedServer), "a", "b")
	a, b := s.ids[0], s.ids[1]

	proxy := s.client(a).Character(b)
	require.NotNil(t, proxy)
	assert.Equal(t, "shield", proxy.Equipment(combat.LeftHand).Name())

	s.face(a, combat.Vec3{}, 0)
	s.face(b, combat.Vec3{X: 100}, 180)
	s.pump(3)

	s.client(a).Control(0, func(c *combat.Character) { c.HandPress1(combat.RightHand) })
	require.True(t, s.pumpUntil(90, func() bool {
		return s.client(b).LocalCharacter().Health() < 100
	}))
	assert.Equal(t, 90.0, s.server.Character(b).Health())

	s.pump(2)
	assert.Equal(t, 90.0, s.client(a).Character(b).Health())
}
