package game

import (
	"errors"
	"fmt"

	"github.com/samalo0/Ceremony/internal/combat"
	"github.com/samalo0/Ceremony/internal/protocol"
)

// ErrUnexpectedMessage is returned for envelopes no engine command maps to.
var ErrUnexpectedMessage = errors.New("unexpected message")

// EncodeOutgoing builds the envelope one session receives for out. toOwner
// is true when the session controls out's character. ok is false when
// nothing in out is visible to that session.
func EncodeOutgoing(out Outgoing, toOwner bool) (env protocol.Envelope, ok bool, err error) {
	switch out.Kind {
	case OutServerCall:
		env, err = protocol.ServerCall(out.Character, out.Server)
	case OutOwnerCall:
		env, err = protocol.OwnerCall(out.Character, out.Owner)
	case OutMulticast:
		env, err = protocol.Multicast(out.Character, out.Multicast)
	case OutState:
		d := out.Delta
		d.Mask = d.Mask.Visible(toOwner)
		if d.Mask == 0 {
			return env, false, nil
		}
		env, err = protocol.State(d)
	case OutSpawn:
		env, err = protocol.New(protocol.TypeSpawn, out.Character, "", out.Spawn)
	case OutDespawn:
		env, err = protocol.New(protocol.TypeDespawn, out.Character, "", nil)
	default:
		return env, false, fmt.Errorf("%w: outgoing %s", ErrUnexpectedMessage, out.Kind)
	}
	if err != nil {
		return env, false, err
	}
	return env, true, nil
}

// DecodeCommand turns a received envelope into the command to submit.
func DecodeCommand(env protocol.Envelope) (Command, error) {
	switch env.Type {
	case protocol.TypeServerCall:
		call, err := protocol.DecodeServerCall(env)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandServerCall, Character: env.Character, Server: call}, nil
	case protocol.TypeWelcome:
		w, err := protocol.Decode[protocol.Welcome](env)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandWelcome, Character: w.Character}, nil
	case protocol.TypeSpawn:
		s, err := protocol.Decode[protocol.Spawn](env)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandSpawn, Character: s.ID, Spawn: s}, nil
	case protocol.TypeDespawn:
		return Command{Kind: CommandDespawn, Character: env.Character}, nil
	case protocol.TypeOwnerCall:
		call, err := protocol.DecodeOwnerCall(env)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandOwnerCall, Character: env.Character, Owner: call}, nil
	case protocol.TypeMulticast:
		call, err := protocol.DecodeMulticast(env)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandMulticast, Character: env.Character, Multicast: call}, nil
	case protocol.TypeState:
		d, err := protocol.Decode[combat.StateDelta](env)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandState, Character: d.ID, Delta: d}, nil
	case protocol.TypeError:
		e, _ := protocol.Decode[protocol.Error](env)
		return Command{}, fmt.Errorf("%w: peer error: %s", ErrUnexpectedMessage, e.Message)
	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnexpectedMessage, env.Type)
	}
}
