package protocol

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samalo0/Ceremony/internal/combat"
)

type (
	serverDecoder    func(json.RawMessage) (combat.ServerCall, error)
	ownerDecoder     func(json.RawMessage) (combat.OwnerCall, error)
	multicastDecoder func(json.RawMessage) (combat.MulticastCall, error)
)

func server[T combat.ServerCall]() (string, serverDecoder) {
	var zero T
	return zero.ServerCallName(), func(raw json.RawMessage) (combat.ServerCall, error) {
		var call T
		if err := decodeRaw(raw, &call); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func owner[T combat.OwnerCall]() (string, ownerDecoder) {
	var zero T
	return zero.OwnerCallName(), func(raw json.RawMessage) (combat.OwnerCall, error) {
		var call T
		if err := decodeRaw(raw, &call); err != nil {
			return nil, err
		}
		return call, nil
	}
}

func multicast[T combat.MulticastCall]() (string, multicastDecoder) {
	var zero T
	return zero.MulticastCallName(), func(raw json.RawMessage) (combat.MulticastCall, error) {
		var call T
		if err := decodeRaw(raw, &call); err != nil {
			return nil, err
		}
		return call, nil
	}
}

var (
	serverCalls    = map[string]serverDecoder{}
	ownerCalls     = map[string]ownerDecoder{}
	multicastCalls = map[string]multicastDecoder{}
)

func init() {
	for _, reg := range []func() (string, serverDecoder){
		server[combat.ServerSetBlocking],
		server[combat.ServerSetParryCanStagger],
		server[combat.ServerSetInvincible],
		server[combat.ServerSetLockedOn],
		server[combat.ServerSetRunning],
		server[combat.ServerSetStaggered],
		server[combat.ServerPlayCosmeticMontage],
		server[combat.ServerVerifyOverlapForDamage],
		server[combat.ServerVerifyBackStab],
		server[combat.ServerVerifyRiposte],
		server[combat.ServerSpawnProjectile],
		server[combat.ServerSetActorRotation],
		server[combat.ServerPlaySound],
		server[combat.ServerMove],
	} {
		name, dec := reg()
		serverCalls[name] = dec
	}
	for _, reg := range []func() (string, ownerDecoder){
		owner[combat.ClientStunned],
		owner[combat.ClientStaggered],
		owner[combat.ClientDepleteEnduranceCanStagger],
		owner[combat.ClientBackStabbed],
		owner[combat.ClientRiposted],
	} {
		name, dec := reg()
		ownerCalls[name] = dec
	}
	for _, reg := range []func() (string, multicastDecoder){
		multicast[combat.MulticastPlaySound],
		multicast[combat.MulticastKill],
		multicast[combat.MulticastSetActorRotation],
		multicast[combat.MulticastOpponentDamage],
	} {
		name, dec := reg()
		multicastCalls[name] = dec
	}
}

// DecodeServerCall returns the server call carried by env.
func DecodeServerCall(env Envelope) (combat.ServerCall, error) {
	dec, ok := serverCalls[env.Call]
	if !ok || env.Type != TypeServerCall {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownCall, env.Type, env.Call)
	}
	return dec(env.Payload)
}

// DecodeOwnerCall returns the owner call carried by env.
func DecodeOwnerCall(env Envelope) (combat.OwnerCall, error) {
	dec, ok := ownerCalls[env.Call]
	if !ok || env.Type != TypeOwnerCall {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownCall, env.Type, env.Call)
	}
	return dec(env.Payload)
}

// DecodeMulticast returns the multicast call carried by env.
func DecodeMulticast(env Envelope) (combat.MulticastCall, error) {
	dec, ok := multicastCalls[env.Call]
	if !ok || env.Type != TypeMulticast {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownCall, env.Type, env.Call)
	}
	return dec(env.Payload)
}

// ServerCallNames lists the registered server calls, sorted.
func ServerCallNames() []string {
	names := make([]string, 0, len(serverCalls))
	for name := range serverCalls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
