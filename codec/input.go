package codec

import (
	"fmt"

	"coup-lite/coup"
	"coup-lite/replay"
)

// IsInput reports whether t carries a game decision.
func IsInput(t MsgType) bool {
	return t == TypeAction || t == TypeReaction || t == TypeSelection
}

// ToInput turns an action, reaction or selection envelope into an engine
// input plus the reqId it answers. The player field is left for the host.
func ToInput(env Envelope) (string, replay.Input, error) {
	switch env.Type {
	case TypeAction:
		var p ActionPayload
		if err := env.Into(&p); err != nil {
			return "", replay.Input{}, err
		}
		return p.ReqID, replay.Input{
			Kind:   replay.InputAction,
			Action: coup.ActionTypeDictionary[p.Action],
			Target: p.Target,
		}, nil
	case TypeReaction:
		var p ReactionPayload
		if err := env.Into(&p); err != nil {
			return "", replay.Input{}, err
		}
		in := replay.Input{Kind: replay.InputReaction, Reaction: p.Kind.String()}
		if p.Kind == coup.ReactionBlock {
			in.Role = p.Role.String()
		}
		return p.ReqID, in, nil
	case TypeSelection:
		var p SelectionPayload
		if err := env.Into(&p); err != nil {
			return "", replay.Input{}, err
		}
		if p.Keep != nil {
			return p.ReqID, replay.Input{Kind: replay.InputKeep, Keep: p.Keep}, nil
		}
		return p.ReqID, replay.Input{Kind: replay.InputLose, Card: p.Card}, nil
	default:
		return "", replay.Input{}, fmt.Errorf("%w: %s is not an input", ErrBadEnvelope, env.Type)
	}
}
