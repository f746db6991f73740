package action

import (
	"encoding/json"
	"fmt"
	"sort"
)

// decodeFunc rebuilds a typed action from its JSON payload.
type decodeFunc func(payload json.RawMessage) (Action, error)

// Registry maps action types to decoders for log replay.
type Registry struct {
	decoders map[Type]decodeFunc
}

// register adds the decoder for A, keyed by A's zero value Type().
func register[A Action](r *Registry) {
	var zero A
	r.decoders[zero.Type()] = func(payload json.RawMessage) (Action, error) {
		var a A
		if len(payload) > 0 && string(payload) != "null" {
			if err := json.Unmarshal(payload, &a); err != nil {
				return nil, fmt.Errorf("decode %s: %w", zero.Type(), err)
			}
		}
		return a, nil
	}
}

// NewRegistry returns a registry holding every action in the catalog.
func NewRegistry() *Registry {
	r := &Registry{decoders: make(map[Type]decodeFunc)}

	register[AppInit](r)
	register[AppLoadingStart](r)
	register[AppLoadingStop](r)
	register[RouterNavigated](r)
	register[CounterIncrement](r)
	register[CounterDecrement](r)
	register[CounterReset](r)
	register[ThemeSet](r)
	register[ThemeLoaded](r)

	register[AuthInit](r)
	register[AuthUnauthenticated](r)
	register[AuthLogin](r)
	register[AuthCallback](r)
	register[AuthCallbackFailure](r)
	register[AuthTokenSuccess](r)
	register[AuthTokenFailure](r)
	register[AuthProfileSuccess](r)
	register[AuthProfileFailure](r)
	register[AuthLoginSuccess](r)
	register[AuthRefreshProfile](r)
	register[AuthLogout](r)
	register[AuthLogoutComplete](r)

	register[UsersLoad](r)
	register[UsersLoadSuccess](r)
	register[UsersLoadFailure](r)
	register[UsersLoadCached](r)
	register[UserLoad](r)
	register[UserLoadSuccess](r)
	register[UserLoadFailure](r)
	register[UserCreate](r)
	register[UserCreateSuccess](r)
	register[UserCreateFailure](r)
	register[UserUpdate](r)
	register[UserUpdateSuccess](r)
	register[UserUpdateFailure](r)
	register[UserDelete](r)
	register[UserDeleteSuccess](r)
	register[UserDeleteFailure](r)
	register[UserSelect](r)
	register[UsersSetFilters](r)
	register[UsersClearFilters](r)

	register[RequestsLoad](r)
	register[RequestsLoadSuccess](r)
	register[RequestsLoadFailure](r)
	register[RequestLoad](r)
	register[RequestLoadSuccess](r)
	register[RequestLoadFailure](r)
	register[RequestCreate](r)
	register[RequestCreateSuccess](r)
	register[RequestCreateFailure](r)
	register[RequestUpdate](r)
	register[RequestUpdateSuccess](r)
	register[RequestUpdateFailure](r)
	register[RequestDelete](r)
	register[RequestDeleteSuccess](r)
	register[RequestDeleteFailure](r)
	register[RequestSelect](r)
	register[RequestsSetFilters](r)
	register[RequestsClearFilters](r)

	return r
}

// Decode rebuilds the action sealed in env.
func (r *Registry) Decode(env Envelope) (Action, error) {
	dec, ok := r.decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown action type %q", env.Type)
	}
	return dec(env.Payload)
}

// DecodePayload decodes a bare type and JSON payload, as written in scenario files.
func (r *Registry) DecodePayload(t Type, payload json.RawMessage) (Action, error) {
	return r.Decode(Envelope{Type: t, Payload: payload})
}

// Known reports whether t is in the catalog.
func (r *Registry) Known(t Type) bool {
	_, ok := r.decoders[t]
	return ok
}

// Types returns every registered type, sorted.
func (r *Registry) Types() []Type {
	out := make([]Type, 0, len(r.decoders))
	for t := range r.decoders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
