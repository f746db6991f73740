// Package state holds the fmdesk application state and its reducers.
//
// State is a value. Reduce never mutates its input: feature slices are copied,
// maps are copied on write and collections are immutable. A slice that an
// action does not touch keeps its identity, so memoized selectors downstream
// can compare inputs by pointer.
//
// INVARIANTS:
//   - Reduce is total: unknown actions return the input unchanged
//   - Reduce never reads the clock, the network or any global
//   - Failure actions record an error and clear loading; they never drop data
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fmdesk/internal/action"
)

// State is the root of the fmdesk state tree.
type State struct {
	Auth       AuthState       `json:"auth"`
	Users      UsersState      `json:"users"`
	Requests   RequestsState   `json:"requests"`
	AppLoading AppLoadingState `json:"app_loading"`
	Counter    CounterState    `json:"counter"`
	Theme      ThemeState      `json:"theme"`
	Route      string          `json:"route"`
}

// Initial returns the state of a fresh session.
func Initial() State {
	return State{
		Auth:     AuthState{Phase: PhaseUnauthenticated},
		Users:    UsersState{Entities: NewUserCollection()},
		Requests: RequestsState{Entities: NewRequestCollection()},
		Theme:    ThemeState{Theme: DefaultTheme},
	}
}

// Reduce applies a to s and returns the next state.
func Reduce(s State, a action.Action) State {
	if a == nil {
		return s
	}
	s.Auth = reduceAuth(s.Auth, a)
	s.Users = reduceUsers(s.Users, a)
	s.Requests = reduceRequests(s.Requests, a)
	s.AppLoading = reduceAppLoading(s.AppLoading, a)
	s.Counter = reduceCounter(s.Counter, a)
	s.Theme = reduceTheme(s.Theme, a)
	if nav, ok := a.(action.RouterNavigated); ok {
		s.Route = nav.Path
	}
	return s
}

// Replay folds actions over the initial state.
func Replay(actions []action.Action) State {
	s := Initial()
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

// Fingerprint returns a stable hash of s.
//
// The state is encoded as JSON (struct fields in declaration order, map keys
// sorted, collections as ordered arrays) and NFC-normalized so that two
// spellings of the same unicode text hash identically.
func Fingerprint(s State) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(norm.NFC.Bytes(data))
	return hex.EncodeToString(sum[:]), nil
}
