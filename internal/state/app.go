package state

import (
	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

// DefaultTheme is the theme of a session with no stored preference.
const DefaultTheme = model.DefaultTheme

// AppLoadingState tracks named background tasks.
type AppLoadingState struct {
	Active map[string]bool `json:"active,omitempty"`
}

// Any reports whether any task is running.
func (s AppLoadingState) Any() bool {
	return len(s.Active) > 0
}

// CounterState backs the counter demo widget.
type CounterState struct {
	Value int `json:"value"`
}

type ThemeState struct {
	Theme model.Theme `json:"theme"`
	// Loaded is set once the stored preference has been read back.
	Loaded bool `json:"loaded"`
}

func reduceAppLoading(s AppLoadingState, a action.Action) AppLoadingState {
	switch a := a.(type) {
	case action.AppLoadingStart:
		if s.Active[a.Key] {
			return s
		}
		next := make(map[string]bool, len(s.Active)+1)
		for k := range s.Active {
			next[k] = true
		}
		next[a.Key] = true
		return AppLoadingState{Active: next}

	case action.AppLoadingStop:
		if !s.Active[a.Key] {
			return s
		}
		if len(s.Active) == 1 {
			return AppLoadingState{}
		}
		next := make(map[string]bool, len(s.Active)-1)
		for k := range s.Active {
			if k != a.Key {
				next[k] = true
			}
		}
		return AppLoadingState{Active: next}
	}
	return s
}

// step treats a zero increment as one.
func step(by int) int {
	if by == 0 {
		return 1
	}
	return by
}

func reduceCounter(s CounterState, a action.Action) CounterState {
	switch a := a.(type) {
	case action.CounterIncrement:
		return CounterState{Value: s.Value + step(a.By)}
	case action.CounterDecrement:
		return CounterState{Value: s.Value - step(a.By)}
	case action.CounterReset:
		return CounterState{}
	}
	return s
}

func reduceTheme(s ThemeState, a action.Action) ThemeState {
	switch a := a.(type) {
	case action.ThemeSet:
		if !a.Theme.Valid() {
			return s
		}
		return ThemeState{Theme: a.Theme, Loaded: s.Loaded}
	case action.ThemeLoaded:
		t := a.Theme
		if !t.Valid() {
			t = DefaultTheme
		}
		return ThemeState{Theme: t, Loaded: true}
	}
	return s
}
