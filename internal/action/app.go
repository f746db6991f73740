package action

import "github.com/roach88/fmdesk/internal/model"

const (
	TypeAppInit          Type = "[App] Init"
	TypeAppLoadingStart  Type = "[App] Loading Start"
	TypeAppLoadingStop   Type = "[App] Loading Stop"
	TypeRouterNavigated  Type = "[Router] Navigated"
	TypeCounterIncrement Type = "[Counter] Increment"
	TypeCounterDecrement Type = "[Counter] Decrement"
	TypeCounterReset     Type = "[Counter] Reset"
	TypeThemeSet         Type = "[Theme] Set"
	TypeThemeLoaded      Type = "[Theme] Loaded"
)

// AppInit boots the session: restores the theme and starts the auth check.
type AppInit struct{}

// AppLoadingStart marks a named background task as running.
type AppLoadingStart struct {
	Key string `json:"key"`
}

type AppLoadingStop struct {
	Key string `json:"key"`
}

// RouterNavigated records a navigation performed by an effect.
type RouterNavigated struct {
	Path string `json:"path"`
}

type CounterIncrement struct {
	By int `json:"by,omitempty"`
}

type CounterDecrement struct {
	By int `json:"by,omitempty"`
}

type CounterReset struct{}

// ThemeSet changes and persists the theme.
type ThemeSet struct {
	Theme model.Theme `json:"theme"`
}

// ThemeLoaded carries the theme read back from persistent storage.
type ThemeLoaded struct {
	Theme model.Theme `json:"theme"`
}

func (AppInit) Type() Type          { return TypeAppInit }
func (AppLoadingStart) Type() Type  { return TypeAppLoadingStart }
func (AppLoadingStop) Type() Type   { return TypeAppLoadingStop }
func (RouterNavigated) Type() Type  { return TypeRouterNavigated }
func (CounterIncrement) Type() Type { return TypeCounterIncrement }
func (CounterDecrement) Type() Type { return TypeCounterDecrement }
func (CounterReset) Type() Type     { return TypeCounterReset }
func (ThemeSet) Type() Type         { return TypeThemeSet }
func (ThemeLoaded) Type() Type      { return TypeThemeLoaded }
