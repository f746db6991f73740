// Package theme persists the UI theme preference.
package theme

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/store"
)

// Preferences is the key/value store the theme lives in.
// *store.Store implements it.
type Preferences interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Service reads and writes the theme under store.KeyTheme.
type Service struct {
	prefs Preferences
}

func NewService(prefs Preferences) *Service {
	return &Service{prefs: prefs}
}

// Load returns the saved theme. A missing or unrecognised value yields
// model.DefaultTheme; only storage failures are errors.
func (s *Service) Load(ctx context.Context) (model.Theme, error) {
	v, ok, err := s.prefs.GetPreference(ctx, store.KeyTheme)
	if err != nil {
		return model.DefaultTheme, fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		return model.DefaultTheme, nil
	}
	t := model.Theme(v)
	if !t.Valid() {
		slog.Warn("ignoring unknown saved theme", "value", v, "default", model.DefaultTheme)
		return model.DefaultTheme, nil
	}
	return t, nil
}

// Save stores t. Invalid themes are rejected.
func (s *Service) Save(ctx context.Context, t model.Theme) error {
	if !t.Valid() {
		return fmt.Errorf("save theme: unknown theme %q", t)
	}
	if err := s.prefs.SetPreference(ctx, store.KeyTheme, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
