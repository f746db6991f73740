package effects

import (
	"context"
	"log/slog"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/notify"
)

func (h *handlers) registerApp(e *engine.Engine) {
	e.On(action.TypeAppInit, "app.init", h.appInit)
	e.On(action.TypeRouterNavigated, "router.navigate", h.navigate)
	if h.Theme != nil {
		e.On(action.TypeThemeSet, "theme.persist", h.persistTheme)
	}
}

// appInit restores the theme, then starts the session check.
func (h *handlers) appInit(ctx context.Context, t engine.Trigger) []action.Action {
	var out []action.Action
	if h.Theme != nil {
		th, err := h.Theme.Load(ctx)
		if err != nil {
			slog.Warn("theme restore failed", "error", err)
			th = model.DefaultTheme
		}
		out = append(out, action.ThemeLoaded{Theme: th})
	}
	if h.Auth != nil {
		out = append(out, action.AuthInit{})
	}
	return out
}

func (h *handlers) persistTheme(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.ThemeSet)
	if err := h.Theme.Save(ctx, a.Theme); err != nil {
		slog.Warn("theme save failed", "theme", a.Theme, "error", err)
		h.Notifier.Notify(ctx, notify.Toast{Level: notify.LevelWarning, Message: "Theme preference was not saved"})
	}
	return nil
}

func (h *handlers) navigate(ctx context.Context, t engine.Trigger) []action.Action {
	h.Navigator.Navigate(t.Action.(action.RouterNavigated).Path)
	return nil
}
