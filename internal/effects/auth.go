package effects

import (
	"context"
	"log/slog"
	"strings"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/api"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/state"
)

// Auth pipeline:
//
//	[Auth] Init          -> status check -> Unauthenticated | Token Success | Token Failure
//	[Auth] Login         -> provider redirect (callback arrives later)
//	[Auth] Callback      -> code exchange -> Token Success | Callback Failure
//	[Auth] Refresh Profile -> token stage -> Token Success | Token Failure
//	[Auth] Token Success -> profile stage -> Profile Success | Profile Failure
//	[Auth] Profile Success -> Login Success + navigate to return path
//	any failure          -> Logout -> provider logout -> Logout Complete -> navigate home
func (h *handlers) registerAuth(e *engine.Engine) {
	e.On(action.TypeAuthInit, "auth.init", h.authInit)
	e.On(action.TypeAuthLogin, "auth.login", h.authLogin)
	e.On(action.TypeAuthCallback, "auth.callback", h.authCallback)
	e.On(action.TypeAuthTokenSuccess, "auth.profile", h.authProfile)
	e.On(action.TypeAuthRefreshProfile, "auth.token_refresh", h.authRefresh)
	e.On(action.TypeAuthProfileSuccess, "auth.complete", h.authComplete)
	e.On(action.TypeAuthTokenFailure, "auth.failed", h.authFailed)
	e.On(action.TypeAuthProfileFailure, "auth.failed", h.authFailed)
	e.On(action.TypeAuthCallbackFailure, "auth.failed", h.authFailed)
	e.On(action.TypeAuthLogout, "auth.logout", h.authLogout)
	e.On(action.TypeAuthLogoutComplete, "auth.home", h.authHome)
}

func authFailure(err error) action.Failure {
	return failureOf(err, action.FailureAuth)
}

func (h *handlers) authInit(ctx context.Context, t engine.Trigger) []action.Action {
	if !identity.CheckAuthenticated(ctx, h.Auth, h.AuthTimeout) {
		return []action.Action{action.AuthUnauthenticated{}}
	}
	return h.tokenStage(ctx)
}

// authRefresh fetches the token again before the profile so a silent
// refresh by the provider lands in state.
func (h *handlers) authRefresh(ctx context.Context, t engine.Trigger) []action.Action {
	return h.tokenStage(ctx)
}

func (h *handlers) tokenStage(ctx context.Context) []action.Action {
	tok, err := h.Auth.Token(ctx)
	if err != nil {
		return []action.Action{action.AuthTokenFailure{Failure: authFailure(err)}}
	}
	return []action.Action{action.AuthTokenSuccess{Token: tok}}
}

func (h *handlers) authLogin(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.AuthLogin)
	url, err := h.Auth.LoginURL(ctx, a.ReturnTo)
	if err != nil {
		return []action.Action{action.AuthCallbackFailure{Failure: authFailure(err)}}
	}
	h.Navigator.Redirect(url)
	return nil
}

func (h *handlers) authCallback(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.AuthCallback)
	tok, returnTo, err := h.Auth.HandleCallback(ctx, a.Code, a.State)
	if err != nil {
		return []action.Action{action.AuthCallbackFailure{Failure: authFailure(err)}}
	}
	return []action.Action{action.AuthTokenSuccess{Token: tok, ReturnTo: returnTo}}
}

// authProfile merges the provider profile with the backend's record of the
// signed-in user.
func (h *handlers) authProfile(ctx context.Context, t engine.Trigger) []action.Action {
	if t.State.Auth.Phase != state.PhaseChecking {
		return nil
	}
	p, err := h.Auth.Profile(ctx)
	if err != nil {
		return []action.Action{action.AuthProfileFailure{Failure: authFailure(err)}}
	}

	u := profileUser(p)
	if h.Users != nil {
		me, err := h.Users.CurrentUser(ctx)
		switch {
		case err == nil:
			u = mergeProfile(me, p)
		case api.IsNotFound(err):
			slog.Warn("signed-in user has no backend record", "sub", p.Subject)
		default:
			return []action.Action{action.AuthProfileFailure{Failure: authFailure(err)}}
		}
	}
	return []action.Action{action.AuthProfileSuccess{
		User:           u,
		OrganizationID: p.OrganizationID,
		EnterpriseSSO:  p.EnterpriseSSO,
	}}
}

// profileUser builds a user from the provider profile alone.
func profileUser(p model.Profile) model.User {
	first, last, _ := strings.Cut(strings.TrimSpace(p.Name), " ")
	return model.User{
		ID:        p.Subject,
		Email:     p.Email,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Role:      model.DefaultRole,
		Status:    model.UserStatusActive,
		Avatar:    p.Picture,
		IsSSO:     p.EnterpriseSSO,
	}
}

// mergeProfile fills gaps in the backend user from the provider profile.
func mergeProfile(u model.User, p model.Profile) model.User {
	fallback := profileUser(p)
	if u.ID == "" {
		u.ID = fallback.ID
	}
	if u.Email == "" {
		u.Email = fallback.Email
	}
	if u.FirstName == "" && u.LastName == "" {
		u.FirstName, u.LastName = fallback.FirstName, fallback.LastName
	}
	if u.Avatar == "" {
		u.Avatar = fallback.Avatar
	}
	u.IsSSO = u.IsSSO || p.EnterpriseSSO
	return u
}

// authComplete closes the pipeline once token and user are staged and sends
// the user back where the login started. A profile refresh on a page other
// than home stays put.
func (h *handlers) authComplete(ctx context.Context, t engine.Trigger) []action.Action {
	auth := t.State.Auth
	if auth.Phase != state.PhaseChecking || auth.Token == nil || auth.User == nil {
		return nil
	}
	out := []action.Action{action.AuthLoginSuccess{}}
	switch {
	case strings.HasPrefix(auth.ReturnTo, "/"):
		out = append(out, action.RouterNavigated{Path: auth.ReturnTo})
	case t.State.Route == "" || t.State.Route == RouteHome:
		out = append(out, action.RouterNavigated{Path: RouteDashboard})
	}
	return out
}

func (h *handlers) authFailed(ctx context.Context, t engine.Trigger) []action.Action {
	reason := t.State.Auth.Error
	if reason == "" {
		reason = "authentication failed"
	}
	slog.Warn("auth pipeline failed", "trigger", t.Action.Type(), "reason", reason)
	return []action.Action{action.AuthLogout{Reason: reason}}
}

func (h *handlers) authLogout(ctx context.Context, t engine.Trigger) []action.Action {
	url, err := h.Auth.Logout(ctx)
	if err != nil {
		slog.Warn("provider logout failed", "error", err)
	} else if url != "" {
		h.Navigator.Redirect(url)
	}
	return []action.Action{action.AuthLogoutComplete{}}
}

func (h *handlers) authHome(ctx context.Context, t engine.Trigger) []action.Action {
	return []action.Action{action.RouterNavigated{Path: RouteHome}}
}
