package selector

import (
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/state"
)

func IsAuthenticated(s state.State) bool { return s.Auth.IsAuthenticated }

// CurrentUser returns the signed-in user, nil when logged out.
func CurrentUser(s state.State) *model.User {
	if !s.Auth.IsAuthenticated {
		return nil
	}
	return s.Auth.User
}

// IsAdmin reports whether the signed-in user holds the admin role.
func IsAdmin(s state.State) bool {
	u := CurrentUser(s)
	return u != nil && u.IsAdmin()
}

// Token returns the access token of an established session.
func Token(s state.State) *model.Token {
	if !s.Auth.IsAuthenticated {
		return nil
	}
	return s.Auth.Token
}

func AuthError(s state.State) string { return s.Auth.Error }

// AnyLoading reports whether any feature or background task is busy.
func AnyLoading(s state.State) bool {
	return s.AppLoading.Any() || s.Users.Loading || s.Requests.Loading || s.Auth.Phase == state.PhaseChecking
}
