package state

import (
	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

// AuthPhase is the position in the auth state machine:
//
//	unauthenticated -> checking -> (authenticated | unauthenticated)
//	authenticated   -> logging-out -> unauthenticated
//	authenticated   -> checking -> authenticated   (profile refresh)
type AuthPhase string

const (
	PhaseUnauthenticated AuthPhase = "unauthenticated"
	PhaseChecking        AuthPhase = "checking"
	PhaseAuthenticated   AuthPhase = "authenticated"
	PhaseLoggingOut      AuthPhase = "logging-out"
)

// AuthState is the session as seen by the rest of the app.
//
// While Phase is checking, Token and User may hold values staged by the
// login pipeline. IsAuthenticated only turns true on "[Auth] Login Success",
// after both stages have landed, and any failure resets to the baseline.
type AuthState struct {
	Phase           AuthPhase    `json:"phase"`
	IsAuthenticated bool         `json:"is_authenticated"`
	User            *model.User  `json:"user"`
	Token           *model.Token `json:"token"`
	OrganizationID  string       `json:"organization_id,omitempty"`
	EnterpriseSSO   bool         `json:"is_enterprise_sso_enabled"`
	ReturnTo        string       `json:"return_to,omitempty"`
	Error           string       `json:"error,omitempty"`
}

// baseline is the logged-out session, optionally carrying why.
func baseline(errMsg string) AuthState {
	return AuthState{Phase: PhaseUnauthenticated, Error: errMsg}
}

func reduceAuth(s AuthState, a action.Action) AuthState {
	switch a := a.(type) {
	case action.AuthLogin:
		s.Phase = PhaseChecking
		s.Error = ""
		s.ReturnTo = a.ReturnTo
		return s

	case action.AuthInit, action.AuthCallback, action.AuthRefreshProfile:
		s.Phase = PhaseChecking
		s.Error = ""
		return s

	case action.AuthUnauthenticated:
		return baseline("")

	case action.AuthTokenSuccess:
		if s.Phase != PhaseChecking {
			return s
		}
		tok := a.Token
		s.Token = &tok
		if a.ReturnTo != "" {
			s.ReturnTo = a.ReturnTo
		}
		return s

	case action.AuthProfileSuccess:
		if s.Phase != PhaseChecking {
			return s
		}
		u := a.User
		s.User = &u
		s.OrganizationID = a.OrganizationID
		s.EnterpriseSSO = a.EnterpriseSSO
		return s

	case action.AuthLoginSuccess:
		if s.Phase != PhaseChecking || s.Token == nil || s.User == nil {
			return s
		}
		s.Phase = PhaseAuthenticated
		s.IsAuthenticated = true
		s.ReturnTo = ""
		s.Error = ""
		return s

	case action.AuthCallbackFailure:
		return baseline(a.Failure.String())
	case action.AuthTokenFailure:
		return baseline(a.Failure.String())
	case action.AuthProfileFailure:
		return baseline(a.Failure.String())

	case action.AuthLogout:
		next := baseline(s.Error)
		if a.Reason != "" {
			next.Error = a.Reason
		}
		next.Phase = PhaseLoggingOut
		return next

	case action.AuthLogoutComplete:
		return baseline(s.Error)
	}
	return s
}
