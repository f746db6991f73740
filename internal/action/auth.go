package action

import "github.com/roach88/fmdesk/internal/model"

const (
	TypeAuthInit            Type = "[Auth] Init"
	TypeAuthUnauthenticated Type = "[Auth] Unauthenticated"
	TypeAuthLogin           Type = "[Auth] Login"
	TypeAuthCallback        Type = "[Auth] Callback"
	TypeAuthCallbackFailure Type = "[Auth] Callback Failure"
	TypeAuthTokenSuccess    Type = "[Auth] Token Success"
	TypeAuthTokenFailure    Type = "[Auth] Token Failure"
	TypeAuthProfileSuccess  Type = "[Auth] Profile Success"
	TypeAuthProfileFailure  Type = "[Auth] Profile Failure"
	TypeAuthLoginSuccess    Type = "[Auth] Login Success"
	TypeAuthRefreshProfile  Type = "[Auth] Refresh Profile"
	TypeAuthLogout          Type = "[Auth] Logout"
	TypeAuthLogoutComplete  Type = "[Auth] Logout Complete"
)

// AuthInit starts the session check: status -> token -> profile.
type AuthInit struct{}

// AuthUnauthenticated reports that the provider holds no session.
type AuthUnauthenticated struct{}

// AuthLogin asks the provider for a login redirect.
type AuthLogin struct {
	ReturnTo string `json:"return_to,omitempty"`
}

// AuthCallback carries the provider's redirect back to us.
type AuthCallback struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

type AuthCallbackFailure struct {
	Failure Failure `json:"failure"`
}

// AuthTokenSuccess stages the access token. ReturnTo carries the page the
// login started from when the token came from a callback exchange.
type AuthTokenSuccess struct {
	Token    model.Token `json:"token"`
	ReturnTo string      `json:"return_to,omitempty"`
}

type AuthTokenFailure struct {
	Failure Failure `json:"failure"`
}

// AuthProfileSuccess carries the merged provider + API profile.
type AuthProfileSuccess struct {
	User           model.User `json:"user"`
	OrganizationID string     `json:"organization_id,omitempty"`
	EnterpriseSSO  bool       `json:"enterprise_sso"`
}

type AuthProfileFailure struct {
	Failure Failure `json:"failure"`
}

// AuthLoginSuccess closes the login pipeline.
type AuthLoginSuccess struct{}

// AuthRefreshProfile re-runs the profile stage for a live session.
type AuthRefreshProfile struct{}

// AuthLogout ends the session. Reason is empty for a user-initiated logout.
type AuthLogout struct {
	Reason string `json:"reason,omitempty"`
}

type AuthLogoutComplete struct{}

func (AuthInit) Type() Type            { return TypeAuthInit }
func (AuthUnauthenticated) Type() Type { return TypeAuthUnauthenticated }
func (AuthLogin) Type() Type           { return TypeAuthLogin }
func (AuthCallback) Type() Type        { return TypeAuthCallback }
func (AuthCallbackFailure) Type() Type { return TypeAuthCallbackFailure }
func (AuthTokenSuccess) Type() Type    { return TypeAuthTokenSuccess }
func (AuthTokenFailure) Type() Type    { return TypeAuthTokenFailure }
func (AuthProfileSuccess) Type() Type  { return TypeAuthProfileSuccess }
func (AuthProfileFailure) Type() Type  { return TypeAuthProfileFailure }
func (AuthLoginSuccess) Type() Type    { return TypeAuthLoginSuccess }
func (AuthRefreshProfile) Type() Type  { return TypeAuthRefreshProfile }
func (AuthLogout) Type() Type          { return TypeAuthLogout }
func (AuthLogoutComplete) Type() Type  { return TypeAuthLogoutComplete }
