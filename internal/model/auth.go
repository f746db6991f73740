package model

import "time"

// Token is the access token issued by the identity provider.
// AccessToken is never serialized, so it stays out of the action log and
// traces. The provider keeps the secret in the session-token preference.
type Token struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	Scope       string    `json:"scope,omitempty"`
}

// Expired reports whether the token is expired at now.
// A zero expiry never expires.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Profile is the identity provider's view of the signed-in person.
type Profile struct {
	Subject        string `json:"sub"`
	Email          string `json:"email"`
	Name           string `json:"name,omitempty"`
	Picture        string `json:"picture,omitempty"`
	OrganizationID string `json:"org_id,omitempty"`
	EnterpriseSSO  bool   `json:"enterprise_sso,omitempty"`
}

// Theme is the persisted UI theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// DefaultTheme is used when nothing valid is persisted.
const DefaultTheme = ThemeSystem

// Valid reports whether t is one of the supported themes.
func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}
