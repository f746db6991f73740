package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roach88/fmdesk/internal/model"
)

// Claims are the access token claims fmdesk reads. The mock identity
// provider issues tokens with the same shape.
type Claims struct {
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Scope         string `json:"scope,omitempty"`
	OrgID         string `json:"org_id,omitempty"`
	EnterpriseSSO bool   `json:"enterprise_sso,omitempty"`
	jwt.RegisteredClaims
}

// ParseClaims decodes the claims of a JWT access token without verifying its
// signature. The API verifies tokens; the client only reads them.
func ParseClaims(raw string) (Claims, error) {
	var c Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &c); err != nil {
		return Claims{}, fmt.Errorf("parse access token: %w", err)
	}
	return c, nil
}

// Profile projects the claims onto a profile.
func (c Claims) Profile() model.Profile {
	return model.Profile{
		Subject:        c.Subject,
		Email:          c.Email,
		Name:           c.Name,
		OrganizationID: c.OrgID,
		EnterpriseSSO:  c.EnterpriseSSO,
	}
}

func (c Claims) token(raw string) model.Token {
	t := model.Token{AccessToken: raw, Scope: c.Scope}
	if c.ExpiresAt != nil {
		t.ExpiresAt = c.ExpiresAt.Time.UTC()
	}
	return t
}

// expiry returns the exp claim, zero when absent.
func (c Claims) expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
