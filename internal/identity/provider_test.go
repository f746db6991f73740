package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/model"
)

type slowProvider struct {
	Static
	delay time.Duration
	err   error
}

func (p slowProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	select {
	case <-time.After(p.delay):
		return p.err == nil, p.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func TestCheckAuthenticated(t *testing.T) {
	ctx := context.Background()

	assert.True(t, CheckAuthenticated(ctx, Static{AccessToken: "t"}, time.Second))
	assert.False(t, CheckAuthenticated(ctx, Static{}, time.Second))
	assert.False(t, CheckAuthenticated(ctx, slowProvider{err: assert.AnError}, time.Second))

	start := time.Now()
	assert.False(t, CheckAuthenticated(ctx, slowProvider{delay: time.Hour}, 20*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
}

func signed(t *testing.T, c Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("k"))
	require.NoError(t, err)
	return raw
}

func TestParseClaims(t *testing.T) {
	exp := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := signed(t, Claims{
		Email:         "ada@example.com",
		Name:          "Ada Lovelace",
		Scope:         "openid write:users",
		OrgID:         "org_1",
		EnterpriseSSO: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "idp|ada",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	c, err := ParseClaims(raw)
	require.NoError(t, err)
	assert.Equal(t, model.Profile{
		Subject:        "idp|ada",
		Email:          "ada@example.com",
		Name:           "Ada Lovelace",
		OrganizationID: "org_1",
		EnterpriseSSO:  true,
	}, c.Profile())
	assert.Equal(t, exp, c.expiry().UTC())

	_, err = ParseClaims("garbage")
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	raw := signed(t, Claims{Scope: "read:users", RegisteredClaims: jwt.RegisteredClaims{Subject: "s"}})
	claims, err := ParseClaims(raw)
	require.NoError(t, err)
	p := Static{AccessToken: raw, Claims: claims}

	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, raw, tok.AccessToken)
	assert.Equal(t, "read:users", tok.Scope)
	assert.True(t, tok.ExpiresAt.IsZero())

	_, err = p.LoginURL(ctx, "/")
	assert.Error(t, err)
	_, _, err = p.HandleCallback(ctx, "c", "s")
	assert.ErrorIs(t, err, ErrUnknownState)

	_, err = Static{}.Profile(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestTokenSource(t *testing.T) {
	ts := TokenSource(context.Background(), Static{AccessToken: "abc"})
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)

	_, err = TokenSource(context.Background(), Static{}).Token()
	assert.ErrorIs(t, err, ErrNoSession)
}
