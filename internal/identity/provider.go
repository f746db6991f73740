package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/roach88/fmdesk/internal/model"
)

// DefaultCheckTimeout bounds CheckAuthenticated.
const DefaultCheckTimeout = 3 * time.Second

var (
	// ErrNoSession is returned when a token or profile is requested while no
	// session is stored.
	ErrNoSession = errors.New("identity: no session")
	// ErrUnknownState is returned when a callback does not match a login this
	// provider started.
	ErrUnknownState = errors.New("identity: unknown login state")
)

// Provider is the identity provider as seen by the auth effects.
type Provider interface {
	// IsAuthenticated reports whether a usable session exists.
	IsAuthenticated(ctx context.Context) (bool, error)
	// Token returns the access token, refreshing it silently when needed.
	Token(ctx context.Context) (model.Token, error)
	// Profile returns the provider's view of the signed-in person.
	Profile(ctx context.Context) (model.Profile, error)
	// LoginURL starts a login and returns the page to send the user to.
	LoginURL(ctx context.Context, returnTo string) (string, error)
	// HandleCallback exchanges the authorization code and returns the new
	// token and the returnTo given to LoginURL.
	HandleCallback(ctx context.Context, code, state string) (model.Token, string, error)
	// Logout ends the session and returns the provider's logout URL, if any.
	Logout(ctx context.Context) (string, error)
}

// CheckAuthenticated asks p whether a session exists, waiting at most
// timeout. Errors and timeouts report false.
func CheckAuthenticated(ctx context.Context, p Provider, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := p.IsAuthenticated(ctx)
		done <- result{ok, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			slog.Warn("auth status check failed", "error", r.err)
			return false
		}
		return r.ok
	case <-ctx.Done():
		slog.Warn("auth status check timed out", "timeout", timeout)
		return false
	}
}

// TokenSource adapts p to oauth2.TokenSource so HTTP clients can attach the
// provider's current access token.
func TokenSource(ctx context.Context, p Provider) oauth2.TokenSource {
	return &providerTokenSource{ctx: ctx, p: p}
}

type providerTokenSource struct {
	ctx context.Context
	p   Provider
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.p.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   "Bearer",
		Expiry:      tok.ExpiresAt,
	}, nil
}

// Static is a Provider with a fixed token and profile. It is used when the
// CLI is given an access token directly.
type Static struct {
	AccessToken string
	Claims      Claims
}

func (s Static) IsAuthenticated(context.Context) (bool, error) {
	return s.AccessToken != "", nil
}

func (s Static) Token(context.Context) (model.Token, error) {
	if s.AccessToken == "" {
		return model.Token{}, ErrNoSession
	}
	return s.Claims.token(s.AccessToken), nil
}

func (s Static) Profile(context.Context) (model.Profile, error) {
	if s.AccessToken == "" {
		return model.Profile{}, ErrNoSession
	}
	return s.Claims.Profile(), nil
}

func (s Static) LoginURL(context.Context, string) (string, error) {
	return "", errors.New("identity: static token cannot start a login")
}

func (s Static) HandleCallback(context.Context, string, string) (model.Token, string, error) {
	return model.Token{}, "", ErrUnknownState
}

func (s Static) Logout(context.Context) (string, error) {
	return "", nil
}
