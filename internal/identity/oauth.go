package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/store"
)

// pendingTTL is how long a started login waits for its callback.
const pendingTTL = 10 * time.Minute

// DefaultScopes are requested when Config.Scopes is empty.
var DefaultScopes = []string{"openid", "profile", "email", "offline_access"}

// Config describes the identity provider. Endpoint URLs left empty are
// derived from Domain using the conventional paths.
type Config struct {
	Domain         string   `mapstructure:"domain"`
	ClientID       string   `mapstructure:"client_id"`
	ClientSecret   string   `mapstructure:"client_secret"`
	Audience       string   `mapstructure:"audience"`
	RedirectURL    string   `mapstructure:"redirect_url"`
	LogoutReturnTo string   `mapstructure:"logout_return_to"`
	AuthURL        string   `mapstructure:"auth_url"`
	TokenURL       string   `mapstructure:"token_url"`
	UserInfoURL    string   `mapstructure:"userinfo_url"`
	LogoutURL      string   `mapstructure:"logout_url"`
	Scopes         []string `mapstructure:"scopes"`
}

// resolve fills derived endpoints and validates the result.
func (c Config) resolve() (Config, error) {
	if c.ClientID == "" {
		return c, errors.New("identity: client id must be provided")
	}
	base := strings.TrimRight(c.Domain, "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}
	derive := func(v *string, path string) {
		if *v == "" && base != "" {
			*v = base + path
		}
	}
	derive(&c.AuthURL, "/authorize")
	derive(&c.TokenURL, "/oauth/token")
	derive(&c.UserInfoURL, "/userinfo")
	derive(&c.LogoutURL, "/v2/logout")
	if c.AuthURL == "" || c.TokenURL == "" {
		return c, errors.New("identity: domain or auth and token URLs must be provided")
	}
	if len(c.Scopes) == 0 {
		c.Scopes = DefaultScopes
	}
	return c, nil
}

// Sessions persists the session token. *store.Store implements it.
type Sessions interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}

type pendingLogin struct {
	verifier string
	returnTo string
	started  time.Time
}

// OAuth is a Provider speaking OAuth 2.0 authorization code with PKCE.
type OAuth struct {
	cfg      Config
	oauth    *oauth2.Config
	sessions Sessions
	hc       *http.Client
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]pendingLogin
}

// OAuthOption configures an OAuth provider.
type OAuthOption func(*OAuth)

// WithHTTPClient sets the client used for token and userinfo calls.
func WithHTTPClient(hc *http.Client) OAuthOption {
	return func(o *OAuth) { o.hc = hc }
}

// WithNow replaces the wall clock used to expire pending logins.
func WithNow(now func() time.Time) OAuthOption {
	return func(o *OAuth) { o.now = now }
}

// NewOAuth creates a provider. sessions may be nil, in which case the session
// lives only as long as the process.
func NewOAuth(cfg Config, sessions Sessions, opts ...OAuthOption) (*OAuth, error) {
	cfg, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = newMemorySessions()
	}
	o := &OAuth{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		sessions: sessions,
		hc:       &http.Client{Timeout: 15 * time.Second},
		now:      time.Now,
		pending:  make(map[string]pendingLogin),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

func (o *OAuth) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, o.hc)
}

func (o *OAuth) IsAuthenticated(ctx context.Context) (bool, error) {
	tok, err := o.load(ctx)
	if err != nil {
		return false, err
	}
	if tok == nil {
		return false, nil
	}
	return tok.Valid() || tok.RefreshToken != "", nil
}

// Token returns the stored access token, refreshing it through the token
// endpoint when it has expired. A refreshed token is saved.
func (o *OAuth) Token(ctx context.Context) (model.Token, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	tok, err := o.load(ctx)
	if err != nil {
		return model.Token{}, err
	}
	if tok == nil {
		return model.Token{}, ErrNoSession
	}

	fresh, err := o.oauth.TokenSource(o.clientContext(ctx), tok).Token()
	if err != nil {
		return model.Token{}, fmt.Errorf("refresh access token: %w", err)
	}
	if fresh.AccessToken != tok.AccessToken {
		slog.Debug("access token refreshed", "expiry", fresh.Expiry)
		if err := o.save(ctx, fresh); err != nil {
			return model.Token{}, err
		}
	}
	return toModelToken(fresh), nil
}

// userInfo is the subset of the OIDC userinfo response fmdesk reads.
type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	OrgID         string `json:"org_id"`
	EnterpriseSSO bool   `json:"enterprise_sso"`
}

// Profile calls the userinfo endpoint. Organization and SSO fields missing
// from the response are taken from the access token claims.
func (o *OAuth) Profile(ctx context.Context) (model.Profile, error) {
	tok, err := o.Token(ctx)
	if err != nil {
		return model.Profile{}, err
	}
	claims, claimsErr := ParseClaims(tok.AccessToken)
	if o.cfg.UserInfoURL == "" {
		if claimsErr != nil {
			return model.Profile{}, claimsErr
		}
		return claims.Profile(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.UserInfoURL, nil)
	if err != nil {
		return model.Profile{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	res, err := o.hc.Do(req)
	if err != nil {
		return model.Profile{}, fmt.Errorf("userinfo: %w", err)
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return model.Profile{}, fmt.Errorf("userinfo: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return model.Profile{}, fmt.Errorf("userinfo: status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return model.Profile{}, fmt.Errorf("decode userinfo: %w", err)
	}
	p := model.Profile{
		Subject:        info.Sub,
		Email:          info.Email,
		Name:           info.Name,
		Picture:        info.Picture,
		OrganizationID: info.OrgID,
		EnterpriseSSO:  info.EnterpriseSSO,
	}
	if claimsErr == nil {
		if p.OrganizationID == "" {
			p.OrganizationID = claims.OrgID
		}
		p.EnterpriseSSO = p.EnterpriseSSO || claims.EnterpriseSSO
	}
	return p, nil
}

// LoginURL records a PKCE verifier under a fresh state value and returns the
// authorization URL.
func (o *OAuth) LoginURL(ctx context.Context, returnTo string) (string, error) {
	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()

	o.mu.Lock()
	now := o.now()
	for k, p := range o.pending {
		if now.Sub(p.started) > pendingTTL {
			delete(o.pending, k)
		}
	}
	o.pending[state] = pendingLogin{verifier: verifier, returnTo: returnTo, started: now}
	o.mu.Unlock()

	opts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if o.cfg.Audience != "" {
		opts = append(opts, oauth2.SetAuthURLParam("audience", o.cfg.Audience))
	}
	return o.oauth.AuthCodeURL(state, opts...), nil
}

// HandleCallback completes a login started by LoginURL.
func (o *OAuth) HandleCallback(ctx context.Context, code, state string) (model.Token, string, error) {
	o.mu.Lock()
	p, ok := o.pending[state]
	delete(o.pending, state)
	o.mu.Unlock()

	if !ok || o.now().Sub(p.started) > pendingTTL {
		return model.Token{}, "", ErrUnknownState
	}
	if code == "" {
		return model.Token{}, "", errors.New("identity: callback has no code")
	}

	tok, err := o.oauth.Exchange(o.clientContext(ctx), code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		return model.Token{}, "", fmt.Errorf("exchange code: %w", err)
	}
	if err := o.save(ctx, tok); err != nil {
		return model.Token{}, "", err
	}
	return toModelToken(tok), p.returnTo, nil
}

// Logout forgets the stored session and returns the provider logout URL.
func (o *OAuth) Logout(ctx context.Context) (string, error) {
	if err := o.sessions.DeletePreference(ctx, store.KeySessionToken); err != nil {
		return "", fmt.Errorf("logout: %w", err)
	}
	if o.cfg.LogoutURL == "" {
		return "", nil
	}
	u, err := url.Parse(o.cfg.LogoutURL)
	if err != nil {
		return "", fmt.Errorf("logout url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", o.cfg.ClientID)
	if o.cfg.LogoutReturnTo != "" {
		q.Set("returnTo", o.cfg.LogoutReturnTo)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (o *OAuth) load(ctx context.Context) (*oauth2.Token, error) {
	raw, ok, err := o.sessions.GetPreference(ctx, store.KeySessionToken)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		slog.Warn("discarding unreadable session", "error", err)
		return nil, nil
	}
	if tok.AccessToken == "" {
		return nil, nil
	}
	return &tok, nil
}

func (o *OAuth) save(ctx context.Context, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := o.sessions.SetPreference(ctx, store.KeySessionToken, string(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// toModelToken reads scope and expiry from the JWT claims when the token
// response did not carry them.
func toModelToken(tok *oauth2.Token) model.Token {
	out := model.Token{AccessToken: tok.AccessToken, ExpiresAt: tok.Expiry.UTC()}
	if s, ok := tok.Extra("scope").(string); ok {
		out.Scope = s
	}
	claims, err := ParseClaims(tok.AccessToken)
	if err != nil {
		return out
	}
	if out.Scope == "" {
		out.Scope = claims.Scope
	}
	if tok.Expiry.IsZero() {
		if exp := claims.expiry(); !exp.IsZero() {
			out.ExpiresAt = exp.UTC()
		}
	}
	return out
}

// memorySessions keeps the session in process memory.
type memorySessions struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{values: make(map[string]string)}
}

func (m *memorySessions) GetPreference(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memorySessions) SetPreference(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memorySessions) DeletePreference(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
