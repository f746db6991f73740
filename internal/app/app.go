// Package app wires the fmdesk state container to its collaborators: the
// SQLite store, the identity provider, the facility API client, the effects
// and the selectors. The CLI and the scenario harness both build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/api"
	"github.com/roach88/fmdesk/internal/effects"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/notify"
	"github.com/roach88/fmdesk/internal/obs"
	"github.com/roach88/fmdesk/internal/selector"
	"github.com/roach88/fmdesk/internal/state"
	"github.com/roach88/fmdesk/internal/store"
	"github.com/roach88/fmdesk/internal/theme"
)

// Config is the user-facing configuration, loaded by viper in the CLI.
type Config struct {
	APIURL      string          `mapstructure:"api_url"`
	DB          string          `mapstructure:"db"`
	Auth        identity.Config `mapstructure:"auth"`
	AccessToken string          `mapstructure:"access_token"`
	CacheTTL    time.Duration   `mapstructure:"cache_ttl"`
	AuthTimeout time.Duration   `mapstructure:"auth_timeout"`
	RateLimit   float64         `mapstructure:"rate_limit"`
	MaxRetries  uint64          `mapstructure:"max_retries"`
}

type options struct {
	hc        *http.Client
	navigator effects.Navigator
	notifier  notify.Notifier
	now       func() time.Time
	flowGen   engine.FlowTokenGenerator
	metrics   *obs.Metrics
	fresh     bool
	retryWait time.Duration
}

// Option customizes Open.
type Option func(*options)

// WithHTTPClient is used for the API and the identity provider.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.hc = hc }
}

// WithNavigator receives in-app navigation and provider redirects.
func WithNavigator(n effects.Navigator) Option {
	return func(o *options) { o.navigator = n }
}

// WithNotifier receives mutation toasts.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithNow replaces the wall clock seen by effects and the identity provider.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFlowGenerator replaces the UUIDv7 flow tokens.
func WithFlowGenerator(g engine.FlowTokenGenerator) Option {
	return func(o *options) { o.flowGen = g }
}

// WithMetrics instruments the engine and the API client.
func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Fresh starts from the initial state instead of replaying the stored log.
func Fresh() Option {
	return func(o *options) { o.fresh = true }
}

// WithRetryWait sets the first API retry backoff.
func WithRetryWait(d time.Duration) Option {
	return func(o *options) { o.retryWait = d }
}

// App is a running fmdesk session.
type App struct {
	Store     *store.Store
	Engine    *engine.Engine
	Provider  identity.Provider
	API       *api.Client
	Theme     *theme.Service
	Selectors *selector.Selectors
	Metrics   *obs.Metrics

	// Resumed is the number of logged actions replayed at Open.
	Resumed int

	mu   sync.Mutex
	done chan error
	stop context.CancelFunc
}

// Open builds an App from cfg. The engine is not running until Start.
func Open(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	o := options{
		hc:  &http.Client{Timeout: 30 * time.Second},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.DB == "" {
		return nil, errors.New("app: database path must be provided")
	}

	st, err := store.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &App{
		Store:     st,
		Theme:     theme.NewService(st),
		Selectors: selector.New(),
		Metrics:   o.metrics,
	}

	a.Provider, err = newProvider(cfg, st, o)
	if err != nil {
		st.Close()
		return nil, err
	}
	if cfg.APIURL != "" {
		a.API, err = newClient(ctx, cfg, o, a.Provider)
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	engineOpts := []engine.EngineOption{engine.WithLog(st), engine.WithMetrics(o.metrics)}
	if !o.fresh {
		resume, res, err := engine.Resume(ctx, st, action.NewRegistry())
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("resume session: %w", err)
		}
		a.Resumed = res.Actions
		engineOpts = append(resume, engineOpts...)
	}
	a.Engine = engine.New(o.flowGen, engineOpts...)

	deps := effects.Deps{
		Auth:        a.Provider,
		Theme:       a.Theme,
		Notifier:    o.notifier,
		Navigator:   o.navigator,
		Now:         o.now,
		CacheTTL:    cfg.CacheTTL,
		AuthTimeout: cfg.AuthTimeout,
	}
	if a.API != nil {
		deps.Users = a.API
		deps.Requests = a.API
	}
	effects.Register(a.Engine, deps)

	slog.Debug("session opened", "db", cfg.DB, "resumed", a.Resumed, "api", cfg.APIURL)
	return a, nil
}

func newProvider(cfg Config, st *store.Store, o options) (identity.Provider, error) {
	switch {
	case cfg.AccessToken != "":
		claims, err := identity.ParseClaims(cfg.AccessToken)
		if err != nil {
			slog.Warn("access token is not a readable JWT", "error", err)
		}
		return identity.Static{AccessToken: cfg.AccessToken, Claims: claims}, nil
	case cfg.Auth.ClientID != "":
		p, err := identity.NewOAuth(cfg.Auth, st, identity.WithHTTPClient(o.hc), identity.WithNow(o.now))
		if err != nil {
			return nil, fmt.Errorf("identity provider: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

func newClient(ctx context.Context, cfg Config, o options, p identity.Provider) (*api.Client, error) {
	apiOpts := []api.Option{
		api.WithHTTPClient(o.hc),
		api.WithMetrics(o.metrics),
		api.WithRateLimit(cfg.RateLimit, 1),
	}
	if p != nil {
		apiOpts = append(apiOpts, api.WithTokenSource(identity.TokenSource(ctx, p)))
	}
	if cfg.MaxRetries > 0 || o.retryWait > 0 {
		retries := cfg.MaxRetries
		if retries == 0 {
			retries = api.DefaultMaxRetries
		}
		wait := o.retryWait
		if wait <= 0 {
			wait = 250 * time.Millisecond
		}
		apiOpts = append(apiOpts, api.WithRetry(retries, wait))
	}
	c, err := api.New(cfg.APIURL, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}
	return c, nil
}

// Start runs the engine until ctx ends or Close is called.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done != nil {
		return
	}
	ctx, a.stop = context.WithCancel(ctx)
	a.done = make(chan error, 1)
	go func() { a.done <- a.Engine.Run(ctx) }()
}

// Do dispatches act and waits until every effect it caused has settled.
func (a *App) Do(ctx context.Context, act action.Action) error {
	if _, err := a.Engine.DispatchAndWait(ctx, act); err != nil {
		return fmt.Errorf("dispatch %s: %w", act.Type(), err)
	}
	return nil
}

// State returns the current state snapshot.
func (a *App) State() state.State {
	return a.Engine.State()
}

// Dashboard is the dashboard view-model of the current state.
func (a *App) Dashboard() *selector.Dashboard {
	return a.Selectors.Dashboard(a.State())
}

// Close stops the engine and closes the store.
func (a *App) Close() error {
	a.mu.Lock()
	done, stop := a.done, a.stop
	a.mu.Unlock()

	if done != nil {
		a.Engine.Stop()
		stop()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("engine stopped with error", "error", err)
		}
	}
	return a.Store.Close()
}
