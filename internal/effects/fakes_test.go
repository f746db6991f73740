package effects

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/api"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/notify"
)

var (
	ada   = model.User{ID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Role: model.RoleAdmin, Status: model.UserStatusActive}
	grace = model.User{ID: "u2", Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper", Role: model.RoleStaff, Status: model.UserStatusActive}
	alan  = model.User{ID: "u3", Email: "alan@example.com", FirstName: "Alan", LastName: "Turing", Role: model.RoleGuest, Status: model.UserStatusPending}
)

// fakeUsers is an in-memory UserRepository counting calls.
type fakeUsers struct {
	mu      sync.Mutex
	users   []model.User
	me      model.User
	meErr   error
	err     error
	calls   map[string]int
	release chan struct{} // when set, UpdateUser blocks until closed
}

func newFakeUsers(users ...model.User) *fakeUsers {
	return &fakeUsers{users: users, calls: map[string]int{}}
}

func (f *fakeUsers) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeUsers) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.err
}

func (f *fakeUsers) ListUsers(ctx context.Context) ([]model.User, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.User(nil), f.users...), nil
}

func (f *fakeUsers) GetUser(ctx context.Context, id string) (model.User, error) {
	if err := f.record("get"); err != nil {
		return model.User{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, &api.Error{Method: "GET", Path: "/api/v1/users/" + id, Status: 404, Body: "not found"}
}

func (f *fakeUsers) CurrentUser(ctx context.Context) (model.User, error) {
	f.record("me")
	return f.me, f.meErr
}

func (f *fakeUsers) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if err := f.record("create"); err != nil {
		return model.User{}, err
	}
	u.ID = "u-new"
	return u, nil
}

func (f *fakeUsers) UpdateUser(ctx context.Context, id string, changes model.UserChanges) (model.User, error) {
	if err := f.record("update"); err != nil {
		return model.User{}, err
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, u := range f.users {
		if u.ID == id {
			f.users[i] = changes.Apply(u)
			return f.users[i], nil
		}
	}
	return model.User{}, errors.New("no such user")
}

func (f *fakeUsers) DeleteUser(ctx context.Context, id string) error {
	return f.record("delete")
}

// fakeRequests is an in-memory ServiceRequestRepository.
type fakeRequests struct {
	mu    sync.Mutex
	reqs  []model.ServiceRequest
	err   error
	calls int
}

func (f *fakeRequests) hit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeRequests) ListServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	if err := f.hit(); err != nil {
		return nil, err
	}
	return f.reqs, nil
}

func (f *fakeRequests) GetServiceRequest(ctx context.Context, id string) (model.ServiceRequest, error) {
	if err := f.hit(); err != nil {
		return model.ServiceRequest{}, err
	}
	for _, r := range f.reqs {
		if r.ID == id {
			return r, nil
		}
	}
	return model.ServiceRequest{}, &api.Error{Method: "GET", Path: "/api/v1/service-requests/" + id, Status: 404}
}

func (f *fakeRequests) CreateServiceRequest(ctx context.Context, r model.ServiceRequest) (model.ServiceRequest, error) {
	if err := f.hit(); err != nil {
		return model.ServiceRequest{}, err
	}
	r.ID = "r-new"
	return r, nil
}

func (f *fakeRequests) UpdateServiceRequest(ctx context.Context, id string, changes model.ServiceRequestChanges) (model.ServiceRequest, error) {
	if err := f.hit(); err != nil {
		return model.ServiceRequest{}, err
	}
	for _, r := range f.reqs {
		if r.ID == id {
			return changes.Apply(r), nil
		}
	}
	return model.ServiceRequest{}, &api.Error{Method: "PUT", Path: "/api/v1/service-requests/" + id, Status: 404}
}

func (f *fakeRequests) DeleteServiceRequest(ctx context.Context, id string) error {
	return f.hit()
}

// fakeProvider is a scripted identity.Provider.
type fakeProvider struct {
	mu            sync.Mutex
	authenticated bool
	hang          bool
	token         model.Token
	tokenErr      error
	profile       model.Profile
	profileErr    error
	returnTo      string
	logouts       int
}

func (p *fakeProvider) IsAuthenticated(ctx context.Context) (bool, error) {
	if p.hang {
		<-ctx.Done()
		return false, ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authenticated, nil
}

func (p *fakeProvider) Token(ctx context.Context) (model.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, p.tokenErr
}

func (p *fakeProvider) Profile(ctx context.Context) (model.Profile, error) {
	return p.profile, p.profileErr
}

func (p *fakeProvider) LoginURL(ctx context.Context, returnTo string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.returnTo = returnTo
	return "https://idp.example.com/authorize?state=s1", nil
}

func (p *fakeProvider) HandleCallback(ctx context.Context, code, state string) (model.Token, string, error) {
	if state != "s1" {
		return model.Token{}, "", identity.ErrUnknownState
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authenticated = true
	return p.token, p.returnTo, nil
}

func (p *fakeProvider) Logout(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts++
	p.authenticated = false
	return "https://idp.example.com/v2/logout", nil
}

// memTheme is an in-memory ThemeStore.
type memTheme struct {
	mu    sync.Mutex
	theme model.Theme
}

func (m *memTheme) Load(context.Context) (model.Theme, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.theme == "" {
		return model.DefaultTheme, nil
	}
	return m.theme, nil
}

func (m *memTheme) Save(_ context.Context, t model.Theme) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.theme = t
	return nil
}

// recNavigator records navigation.
type recNavigator struct {
	mu        sync.Mutex
	paths     []string
	redirects []string
}

func (n *recNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recNavigator) Redirect(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.redirects = append(n.redirects, url)
}

func (n *recNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func (n *recNavigator) Redirects() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.redirects...)
}

// fakeClock is a settable wall clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fixture wires an engine with fakes and records every reduced action type.
type fixture struct {
	e        *engine.Engine
	ctx      context.Context
	users    *fakeUsers
	requests *fakeRequests
	auth     *fakeProvider
	theme    *memTheme
	toasts   *notify.Recorder
	nav      *recNavigator
	clock    *fakeClock

	mu    sync.Mutex
	types []action.Type
}

func newFixture(t *testing.T, configure func(*Deps)) *fixture {
	t.Helper()
	f := &fixture{
		e:        engine.New(nil),
		users:    newFakeUsers(ada, grace, alan),
		requests: &fakeRequests{},
		auth:     &fakeProvider{},
		theme:    &memTheme{},
		toasts:   &notify.Recorder{},
		nav:      &recNavigator{},
		clock:    &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	d := Deps{
		Users:       f.users,
		Requests:    f.requests,
		Auth:        f.auth,
		Theme:       f.theme,
		Notifier:    f.toasts,
		Navigator:   f.nav,
		Now:         f.clock.Now,
		AuthTimeout: 50 * time.Millisecond,
	}
	if configure != nil {
		configure(&d)
	}
	Register(f.e, d)
	f.e.Subscribe(func(r engine.Record) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.types = append(f.types, r.Envelope.Type)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	done := make(chan error, 1)
	go func() { done <- f.e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	f.ctx = ctx
	return f
}

func (f *fixture) dispatch(t *testing.T, a action.Action) {
	t.Helper()
	_, err := f.e.DispatchAndWait(f.ctx, a)
	require.NoError(t, err)
}

func (f *fixture) seen() []action.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]action.Type(nil), f.types...)
}

func (f *fixture) count(t action.Type) int {
	n := 0
	for _, s := range f.seen() {
		if s == t {
			n++
		}
	}
	return n
}
