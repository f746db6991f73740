package app_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/app"
	"github.com/roach88/fmdesk/internal/identity"
	"github.com/roach88/fmdesk/internal/mockapi"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/selector"
	"github.com/roach88/fmdesk/internal/state"
	"github.com/roach88/fmdesk/internal/testutil"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type navigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navigator) Redirect(string) {}

func (n *navigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func mockServer(t *testing.T) (*mockapi.Server, *httptest.Server) {
	t.Helper()
	clock := testutil.NewClock(testNow)
	mock, err := mockapi.New(mockapi.WithClock(clock.Now))
	require.NoError(t, err)
	srv := httptest.NewServer(mock)
	t.Cleanup(srv.Close)
	return mock, srv
}

func open(t *testing.T, cfg app.Config, opts ...app.Option) *app.App {
	t.Helper()
	a, err := app.Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	a.Start(ctx)
	t.Cleanup(func() {
		cancel()
		a.Close()
	})
	return a
}

func TestOpen_RequiresDB(t *testing.T) {
	_, err := app.Open(context.Background(), app.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestOpen_ChoosesProvider(t *testing.T) {
	ctx := context.Background()

	bare, err := app.Open(ctx, app.Config{DB: ":memory:"})
	require.NoError(t, err)
	defer bare.Close()
	assert.Nil(t, bare.Provider)
	assert.Nil(t, bare.API)

	static, err := app.Open(ctx, app.Config{DB: ":memory:", AccessToken: "not-a-jwt"})
	require.NoError(t, err)
	defer static.Close()
	assert.IsType(t, identity.Static{}, static.Provider)

	oauth, err := app.Open(ctx, app.Config{
		DB:   ":memory:",
		Auth: identity.Config{Domain: "idp.example", ClientID: "fmdesk-cli"},
	})
	require.NoError(t, err)
	defer oauth.Close()
	assert.IsType(t, &identity.OAuth{}, oauth.Provider)
}

func TestOpen_RejectsBadAuthConfig(t *testing.T) {
	_, err := app.Open(context.Background(), app.Config{
		DB:   ":memory:",
		Auth: identity.Config{ClientID: "fmdesk-cli"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "identity provider")
}

func TestInit_StaticTokenSignsIn(t *testing.T) {
	mock, srv := mockServer(t)
	tok, err := mock.IssueToken(mockapi.FixtureAdmin)
	require.NoError(t, err)

	nav := &navigator{}
	a := open(t, app.Config{APIURL: srv.URL, DB: ":memory:", AccessToken: tok},
		app.WithNavigator(nav), app.WithNow(func() time.Time { return testNow }), app.Fresh())

	require.NoError(t, a.Do(context.Background(), action.AppInit{}))

	st := a.State()
	require.True(t, st.Auth.IsAuthenticated)
	assert.Equal(t, state.PhaseAuthenticated, st.Auth.Phase)
	assert.Equal(t, "u-100", st.Auth.User.ID)
	assert.Equal(t, "/dashboard", st.Route)
	assert.Equal(t, []string{"/dashboard"}, nav.Paths())

	d := a.Dashboard()
	assert.True(t, d.IsAdmin)
	assert.True(t, d.Has(selector.SectionUserManagement))
}

func TestInit_WithoutProviderOnlyRestoresTheme(t *testing.T) {
	a := open(t, app.Config{DB: ":memory:"})
	require.NoError(t, a.Theme.Save(context.Background(), model.ThemeDark))

	require.NoError(t, a.Do(context.Background(), action.AppInit{}))

	st := a.State()
	assert.Equal(t, model.ThemeDark, st.Theme.Theme)
	assert.False(t, st.Auth.IsAuthenticated)
	assert.Equal(t, state.PhaseUnauthenticated, st.Auth.Phase)
}

func TestUsersLoadThroughAPI(t *testing.T) {
	mock, srv := mockServer(t)
	tok, err := mock.IssueToken(mockapi.FixtureAdmin)
	require.NoError(t, err)

	a := open(t, app.Config{APIURL: srv.URL, DB: ":memory:", AccessToken: tok},
		app.WithNow(func() time.Time { return testNow }), app.Fresh())

	require.NoError(t, a.Do(context.Background(), action.UsersLoad{}))
	users := a.Selectors.AllUsers(a.State())
	assert.Len(t, users, 4)

	// A second load within the cache window is served from state.
	require.NoError(t, a.Do(context.Background(), action.UsersLoad{}))
	assert.Equal(t, 1, mock.Hits("GET", "/api/v1/users"))
}

func TestOpen_ResumesStoredSession(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fmdesk.db")
	ctx := context.Background()

	first, err := app.Open(ctx, app.Config{DB: db})
	require.NoError(t, err)
	first.Start(ctx)
	require.NoError(t, first.Do(ctx, action.CounterIncrement{By: 2}))
	require.NoError(t, first.Do(ctx, action.ThemeSet{Theme: model.ThemeDark}))
	require.NoError(t, first.Close())

	second := open(t, app.Config{DB: db})
	assert.Equal(t, 2, second.Resumed)
	assert.Equal(t, 2, second.State().Counter.Value)
	assert.Equal(t, model.ThemeDark, second.State().Theme.Theme)

	require.NoError(t, second.Do(ctx, action.CounterIncrement{By: 1}))
	assert.Equal(t, 3, second.State().Counter.Value)
}

func TestOpen_FreshIgnoresLog(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fmdesk.db")
	ctx := context.Background()

	first, err := app.Open(ctx, app.Config{DB: db})
	require.NoError(t, err)
	first.Start(ctx)
	require.NoError(t, first.Do(ctx, action.CounterIncrement{By: 5}))
	require.NoError(t, first.Close())

	second := open(t, app.Config{DB: db}, app.Fresh())
	assert.Zero(t, second.Resumed)
	assert.Zero(t, second.State().Counter.Value)
}

func TestClose_WithoutStart(t *testing.T) {
	a, err := app.Open(context.Background(), app.Config{DB: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}
