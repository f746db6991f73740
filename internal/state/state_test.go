package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

type unknownAction struct{}

func (unknownAction) Type() action.Type { return "[Test] Unknown" }

var loadedAt = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func sampleUsers() []model.User {
	return []model.User{
		{ID: "u3", FirstName: "Carol", LastName: "Zimmer", Role: model.RoleStaff, Status: model.UserStatusActive},
		{ID: "u1", FirstName: "Ada", LastName: "Byron", Role: model.RoleAdmin, Status: model.UserStatusActive},
		{ID: "u2", FirstName: "Bob", LastName: "Marley", Role: model.RoleGuest, Status: model.UserStatusPending},
	}
}

func sampleLog() []action.Action {
	title := "Replace filter"
	return []action.Action{
		action.AppInit{},
		action.ThemeLoaded{Theme: model.ThemeDark},
		action.AuthInit{},
		action.AuthTokenSuccess{Token: model.Token{AccessToken: "tok", ExpiresAt: loadedAt.Add(time.Hour)}},
		action.AuthProfileSuccess{User: sampleUsers()[1], OrganizationID: "org_1"},
		action.AuthLoginSuccess{},
		action.UsersLoad{},
		action.UsersLoadSuccess{Users: sampleUsers(), LoadedAt: loadedAt, RequestSeq: 7},
		action.RequestsLoad{},
		action.RequestsLoadSuccess{Requests: []model.ServiceRequest{
			{ID: "r1", Title: "Leak", Status: model.RequestStatusNew, Priority: model.PriorityHigh, DateCreated: loadedAt},
			{ID: "r2", Title: "HVAC", Status: model.RequestStatusInProgress, Priority: model.PriorityLow, DateCreated: loadedAt.Add(time.Hour)},
		}, LoadedAt: loadedAt, RequestSeq: 9},
		action.RequestUpdate{ID: "r1", Changes: model.ServiceRequestChanges{Title: &title}},
		action.RequestUpdateSuccess{Request: model.ServiceRequest{ID: "r1", Title: title, Status: model.RequestStatusNew, Priority: model.PriorityHigh, DateCreated: loadedAt}, RequestSeq: 11},
		action.UserSelect{ID: "u2"},
		action.UsersSetFilters{Filters: model.UserFilters{Search: "ré"}},
		action.CounterIncrement{},
		action.CounterIncrement{By: 4},
		action.CounterDecrement{By: 2},
		action.AppLoadingStart{Key: "export"},
		action.RouterNavigated{Path: "/dashboard"},
	}
}

func TestReduce_UnknownActionIsIdentity(t *testing.T) {
	s := Replay(sampleLog())
	next := Reduce(s, unknownAction{})

	assert.Same(t, s.Users.Entities, next.Users.Entities)
	assert.Same(t, s.Requests.Entities, next.Requests.Entities)
	assert.Equal(t, s, next)

	assert.Equal(t, s, Reduce(s, nil))
}

func TestReplay_Deterministic(t *testing.T) {
	log := sampleLog()

	first := Replay(log)
	second := Replay(log)

	fp1, err := Fingerprint(first)
	require.NoError(t, err)
	fp2, err := Fingerprint(second)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Equal(t, first.Users.Entities.IDs(), second.Users.Entities.IDs())

	// Folding in two halves lands on the same state.
	mid := len(log) / 2
	split := Replay(log[:mid])
	for _, a := range log[mid:] {
		split = Reduce(split, a)
	}
	fp3, err := Fingerprint(split)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp3)
}

func TestReplay_FinalState(t *testing.T) {
	s := Replay(sampleLog())

	assert.True(t, s.Auth.IsAuthenticated)
	assert.Equal(t, PhaseAuthenticated, s.Auth.Phase)
	assert.Equal(t, []string{"u1", "u2", "u3"}, s.Users.Entities.IDs())
	assert.Equal(t, []string{"r2", "r1"}, s.Requests.Entities.IDs(), "newest first")
	r1, _ := s.Requests.Entities.Get("r1")
	assert.Equal(t, "Replace filter", r1.Title)
	assert.Equal(t, 3, s.Counter.Value)
	assert.True(t, s.AppLoading.Any())
	assert.Equal(t, model.ThemeDark, s.Theme.Theme)
	assert.Equal(t, "/dashboard", s.Route)
}

func TestFingerprint_NormalizesUnicode(t *testing.T) {
	composed := Initial()
	composed.Users.Filters.Search = "caf\u00e9"
	decomposed := Initial()
	decomposed.Users.Filters.Search = "cafe\u0301"

	a, err := Fingerprint(composed)
	require.NoError(t, err)
	b, err := Fingerprint(decomposed)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	other := Initial()
	other.Users.Filters.Search = "cafe"
	c, err := Fingerprint(other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestAppLoading(t *testing.T) {
	s := Initial()
	s = Reduce(s, action.AppLoadingStart{Key: "a"})
	s = Reduce(s, action.AppLoadingStart{Key: "b"})
	assert.Len(t, s.AppLoading.Active, 2)

	before := s
	s = Reduce(s, action.AppLoadingStop{Key: "a"})
	assert.Len(t, before.AppLoading.Active, 2, "maps are copied on write")
	assert.True(t, s.AppLoading.Any())

	s = Reduce(s, action.AppLoadingStop{Key: "b"})
	assert.False(t, s.AppLoading.Any())
	s = Reduce(s, action.AppLoadingStop{Key: "missing"})
	assert.False(t, s.AppLoading.Any())
}

func TestCounter(t *testing.T) {
	s := Initial()
	s = Reduce(s, action.CounterIncrement{})
	s = Reduce(s, action.CounterIncrement{By: 10})
	s = Reduce(s, action.CounterDecrement{})
	assert.Equal(t, 10, s.Counter.Value)
	s = Reduce(s, action.CounterReset{})
	assert.Equal(t, 0, s.Counter.Value)
}

func TestTheme(t *testing.T) {
	s := Initial()
	assert.Equal(t, model.ThemeSystem, s.Theme.Theme)

	s = Reduce(s, action.ThemeSet{Theme: "neon"})
	assert.Equal(t, model.ThemeSystem, s.Theme.Theme, "invalid themes are ignored")

	s = Reduce(s, action.ThemeSet{Theme: model.ThemeDark})
	assert.Equal(t, model.ThemeDark, s.Theme.Theme)

	s = Reduce(s, action.ThemeLoaded{Theme: "garbage"})
	assert.Equal(t, model.ThemeSystem, s.Theme.Theme)
	assert.True(t, s.Theme.Loaded)
}
