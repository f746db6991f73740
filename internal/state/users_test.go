package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/model"
)

func loadedUsers(t *testing.T) State {
	t.Helper()
	s := Reduce(Initial(), action.UsersLoad{})
	require.True(t, s.Users.Loading)
	s = Reduce(s, action.UsersLoadSuccess{Users: sampleUsers(), LoadedAt: loadedAt, RequestSeq: 1})
	require.False(t, s.Users.Loading)
	return s
}

func TestUsers_LoadSortsByName(t *testing.T) {
	s := loadedUsers(t)
	assert.Equal(t, []string{"u1", "u2", "u3"}, s.Users.Entities.IDs())
	assert.Equal(t, loadedAt, s.Users.LoadedAt)
	assert.Equal(t, int64(1), s.Users.LoadSeq)
}

func TestUsers_DeleteSuccessRemovesExactlyOne(t *testing.T) {
	s := loadedUsers(t)
	before := s.Users.Entities

	s = Reduce(s, action.UserDelete{ID: "u2"})
	assert.Same(t, before, s.Users.Entities, "delete waits for confirmation")

	s = Reduce(s, action.UserDeleteSuccess{ID: "u2"})

	assert.Equal(t, []string{"u1", "u3"}, s.Users.Entities.IDs())
	for _, id := range []string{"u1", "u3"} {
		want, _ := before.Get(id)
		got, ok := s.Users.Entities.Get(id)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 3, before.Len(), "previous snapshot untouched")
	assert.False(t, s.Users.Loading)
}

func TestUsers_DeleteClearsSelection(t *testing.T) {
	s := loadedUsers(t)
	s = Reduce(s, action.UserSelect{ID: "u3"})
	s = Reduce(s, action.UserDeleteSuccess{ID: "u3"})
	assert.Empty(t, s.Users.SelectedID)
}

func TestUsers_FailureKeepsData(t *testing.T) {
	s := loadedUsers(t)
	s = Reduce(s, action.UsersLoad{Force: true})
	s = Reduce(s, action.UsersLoadFailure{
		Failure:    action.Failure{Kind: action.FailureNetwork, Message: "network error"},
		RequestSeq: 2,
	})

	assert.Equal(t, 3, s.Users.Entities.Len())
	assert.False(t, s.Users.Loading)
	assert.Equal(t, "network: network error", s.Users.Error)

	s = Reduce(s, action.UserDeleteFailure{ID: "u1", Failure: action.Failure{Kind: action.FailureServer, Status: 500, Message: "boom"}})
	assert.True(t, s.Users.Entities.Has("u1"))
	assert.Contains(t, s.Users.Error, "500")
}

func TestUsers_LoadCachedClearsLoading(t *testing.T) {
	s := loadedUsers(t)
	s = Reduce(s, action.UsersLoad{})
	require.True(t, s.Users.Loading)
	entities := s.Users.Entities

	s = Reduce(s, action.UsersLoadCached{})
	assert.False(t, s.Users.Loading)
	assert.Same(t, entities, s.Users.Entities)
}

func TestUsers_UpdateIsConfirmThenApply(t *testing.T) {
	s := loadedUsers(t)
	first := "Augusta"

	s = Reduce(s, action.UserUpdate{ID: "u1", Changes: model.UserChanges{FirstName: &first}})
	u, _ := s.Users.Entities.Get("u1")
	assert.Equal(t, "Ada", u.FirstName, "no optimistic merge")

	u.FirstName = first
	s = Reduce(s, action.UserUpdateSuccess{User: u, RequestSeq: 5})
	got, _ := s.Users.Entities.Get("u1")
	assert.Equal(t, first, got.FirstName)
}

func TestUsers_StaleUpdateDropped(t *testing.T) {
	s := loadedUsers(t)
	u, _ := s.Users.Entities.Get("u1")

	newer := u
	newer.JobTitle = "Director"
	older := u
	older.JobTitle = "Intern"

	s = Reduce(s, action.UserUpdateSuccess{User: newer, RequestSeq: 9})
	s = Reduce(s, action.UserUpdateSuccess{User: older, RequestSeq: 4})

	got, _ := s.Users.Entities.Get("u1")
	assert.Equal(t, "Director", got.JobTitle)
}

func TestUsers_UpdateForDeletedUserDropped(t *testing.T) {
	s := loadedUsers(t)
	u, _ := s.Users.Entities.Get("u2")
	s = Reduce(s, action.UserDeleteSuccess{ID: "u2"})
	s = Reduce(s, action.UserUpdateSuccess{User: u, RequestSeq: 3})
	assert.False(t, s.Users.Entities.Has("u2"))
}

func TestUsers_StaleListLoadDropped(t *testing.T) {
	s := Initial()
	fresh := []model.User{{ID: "new", LastName: "Fresh"}}
	stale := []model.User{{ID: "old", LastName: "Stale"}}

	s = Reduce(s, action.UsersLoadSuccess{Users: fresh, LoadedAt: loadedAt.Add(time.Minute), RequestSeq: 10})
	s = Reduce(s, action.UsersLoadSuccess{Users: stale, LoadedAt: loadedAt, RequestSeq: 3})
	s = Reduce(s, action.UsersLoadFailure{Failure: action.Failure{Kind: action.FailureServer, Status: 503}, RequestSeq: 2})

	assert.Equal(t, []string{"new"}, s.Users.Entities.IDs())
	assert.Empty(t, s.Users.Error)

	// Unstamped responses always apply.
	s = Reduce(s, action.UsersLoadSuccess{Users: stale, LoadedAt: loadedAt})
	assert.Equal(t, []string{"old"}, s.Users.Entities.IDs())
	assert.Equal(t, int64(10), s.Users.LoadSeq)
}

func TestUsers_CreateAndFilters(t *testing.T) {
	s := loadedUsers(t)
	s = Reduce(s, action.UserCreateSuccess{User: model.User{ID: "u4", FirstName: "Dan", LastName: "Adams"}})
	assert.Equal(t, []string{"u4", "u1", "u2", "u3"}, s.Users.Entities.IDs())

	f := model.UserFilters{Search: "ada", Role: model.RoleAdmin}
	s = Reduce(s, action.UsersSetFilters{Filters: f})
	assert.Equal(t, f, s.Users.Filters)
	s = Reduce(s, action.UsersClearFilters{})
	assert.Equal(t, model.UserFilters{}, s.Users.Filters)
}

func TestRequests_DeleteAndStaleLoad(t *testing.T) {
	reqs := []model.ServiceRequest{
		{ID: "a", DateCreated: loadedAt},
		{ID: "b", DateCreated: loadedAt.Add(2 * time.Hour)},
		{ID: "c", DateCreated: loadedAt.Add(time.Hour)},
	}
	s := Reduce(Initial(), action.RequestsLoadSuccess{Requests: reqs, LoadedAt: loadedAt, RequestSeq: 4})
	assert.Equal(t, []string{"b", "c", "a"}, s.Requests.Entities.IDs())

	s = Reduce(s, action.RequestDeleteSuccess{ID: "c"})
	assert.Equal(t, []string{"b", "a"}, s.Requests.Entities.IDs())

	s = Reduce(s, action.RequestsLoadSuccess{Requests: reqs, LoadedAt: loadedAt, RequestSeq: 2})
	assert.Equal(t, []string{"b", "a"}, s.Requests.Entities.IDs(), "stale list dropped")

	s = Reduce(s, action.RequestCreateFailure{Failure: action.Failure{Kind: action.FailureValidation, Message: "title required"}})
	assert.Equal(t, "validation: title required", s.Requests.Error)
	assert.Equal(t, 2, s.Requests.Entities.Len())
}
