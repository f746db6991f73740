package effects

import (
	"context"
	"strings"
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/model"
)

func (h *handlers) registerUsers(e *engine.Engine) {
	e.On(action.TypeUsersLoad, "users.load", h.loadUsers)
	e.On(action.TypeUserLoad, "users.load_one", h.loadUser)
	e.On(action.TypeUserCreate, "users.create", h.createUser)
	e.On(action.TypeUserUpdate, "users.update", h.updateUser)
	e.On(action.TypeUserDelete, "users.delete", h.deleteUser)
}

// usersFresh reports whether the list loaded at loadedAt may be reused.
func (h *handlers) usersFresh(loadedAt time.Time) bool {
	return !loadedAt.IsZero() && h.Now().Sub(loadedAt) < h.CacheTTL
}

// loadUsers fetches the user list unless the last load is still fresh.
func (h *handlers) loadUsers(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.UsersLoad)
	if !a.Force && h.usersFresh(t.State.Users.LoadedAt) {
		return []action.Action{action.UsersLoadCached{}}
	}
	users, err := h.Users.ListUsers(ctx)
	if err != nil {
		return []action.Action{action.UsersLoadFailure{Failure: failureOf(err, action.FailureNetwork), RequestSeq: t.Seq()}}
	}
	return []action.Action{action.UsersLoadSuccess{Users: users, LoadedAt: h.Now().UTC(), RequestSeq: t.Seq()}}
}

func (h *handlers) loadUser(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.UserLoad)
	if a.ID == "" {
		return []action.Action{action.UserLoadFailure{Failure: invalid("user id is required")}}
	}
	u, err := h.Users.GetUser(ctx, a.ID)
	if err != nil {
		return []action.Action{action.UserLoadFailure{ID: a.ID, Failure: failureOf(err, action.FailureNetwork)}}
	}
	return []action.Action{action.UserLoadSuccess{User: u, RequestSeq: t.Seq()}}
}

func validateUser(u model.User) string {
	switch {
	case strings.TrimSpace(u.Email) == "":
		return "email is required"
	case !strings.Contains(u.Email, "@"):
		return "email is invalid"
	case strings.TrimSpace(u.FirstName) == "" && strings.TrimSpace(u.LastName) == "":
		return "name is required"
	case u.Role != "" && !u.Role.Valid():
		return "role is invalid"
	case u.Status != "" && !u.Status.Valid():
		return "status is invalid"
	}
	return ""
}

func (h *handlers) createUser(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.UserCreate)
	if msg := validateUser(a.User); msg != "" {
		f := invalid(msg)
		h.toastError(ctx, "Could not create user", f)
		return []action.Action{action.UserCreateFailure{Failure: f}}
	}
	u, err := h.Users.CreateUser(ctx, a.User)
	if err != nil {
		f := failureOf(err, action.FailureNetwork)
		h.toastError(ctx, "Could not create user", f)
		return []action.Action{action.UserCreateFailure{Failure: f}}
	}
	h.toastSuccess(ctx, "User "+u.FullName()+" created")
	return []action.Action{
		action.UserCreateSuccess{User: u},
		action.RouterNavigated{Path: RouteUsers},
	}
}

func (h *handlers) updateUser(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.UserUpdate)
	var msg string
	switch {
	case a.ID == "":
		msg = "user id is required"
	case a.Changes.IsEmpty():
		msg = "no changes to save"
	case a.Changes.Role != nil && !a.Changes.Role.Valid():
		msg = "role is invalid"
	case a.Changes.Status != nil && !a.Changes.Status.Valid():
		msg = "status is invalid"
	case a.Changes.Email != nil && !strings.Contains(*a.Changes.Email, "@"):
		msg = "email is invalid"
	}
	if msg != "" {
		f := invalid(msg)
		h.toastError(ctx, "Could not update user", f)
		return []action.Action{action.UserUpdateFailure{ID: a.ID, Failure: f}}
	}

	u, err := h.Users.UpdateUser(ctx, a.ID, a.Changes)
	if err != nil {
		f := failureOf(err, action.FailureNetwork)
		h.toastError(ctx, "Could not update user", f)
		return []action.Action{action.UserUpdateFailure{ID: a.ID, Failure: f}}
	}
	h.toastSuccess(ctx, "User "+u.FullName()+" updated")
	return []action.Action{action.UserUpdateSuccess{User: u, RequestSeq: t.Seq()}}
}

func (h *handlers) deleteUser(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.UserDelete)
	if a.ID == "" {
		f := invalid("user id is required")
		h.toastError(ctx, "Could not delete user", f)
		return []action.Action{action.UserDeleteFailure{Failure: f}}
	}
	if err := h.Users.DeleteUser(ctx, a.ID); err != nil {
		f := failureOf(err, action.FailureNetwork)
		h.toastError(ctx, "Could not delete user", f)
		return []action.Action{action.UserDeleteFailure{ID: a.ID, Failure: f}}
	}
	h.toastSuccess(ctx, "User deleted")
	return []action.Action{
		action.UserDeleteSuccess{ID: a.ID},
		action.RouterNavigated{Path: RouteUsers},
	}
}
