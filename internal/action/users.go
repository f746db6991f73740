package action

import (
	"time"

	"github.com/roach88/fmdesk/internal/model"
)

const (
	TypeUsersLoad         Type = "[Users] Load"
	TypeUsersLoadSuccess  Type = "[Users] Load Success"
	TypeUsersLoadFailure  Type = "[Users] Load Failure"
	TypeUsersLoadCached   Type = "[Users] Load Cached"
	TypeUserLoad          Type = "[Users] Load One"
	TypeUserLoadSuccess   Type = "[Users] Load One Success"
	TypeUserLoadFailure   Type = "[Users] Load One Failure"
	TypeUserCreate        Type = "[Users] Create"
	TypeUserCreateSuccess Type = "[Users] Create Success"
	TypeUserCreateFailure Type = "[Users] Create Failure"
	TypeUserUpdate        Type = "[Users] Update"
	TypeUserUpdateSuccess Type = "[Users] Update Success"
	TypeUserUpdateFailure Type = "[Users] Update Failure"
	TypeUserDelete        Type = "[Users] Delete"
	TypeUserDeleteSuccess Type = "[Users] Delete Success"
	TypeUserDeleteFailure Type = "[Users] Delete Failure"
	TypeUserSelect        Type = "[Users] Select"
	TypeUsersSetFilters   Type = "[Users] Set Filters"
	TypeUsersClearFilters Type = "[Users] Clear Filters"
)

// UsersLoad requests the user list. Force bypasses the freshness gate.
type UsersLoad struct {
	Force bool `json:"force,omitempty"`
}

type UsersLoadSuccess struct {
	Users      []model.User `json:"users"`
	LoadedAt   time.Time    `json:"loaded_at"`
	RequestSeq int64        `json:"request_seq"`
}

type UsersLoadFailure struct {
	Failure    Failure `json:"failure"`
	RequestSeq int64   `json:"request_seq"`
}

// UsersLoadCached completes a load that the freshness gate skipped.
type UsersLoadCached struct{}

type UserLoad struct {
	ID string `json:"id"`
}

type UserLoadSuccess struct {
	User       model.User `json:"user"`
	RequestSeq int64      `json:"request_seq"`
}

type UserLoadFailure struct {
	ID      string  `json:"id"`
	Failure Failure `json:"failure"`
}

type UserCreate struct {
	User model.User `json:"user"`
}

type UserCreateSuccess struct {
	User model.User `json:"user"`
}

type UserCreateFailure struct {
	Failure Failure `json:"failure"`
}

// UserUpdate sends a partial update. State changes only on UserUpdateSuccess.
type UserUpdate struct {
	ID      string            `json:"id"`
	Changes model.UserChanges `json:"changes"`
}

type UserUpdateSuccess struct {
	User       model.User `json:"user"`
	RequestSeq int64      `json:"request_seq"`
}

type UserUpdateFailure struct {
	ID      string  `json:"id"`
	Failure Failure `json:"failure"`
}

type UserDelete struct {
	ID string `json:"id"`
}

type UserDeleteSuccess struct {
	ID string `json:"id"`
}

type UserDeleteFailure struct {
	ID      string  `json:"id"`
	Failure Failure `json:"failure"`
}

// UserSelect marks a user as selected. An empty ID clears the selection.
type UserSelect struct {
	ID string `json:"id"`
}

type UsersSetFilters struct {
	Filters model.UserFilters `json:"filters"`
}

type UsersClearFilters struct{}

func (UsersLoad) Type() Type         { return TypeUsersLoad }
func (UsersLoadSuccess) Type() Type  { return TypeUsersLoadSuccess }
func (UsersLoadFailure) Type() Type  { return TypeUsersLoadFailure }
func (UsersLoadCached) Type() Type   { return TypeUsersLoadCached }
func (UserLoad) Type() Type          { return TypeUserLoad }
func (UserLoadSuccess) Type() Type   { return TypeUserLoadSuccess }
func (UserLoadFailure) Type() Type   { return TypeUserLoadFailure }
func (UserCreate) Type() Type        { return TypeUserCreate }
func (UserCreateSuccess) Type() Type { return TypeUserCreateSuccess }
func (UserCreateFailure) Type() Type { return TypeUserCreateFailure }
func (UserUpdate) Type() Type        { return TypeUserUpdate }
func (UserUpdateSuccess) Type() Type { return TypeUserUpdateSuccess }
func (UserUpdateFailure) Type() Type { return TypeUserUpdateFailure }
func (UserDelete) Type() Type        { return TypeUserDelete }
func (UserDeleteSuccess) Type() Type { return TypeUserDeleteSuccess }
func (UserDeleteFailure) Type() Type { return TypeUserDeleteFailure }
func (UserSelect) Type() Type        { return TypeUserSelect }
func (UsersSetFilters) Type() Type   { return TypeUsersSetFilters }
func (UsersClearFilters) Type() Type { return TypeUsersClearFilters }
