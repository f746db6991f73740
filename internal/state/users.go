package state

import (
	"strings"
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/entity"
	"github.com/roach88/fmdesk/internal/model"
)

// UsersState is the users slice of the entity store.
type UsersState struct {
	Entities   *entity.Collection[model.User] `json:"entities"`
	SelectedID string                         `json:"selected_id,omitempty"`
	Loading    bool                           `json:"loading"`
	Error      string                         `json:"error,omitempty"`
	Filters    model.UserFilters              `json:"filters"`
	// LoadedAt is when the last list load landed. Zero means never.
	LoadedAt   time.Time        `json:"loaded_at"`
	LoadSeq    int64            `json:"load_seq,omitempty"`
	UpdateSeqs map[string]int64 `json:"update_seqs,omitempty"`
}

// NewUserCollection returns an empty user collection ordered by last name,
// first name, then id.
func NewUserCollection() *entity.Collection[model.User] {
	return entity.New(func(u model.User) string { return u.ID }, userLess)
}

func userLess(a, b model.User) bool {
	if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
		return c < 0
	}
	if c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)); c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func (s UsersState) failed(f action.Failure) UsersState {
	s.Loading = false
	s.Error = f.String()
	return s
}

func (s UsersState) pending() UsersState {
	s.Loading = true
	s.Error = ""
	return s
}

func reduceUsers(s UsersState, a action.Action) UsersState {
	if s.Entities == nil {
		s.Entities = NewUserCollection()
	}

	switch a := a.(type) {
	case action.UsersLoad, action.UserLoad, action.UserCreate, action.UserUpdate, action.UserDelete:
		return s.pending()

	case action.UsersLoadSuccess:
		if staleLoad(s.LoadSeq, a.RequestSeq) {
			return s
		}
		s.Entities = s.Entities.SetAll(a.Users)
		s.LoadedAt = a.LoadedAt
		s.LoadSeq = advance(s.LoadSeq, a.RequestSeq)
		s.Loading = false
		s.Error = ""
		return s

	case action.UsersLoadFailure:
		if staleLoad(s.LoadSeq, a.RequestSeq) {
			return s
		}
		s.LoadSeq = advance(s.LoadSeq, a.RequestSeq)
		return s.failed(a.Failure)

	case action.UsersLoadCached:
		s.Loading = false
		return s

	case action.UserLoadSuccess:
		s.Loading = false
		if staleEntity(s.UpdateSeqs, a.User.ID, a.RequestSeq) {
			return s
		}
		s.Entities = s.Entities.UpsertOne(a.User)
		s.UpdateSeqs = withSeq(s.UpdateSeqs, a.User.ID, a.RequestSeq)
		s.Error = ""
		return s

	case action.UserLoadFailure:
		return s.failed(a.Failure)

	case action.UserCreateSuccess:
		s.Entities = s.Entities.UpsertOne(a.User)
		s.Loading = false
		s.Error = ""
		return s

	case action.UserCreateFailure:
		return s.failed(a.Failure)

	case action.UserUpdateSuccess:
		s.Loading = false
		// An update for a user that is gone (deleted meanwhile) is dropped.
		if !s.Entities.Has(a.User.ID) || staleEntity(s.UpdateSeqs, a.User.ID, a.RequestSeq) {
			return s
		}
		s.Entities = s.Entities.UpsertOne(a.User)
		s.UpdateSeqs = withSeq(s.UpdateSeqs, a.User.ID, a.RequestSeq)
		s.Error = ""
		return s

	case action.UserUpdateFailure:
		return s.failed(a.Failure)

	case action.UserDeleteSuccess:
		s.Entities = s.Entities.RemoveOne(a.ID)
		s.UpdateSeqs = withoutSeq(s.UpdateSeqs, a.ID)
		if s.SelectedID == a.ID {
			s.SelectedID = ""
		}
		s.Loading = false
		s.Error = ""
		return s

	case action.UserDeleteFailure:
		return s.failed(a.Failure)

	case action.UserSelect:
		s.SelectedID = a.ID
		return s

	case action.UsersSetFilters:
		s.Filters = a.Filters
		return s

	case action.UsersClearFilters:
		s.Filters = model.UserFilters{}
		return s
	}
	return s
}
