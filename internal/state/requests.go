package state

import (
	"time"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/entity"
	"github.com/roach88/fmdesk/internal/model"
)

// RequestsState is the service requests slice of the entity store.
type RequestsState struct {
	Entities   *entity.Collection[model.ServiceRequest] `json:"entities"`
	SelectedID string                                   `json:"selected_id,omitempty"`
	Loading    bool                                     `json:"loading"`
	Error      string                                   `json:"error,omitempty"`
	Filters    model.RequestFilters                     `json:"filters"`
	LoadedAt   time.Time                                `json:"loaded_at"`
	LoadSeq    int64                                    `json:"load_seq,omitempty"`
	UpdateSeqs map[string]int64                         `json:"update_seqs,omitempty"`
}

// NewRequestCollection returns an empty request collection, newest first.
func NewRequestCollection() *entity.Collection[model.ServiceRequest] {
	return entity.New(func(r model.ServiceRequest) string { return r.ID }, requestLess)
}

func requestLess(a, b model.ServiceRequest) bool {
	if !a.DateCreated.Equal(b.DateCreated) {
		return a.DateCreated.After(b.DateCreated)
	}
	return a.ID < b.ID
}

func (s RequestsState) failed(f action.Failure) RequestsState {
	s.Loading = false
	s.Error = f.String()
	return s
}

func (s RequestsState) pending() RequestsState {
	s.Loading = true
	s.Error = ""
	return s
}

func reduceRequests(s RequestsState, a action.Action) RequestsState {
	if s.Entities == nil {
		s.Entities = NewRequestCollection()
	}

	switch a := a.(type) {
	case action.RequestsLoad, action.RequestLoad, action.RequestCreate, action.RequestUpdate, action.RequestDelete:
		return s.pending()

	case action.RequestsLoadSuccess:
		if staleLoad(s.LoadSeq, a.RequestSeq) {
			return s
		}
		s.Entities = s.Entities.SetAll(a.Requests)
		s.LoadedAt = a.LoadedAt
		s.LoadSeq = advance(s.LoadSeq, a.RequestSeq)
		s.Loading = false
		s.Error = ""
		return s

	case action.RequestsLoadFailure:
		if staleLoad(s.LoadSeq, a.RequestSeq) {
			return s
		}
		s.LoadSeq = advance(s.LoadSeq, a.RequestSeq)
		return s.failed(a.Failure)

	case action.RequestLoadSuccess:
		s.Loading = false
		if staleEntity(s.UpdateSeqs, a.Request.ID, a.RequestSeq) {
			return s
		}
		s.Entities = s.Entities.UpsertOne(a.Request)
		s.UpdateSeqs = withSeq(s.UpdateSeqs, a.Request.ID, a.RequestSeq)
		s.Error = ""
		return s

	case action.RequestLoadFailure:
		return s.failed(a.Failure)

	case action.RequestCreateSuccess:
		s.Entities = s.Entities.UpsertOne(a.Request)
		s.Loading = false
		s.Error = ""
		return s

	case action.RequestCreateFailure:
		return s.failed(a.Failure)

	case action.RequestUpdateSuccess:
		s.Loading = false
		if !s.Entities.Has(a.Request.ID) || staleEntity(s.UpdateSeqs, a.Request.ID, a.RequestSeq) {
			return s
		}
		s.Entities = s.Entities.UpsertOne(a.Request)
		s.UpdateSeqs = withSeq(s.UpdateSeqs, a.Request.ID, a.RequestSeq)
		s.Error = ""
		return s

	case action.RequestUpdateFailure:
		return s.failed(a.Failure)

	case action.RequestDeleteSuccess:
		s.Entities = s.Entities.RemoveOne(a.ID)
		s.UpdateSeqs = withoutSeq(s.UpdateSeqs, a.ID)
		if s.SelectedID == a.ID {
			s.SelectedID = ""
		}
		s.Loading = false
		s.Error = ""
		return s

	case action.RequestDeleteFailure:
		return s.failed(a.Failure)

	case action.RequestSelect:
		s.SelectedID = a.ID
		return s

	case action.RequestsSetFilters:
		s.Filters = a.Filters
		return s

	case action.RequestsClearFilters:
		s.Filters = model.RequestFilters{}
		return s
	}
	return s
}
