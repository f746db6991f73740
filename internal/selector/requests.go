package selector

import (
	"cmp"
	"slices"
	"strings"

	"github.com/roach88/fmdesk/internal/entity"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/state"
)

// RequestStats counts service requests per status and priority.
type RequestStats struct {
	Total      int                         `json:"total"`
	Open       int                         `json:"open"`
	Urgent     int                         `json:"urgent"`
	ByStatus   map[model.RequestStatus]int `json:"by_status"`
	ByPriority map[model.Priority]int      `json:"by_priority"`
}

func requestCollection(s state.State) *entity.Collection[model.ServiceRequest] {
	return s.Requests.Entities
}
func requestFilters(s state.State) model.RequestFilters { return s.Requests.Filters }
func selectedRequestID(s state.State) string            { return s.Requests.SelectedID }

func RequestsLoading(s state.State) bool                { return s.Requests.Loading }
func RequestsError(s state.State) string                { return s.Requests.Error }
func RequestFilters(s state.State) model.RequestFilters { return s.Requests.Filters }

// RequestByID looks a service request up in the entity store.
func RequestByID(s state.State, id string) (model.ServiceRequest, bool) {
	if s.Requests.Entities == nil {
		return model.ServiceRequest{}, false
	}
	return s.Requests.Entities.Get(id)
}

func allRequests(c *entity.Collection[model.ServiceRequest]) []model.ServiceRequest {
	if c == nil {
		return []model.ServiceRequest{}
	}
	return c.All()
}

func filterRequests(c *entity.Collection[model.ServiceRequest], f model.RequestFilters) []model.ServiceRequest {
	q := fold(f.Search)
	out := []model.ServiceRequest{}
	for _, r := range allRequests(c) {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Priority != "" && r.Priority != f.Priority {
			continue
		}
		if !matches(q, r.Title, r.Description, r.RequestedBy, r.AssignedTo) {
			continue
		}
		out = append(out, r)
	}
	if f.SortKey != "" {
		sortRequests(out, f.SortKey, f.Direction)
	}
	return out
}

// sortRequests orders by key. Without a direction, dates and priorities sort
// newest and most urgent first, everything else ascending.
func sortRequests(reqs []model.ServiceRequest, key model.RequestSortKey, dir model.SortDirection) {
	if dir == "" {
		dir = model.SortAsc
		if key == model.RequestSortDate || key == model.RequestSortPriority {
			dir = model.SortDesc
		}
	}
	compare := func(a, b model.ServiceRequest) int {
		switch key {
		case model.RequestSortPriority:
			return cmp.Compare(a.Priority.Rank(), b.Priority.Rank())
		case model.RequestSortStatus:
			return cmp.Compare(slices.Index(model.RequestStatuses, a.Status), slices.Index(model.RequestStatuses, b.Status))
		case model.RequestSortTitle:
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		default:
			return a.DateCreated.Compare(b.DateCreated)
		}
	}
	slices.SortStableFunc(reqs, func(a, b model.ServiceRequest) int {
		if dir == model.SortDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func requestStats(c *entity.Collection[model.ServiceRequest]) *RequestStats {
	st := &RequestStats{
		ByStatus:   map[model.RequestStatus]int{},
		ByPriority: map[model.Priority]int{},
	}
	for _, r := range allRequests(c) {
		st.Total++
		st.ByStatus[r.Status]++
		st.ByPriority[r.Priority]++
		if r.Status.Open() {
			st.Open++
			if r.Priority == model.PriorityUrgent {
				st.Urgent++
			}
		}
	}
	return st
}

func selectedRequest(c *entity.Collection[model.ServiceRequest], id string) *model.ServiceRequest {
	if c == nil || id == "" {
		return nil
	}
	r, ok := c.Get(id)
	if !ok {
		return nil
	}
	return &r
}
