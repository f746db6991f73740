package selector

import (
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/state"
)

// Selectors holds the memoized selectors of one state container.
type Selectors struct {
	AllUsers      Func[[]model.User]
	FilteredUsers Func[[]model.User]
	SelectedUser  Func[*model.User]
	UserStats     Func[*UserStats]

	AllRequests      Func[[]model.ServiceRequest]
	FilteredRequests Func[[]model.ServiceRequest]
	SelectedRequest  Func[*model.ServiceRequest]
	RequestStats     Func[*RequestStats]

	Dashboard Func[*Dashboard]
}

// New builds a fresh set of selectors with empty caches.
func New() *Selectors {
	return &Selectors{
		AllUsers:      Memo1(userCollection, allUsers),
		FilteredUsers: Memo2(userCollection, userFilters, filterUsers),
		SelectedUser:  Memo2(userCollection, selectedUserID, selectedUser),
		UserStats:     Memo1(userCollection, userStats),

		AllRequests:      Memo1(requestCollection, allRequests),
		FilteredRequests: Memo2(requestCollection, requestFilters, filterRequests),
		SelectedRequest:  Memo2(requestCollection, selectedRequestID, selectedRequest),
		RequestStats:     Memo1(requestCollection, requestStats),

		Dashboard: Memo1(func(s state.State) dashboardInputs {
			return dashboardInputs{
				user:     CurrentUser(s),
				users:    s.Users.Entities,
				requests: s.Requests.Entities,
				counter:  s.Counter.Value,
			}
		}, buildDashboard),
	}
}

// OpenRequestCount is the number of requests that still need work.
func (sel *Selectors) OpenRequestCount(s state.State) int {
	return sel.RequestStats(s).Open
}
