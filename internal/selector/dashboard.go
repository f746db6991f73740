package selector

import (
	"github.com/roach88/fmdesk/internal/entity"
	"github.com/roach88/fmdesk/internal/model"
)

// Dashboard section ids.
const (
	SectionWelcome        = "welcome"
	SectionRequests       = "service-requests"
	SectionRecentActivity = "recent-activity"
	SectionCounter        = "counter"
	SectionUserManagement = "user-management"
	SectionSystemStats    = "system-stats"
)

// recentLimit caps the recent activity widget.
const recentLimit = 5

// Section is one widget on the dashboard.
type Section struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Dashboard is the view model of the landing page. Users is only populated
// for admins, together with the admin-only sections.
type Dashboard struct {
	Greeting       string                 `json:"greeting"`
	IsAdmin        bool                   `json:"is_admin"`
	Sections       []Section              `json:"sections"`
	Requests       RequestStats           `json:"requests"`
	MyOpenRequests int                    `json:"my_open_requests"`
	RecentRequests []model.ServiceRequest `json:"recent_requests"`
	Users          *UserStats             `json:"users,omitempty"`
	Counter        int                    `json:"counter"`
}

// Has reports whether the dashboard shows section id.
func (d *Dashboard) Has(id string) bool {
	for _, s := range d.Sections {
		if s.ID == id {
			return true
		}
	}
	return false
}

type dashboardInputs struct {
	user     *model.User
	users    *entity.Collection[model.User]
	requests *entity.Collection[model.ServiceRequest]
	counter  int
}

func greeting(u *model.User) string {
	switch {
	case u == nil:
		return "Welcome"
	case u.FirstName != "":
		return "Welcome, " + u.FirstName
	case u.FullName() != "":
		return "Welcome, " + u.FullName()
	case u.Email != "":
		return "Welcome, " + u.Email
	}
	return "Welcome"
}

func buildDashboard(in dashboardInputs) *Dashboard {
	d := &Dashboard{
		Greeting: greeting(in.user),
		IsAdmin:  in.user != nil && in.user.IsAdmin(),
		Sections: []Section{
			{ID: SectionWelcome, Title: "Welcome"},
			{ID: SectionRequests, Title: "Service Requests"},
			{ID: SectionRecentActivity, Title: "Recent Activity"},
			{ID: SectionCounter, Title: "Counter"},
		},
		Requests: *requestStats(in.requests),
		Counter:  in.counter,
	}

	reqs := allRequests(in.requests)
	d.RecentRequests = reqs[:min(recentLimit, len(reqs))]
	if in.user != nil {
		for _, r := range reqs {
			if r.RequestedBy == in.user.ID && r.Status.Open() {
				d.MyOpenRequests++
			}
		}
	}

	if d.IsAdmin {
		d.Sections = append(d.Sections,
			Section{ID: SectionUserManagement, Title: "User Management"},
			Section{ID: SectionSystemStats, Title: "System Stats"},
		)
		d.Users = userStats(in.users)
	}
	return d
}
