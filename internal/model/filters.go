package model

// SortDirection orders a derived list.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// UserSortKey selects the field a user list is ordered by.
type UserSortKey string

const (
	UserSortName   UserSortKey = "name"
	UserSortEmail  UserSortKey = "email"
	UserSortRole   UserSortKey = "role"
	UserSortStatus UserSortKey = "status"
)

// UserFilters is transient query state for the users screen.
// Zero values mean "no constraint".
type UserFilters struct {
	Search    string        `json:"search,omitempty"`
	Role      Role          `json:"role,omitempty"`
	Status    UserStatus    `json:"status,omitempty"`
	SortKey   UserSortKey   `json:"sort_key,omitempty"`
	Direction SortDirection `json:"direction,omitempty"`
}

// RequestSortKey selects the field a request list is ordered by.
type RequestSortKey string

const (
	RequestSortDate     RequestSortKey = "date"
	RequestSortPriority RequestSortKey = "priority"
	RequestSortStatus   RequestSortKey = "status"
	RequestSortTitle    RequestSortKey = "title"
)

// RequestFilters is transient query state for the service requests screen.
type RequestFilters struct {
	Search    string         `json:"search,omitempty"`
	Status    RequestStatus  `json:"status,omitempty"`
	Priority  Priority       `json:"priority,omitempty"`
	SortKey   RequestSortKey `json:"sort_key,omitempty"`
	Direction SortDirection  `json:"direction,omitempty"`
}
