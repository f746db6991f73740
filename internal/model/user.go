package model

// Role is the access role of a facility user.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleFacilityManager Role = "facility_manager"
	RoleStaff           Role = "staff"
	RoleGuest           Role = "guest"
)

// DefaultRole is applied when the API reports a role we do not know.
const DefaultRole = RoleGuest

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleFacilityManager, RoleStaff, RoleGuest}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleFacilityManager, RoleStaff, RoleGuest:
		return true
	}
	return false
}

// UserStatus is the lifecycle status of a user account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusPending  UserStatus = "pending"
)

// DefaultUserStatus is applied when the API reports an unknown status.
const DefaultUserStatus = UserStatusPending

// UserStatuses lists every valid status in display order.
var UserStatuses = []UserStatus{UserStatusActive, UserStatusInactive, UserStatusPending}

// Valid reports whether s is one of the enumerated statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusPending:
		return true
	}
	return false
}

// User is a facility user as held in the entity store.
type User struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       Role       `json:"role"`
	Status     UserStatus `json:"status"`
	Avatar     string     `json:"avatar,omitempty"`
	Department string     `json:"department,omitempty"`
	JobTitle   string     `json:"job_title,omitempty"`
	Location   string     `json:"location,omitempty"`
	IsSSO      bool       `json:"is_sso"`
}

// FullName returns "First Last", trimmed when either part is missing.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserChanges is a partial update. Nil fields are left untouched.
type UserChanges struct {
	Email      *string     `json:"email,omitempty"`
	FirstName  *string     `json:"first_name,omitempty"`
	LastName   *string     `json:"last_name,omitempty"`
	Role       *Role       `json:"role,omitempty"`
	Status     *UserStatus `json:"status,omitempty"`
	Avatar     *string     `json:"avatar,omitempty"`
	Department *string     `json:"department,omitempty"`
	JobTitle   *string     `json:"job_title,omitempty"`
	Location   *string     `json:"location,omitempty"`
}

// Apply returns a copy of u with the non-nil changes merged in.
func (c UserChanges) Apply(u User) User {
	if c.Email != nil {
		u.Email = *c.Email
	}
	if c.FirstName != nil {
		u.FirstName = *c.FirstName
	}
	if c.LastName != nil {
		u.LastName = *c.LastName
	}
	if c.Role != nil {
		u.Role = *c.Role
	}
	if c.Status != nil {
		u.Status = *c.Status
	}
	if c.Avatar != nil {
		u.Avatar = *c.Avatar
	}
	if c.Department != nil {
		u.Department = *c.Department
	}
	if c.JobTitle != nil {
		u.JobTitle = *c.JobTitle
	}
	if c.Location != nil {
		u.Location = *c.Location
	}
	return u
}

// IsEmpty reports whether no field is set.
func (c UserChanges) IsEmpty() bool {
	return c == UserChanges{}
}
