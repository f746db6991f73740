package selector

import (
	"cmp"
	"slices"
	"strings"

	"github.com/roach88/fmdesk/internal/entity"
	"github.com/roach88/fmdesk/internal/model"
	"github.com/roach88/fmdesk/internal/state"
)

// UserStats counts users per role and status.
type UserStats struct {
	Total    int                      `json:"total"`
	Active   int                      `json:"active"`
	ByRole   map[model.Role]int       `json:"by_role"`
	ByStatus map[model.UserStatus]int `json:"by_status"`
}

func userCollection(s state.State) *entity.Collection[model.User] { return s.Users.Entities }
func userFilters(s state.State) model.UserFilters                 { return s.Users.Filters }
func selectedUserID(s state.State) string                         { return s.Users.SelectedID }

func UsersLoading(s state.State) bool             { return s.Users.Loading }
func UsersError(s state.State) string             { return s.Users.Error }
func UserFilters(s state.State) model.UserFilters { return s.Users.Filters }

// UserByID looks a user up in the entity store.
func UserByID(s state.State, id string) (model.User, bool) {
	if s.Users.Entities == nil {
		return model.User{}, false
	}
	return s.Users.Entities.Get(id)
}

func allUsers(c *entity.Collection[model.User]) []model.User {
	if c == nil {
		return []model.User{}
	}
	return c.All()
}

// filterUsers applies f to the collection. The result keeps collection order
// unless f names a sort key.
func filterUsers(c *entity.Collection[model.User], f model.UserFilters) []model.User {
	q := fold(f.Search)
	out := []model.User{}
	for _, u := range allUsers(c) {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if !matches(q, u.FullName(), u.Email, u.Department, u.JobTitle) {
			continue
		}
		out = append(out, u)
	}
	if f.SortKey != "" {
		sortUsers(out, f.SortKey, f.Direction)
	}
	return out
}

func sortUsers(users []model.User, key model.UserSortKey, dir model.SortDirection) {
	compare := func(a, b model.User) int {
		switch key {
		case model.UserSortEmail:
			return strings.Compare(strings.ToLower(a.Email), strings.ToLower(b.Email))
		case model.UserSortRole:
			return cmp.Compare(slices.Index(model.Roles, a.Role), slices.Index(model.Roles, b.Role))
		case model.UserSortStatus:
			return cmp.Compare(slices.Index(model.UserStatuses, a.Status), slices.Index(model.UserStatuses, b.Status))
		default:
			if c := strings.Compare(fold(a.LastName), fold(b.LastName)); c != 0 {
				return c
			}
			return strings.Compare(fold(a.FirstName), fold(b.FirstName))
		}
	}
	slices.SortStableFunc(users, func(a, b model.User) int {
		if dir == model.SortDesc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func userStats(c *entity.Collection[model.User]) *UserStats {
	st := &UserStats{
		ByRole:   map[model.Role]int{},
		ByStatus: map[model.UserStatus]int{},
	}
	for _, u := range allUsers(c) {
		st.Total++
		st.ByRole[u.Role]++
		st.ByStatus[u.Status]++
		if u.Status == model.UserStatusActive {
			st.Active++
		}
	}
	return st
}

func selectedUser(c *entity.Collection[model.User], id string) *model.User {
	if c == nil || id == "" {
		return nil
	}
	u, ok := c.Get(id)
	if !ok {
		return nil
	}
	return &u
}
