package adapter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/fmdesk/internal/model"
)

// APIUser is the canonical wire shape of a user, as sent to the API.
type APIUser struct {
	ID         string `json:"id,omitempty"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	Avatar     string `json:"avatar,omitempty"`
	Department string `json:"department,omitempty"`
	JobTitle   string `json:"job_title,omitempty"`
	Location   string `json:"location,omitempty"`
	IsSSO      bool   `json:"is_sso"`
}

// RawUser holds every field alias the API has been seen to send.
//
// Alias precedence, first non-empty wins:
//
//	id:         id, user_id, userId, sub
//	email:      email, email_address, mail
//	first_name: first_name, firstName, given_name
//	last_name:  last_name, lastName, family_name, surname
//	role:       role, user_role, userRole
//	status:     status, account_status, accountStatus, state
//	avatar:     avatar, avatar_url, avatarUrl, picture
//	department: department, dept
//	job_title:  job_title, jobTitle, title
//	location:   location, office, site
//	is_sso:     is_sso, isSso, sso
//
// A payload carrying only "name" is split on its first space.
type RawUser struct {
	ID            *flexString `json:"id"`
	UserID        *flexString `json:"user_id"`
	UserIDCamel   *flexString `json:"userId"`
	Subject       *flexString `json:"sub"`
	Email         *flexString `json:"email"`
	EmailAddress  *flexString `json:"email_address"`
	Mail          *flexString `json:"mail"`
	FirstName     *flexString `json:"first_name"`
	FirstNameAlt  *flexString `json:"firstName"`
	GivenName     *flexString `json:"given_name"`
	LastName      *flexString `json:"last_name"`
	LastNameAlt   *flexString `json:"lastName"`
	FamilyName    *flexString `json:"family_name"`
	Surname       *flexString `json:"surname"`
	Name          *flexString `json:"name"`
	Role          *flexString `json:"role"`
	UserRole      *flexString `json:"user_role"`
	UserRoleAlt   *flexString `json:"userRole"`
	Status        *flexString `json:"status"`
	AccountStatus *flexString `json:"account_status"`
	AccountAlt    *flexString `json:"accountStatus"`
	State         *flexString `json:"state"`
	Avatar        *flexString `json:"avatar"`
	AvatarURL     *flexString `json:"avatar_url"`
	AvatarURLAlt  *flexString `json:"avatarUrl"`
	Picture       *flexString `json:"picture"`
	Department    *flexString `json:"department"`
	Dept          *flexString `json:"dept"`
	JobTitle      *flexString `json:"job_title"`
	JobTitleAlt   *flexString `json:"jobTitle"`
	Title         *flexString `json:"title"`
	Location      *flexString `json:"location"`
	Office        *flexString `json:"office"`
	Site          *flexString `json:"site"`
	IsSSO         *flexBool   `json:"is_sso"`
	IsSSOAlt      *flexBool   `json:"isSso"`
	SSO           *flexBool   `json:"sso"`
}

// Canonical resolves the aliases into the wire shape.
func (r RawUser) Canonical() APIUser {
	u := APIUser{
		ID:         firstString(r.ID, r.UserID, r.UserIDCamel, r.Subject),
		Email:      firstString(r.Email, r.EmailAddress, r.Mail),
		FirstName:  firstString(r.FirstName, r.FirstNameAlt, r.GivenName),
		LastName:   firstString(r.LastName, r.LastNameAlt, r.FamilyName, r.Surname),
		Role:       firstString(r.Role, r.UserRole, r.UserRoleAlt),
		Status:     firstString(r.Status, r.AccountStatus, r.AccountAlt, r.State),
		Avatar:     firstString(r.Avatar, r.AvatarURL, r.AvatarURLAlt, r.Picture),
		Department: firstString(r.Department, r.Dept),
		JobTitle:   firstString(r.JobTitle, r.JobTitleAlt, r.Title),
		Location:   firstString(r.Location, r.Office, r.Site),
		IsSSO:      firstBool(r.IsSSO, r.IsSSOAlt, r.SSO),
	}
	if u.FirstName == "" && u.LastName == "" {
		if name := strings.TrimSpace(firstString(r.Name)); name != "" {
			first, last, _ := strings.Cut(name, " ")
			u.FirstName, u.LastName = first, strings.TrimSpace(last)
		}
	}
	return u
}

// UserFromAPI normalizes a wire user into the entity model.
func UserFromAPI(w APIUser) model.User {
	return model.User{
		ID:         w.ID,
		Email:      strings.TrimSpace(w.Email),
		FirstName:  w.FirstName,
		LastName:   w.LastName,
		Role:       NormalizeRole(w.Role),
		Status:     NormalizeUserStatus(w.Status),
		Avatar:     w.Avatar,
		Department: w.Department,
		JobTitle:   w.JobTitle,
		Location:   w.Location,
		IsSSO:      w.IsSSO,
	}
}

// UserToAPI renders u in the canonical wire shape.
func UserToAPI(u model.User) APIUser {
	return APIUser{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       string(u.Role),
		Status:     string(u.Status),
		Avatar:     u.Avatar,
		Department: u.Department,
		JobTitle:   u.JobTitle,
		Location:   u.Location,
		IsSSO:      u.IsSSO,
	}
}

// DecodeUser parses one user payload in any known shape.
func DecodeUser(data []byte) (model.User, error) {
	var raw RawUser
	if err := json.Unmarshal(unwrapData(data), &raw); err != nil {
		return model.User{}, fmt.Errorf("decode user: %w", err)
	}
	return UserFromAPI(raw.Canonical()), nil
}

// DecodeUsers parses a user list. Both a bare array and an object wrapping
// the array under "data" (or "users") are accepted.
func DecodeUsers(data []byte) ([]model.User, error) {
	var raws []RawUser
	if err := decodeList(data, &raws, "users"); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	out := make([]model.User, 0, len(raws))
	for _, raw := range raws {
		out = append(out, UserFromAPI(raw.Canonical()))
	}
	return out, nil
}
