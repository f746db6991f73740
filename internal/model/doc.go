// Package model defines the domain records held by the fmdesk state container.
//
// This package contains type definitions and enum validation only. It imports
// nothing internal so every other package can depend on it.
//
// Enumerated fields (Role, UserStatus, RequestStatus, Priority, Theme) are
// typed strings. A value read from the outside world is only trusted after it
// passes through the adapter package, which maps unknown vocabulary onto the
// documented defaults below:
//
//	Role          -> RoleGuest
//	UserStatus    -> UserStatusPending
//	RequestStatus -> RequestStatusNew
//	Priority      -> PriorityMedium
//	Theme         -> ThemeSystem
package model
