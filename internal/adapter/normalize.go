// Package adapter translates between the facility API's wire payloads and the
// fmdesk entity model.
//
// The API is inconsistent: the same field arrives under several names and
// enums arrive in several vocabularies. Decoding is a two-step affair. A Raw*
// struct captures every known alias of every field; Canonical resolves the
// aliases in a fixed precedence order into the API* wire shape; *FromAPI then
// normalizes enums into model values. *ToAPI is the inverse of *FromAPI for
// every valid entity.
//
// Unknown enum values never fail decoding. They fall back to the model
// default and log a warning.
package adapter

import (
	"log/slog"
	"strings"

	"github.com/roach88/fmdesk/internal/model"
)

var requestStatusTable = map[string]model.RequestStatus{
	"new":       model.RequestStatusNew,
	"open":      model.RequestStatusNew,
	"pending":   model.RequestStatusNew,
	"submitted": model.RequestStatusNew,

	"in-progress": model.RequestStatusInProgress,
	"inprogress":  model.RequestStatusInProgress,
	"assigned":    model.RequestStatusInProgress,
	"active":      model.RequestStatusInProgress,
	"working":     model.RequestStatusInProgress,

	"completed": model.RequestStatusCompleted,
	"complete":  model.RequestStatusCompleted,
	"done":      model.RequestStatusCompleted,
	"closed":    model.RequestStatusCompleted,
	"resolved":  model.RequestStatusCompleted,

	"cancelled": model.RequestStatusCancelled,
	"canceled":  model.RequestStatusCancelled,
	"rejected":  model.RequestStatusCancelled,
}

var priorityTable = map[string]model.Priority{
	"low":       model.PriorityLow,
	"minor":     model.PriorityLow,
	"medium":    model.PriorityMedium,
	"normal":    model.PriorityMedium,
	"moderate":  model.PriorityMedium,
	"high":      model.PriorityHigh,
	"major":     model.PriorityHigh,
	"urgent":    model.PriorityUrgent,
	"critical":  model.PriorityUrgent,
	"emergency": model.PriorityUrgent,
}

var roleTable = map[string]model.Role{
	"admin":            model.RoleAdmin,
	"administrator":    model.RoleAdmin,
	"facility_manager": model.RoleFacilityManager,
	"manager":          model.RoleFacilityManager,
	"staff":            model.RoleStaff,
	"employee":         model.RoleStaff,
	"technician":       model.RoleStaff,
	"guest":            model.RoleGuest,
	"viewer":           model.RoleGuest,
}

var userStatusTable = map[string]model.UserStatus{
	"active":    model.UserStatusActive,
	"enabled":   model.UserStatusActive,
	"inactive":  model.UserStatusInactive,
	"disabled":  model.UserStatusInactive,
	"suspended": model.UserStatusInactive,
	"pending":   model.UserStatusPending,
	"invited":   model.UserStatusPending,
}

// fold lowercases and trims v, then maps the separators '_' and ' ' to sep.
func fold(v string, sep string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	return strings.NewReplacer("_", sep, " ", sep, "-", sep).Replace(v)
}

func lookup[T ~string](table map[string]T, key, raw string, def T, kind string) T {
	if v, ok := table[key]; ok {
		return v
	}
	if strings.TrimSpace(raw) != "" {
		slog.Warn("unknown enum value, using default", "kind", kind, "value", raw, "default", string(def))
	}
	return def
}

// NormalizeStatus maps an API service request status to the model vocabulary.
// Unmapped values become model.DefaultRequestStatus.
func NormalizeStatus(raw string) model.RequestStatus {
	return lookup(requestStatusTable, fold(raw, "-"), raw, model.DefaultRequestStatus, "request_status")
}

// NormalizePriority maps an API priority. Unmapped values become
// model.DefaultPriority.
func NormalizePriority(raw string) model.Priority {
	return lookup(priorityTable, fold(raw, "-"), raw, model.DefaultPriority, "priority")
}

// NormalizeRole maps an API role. Unmapped values become model.DefaultRole.
func NormalizeRole(raw string) model.Role {
	return lookup(roleTable, fold(raw, "_"), raw, model.DefaultRole, "role")
}

// NormalizeUserStatus maps an API account status. Unmapped values become
// model.DefaultUserStatus.
func NormalizeUserStatus(raw string) model.UserStatus {
	return lookup(userStatusTable, fold(raw, "_"), raw, model.DefaultUserStatus, "user_status")
}
