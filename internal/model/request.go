package model

import "time"

// RequestStatus is the workflow status of a service request.
type RequestStatus string

const (
	RequestStatusNew        RequestStatus = "new"
	RequestStatusInProgress RequestStatus = "in-progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusCancelled  RequestStatus = "cancelled"
)

// DefaultRequestStatus is applied to unmapped API statuses.
const DefaultRequestStatus = RequestStatusNew

// RequestStatuses lists every valid status in workflow order.
var RequestStatuses = []RequestStatus{
	RequestStatusNew,
	RequestStatusInProgress,
	RequestStatusCompleted,
	RequestStatusCancelled,
}

// Valid reports whether s is one of the enumerated statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusNew, RequestStatusInProgress, RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// Open reports whether the request still needs work.
func (s RequestStatus) Open() bool {
	return s == RequestStatusNew || s == RequestStatusInProgress
}

// Priority is the urgency of a service request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// DefaultPriority is applied to unmapped API priorities.
const DefaultPriority = PriorityMedium

// Priorities lists every valid priority from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is one of the enumerated priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities; higher is more urgent. Unknown values rank 0.
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if v == p {
			return i + 1
		}
	}
	return 0
}

// ServiceRequest is a facility service request as held in the entity store.
type ServiceRequest struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      RequestStatus `json:"status"`
	Priority    Priority      `json:"priority"`
	DateCreated time.Time     `json:"date_created"`
	RequestedBy string        `json:"requested_by"`
	AssignedTo  string        `json:"assigned_to,omitempty"`
}

// ServiceRequestChanges is a partial update. Nil fields are left untouched.
type ServiceRequestChanges struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *RequestStatus `json:"status,omitempty"`
	Priority    *Priority      `json:"priority,omitempty"`
	AssignedTo  *string        `json:"assigned_to,omitempty"`
}

// Apply returns a copy of r with the non-nil changes merged in.
func (c ServiceRequestChanges) Apply(r ServiceRequest) ServiceRequest {
	if c.Title != nil {
		r.Title = *c.Title
	}
	if c.Description != nil {
		r.Description = *c.Description
	}
	if c.Status != nil {
		r.Status = *c.Status
	}
	if c.Priority != nil {
		r.Priority = *c.Priority
	}
	if c.AssignedTo != nil {
		r.AssignedTo = *c.AssignedTo
	}
	return r
}
