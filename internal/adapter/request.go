package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/fmdesk/internal/model"
)

// APIServiceRequest is the canonical wire shape of a service request.
type APIServiceRequest struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DateCreated time.Time `json:"date_created"`
	RequestedBy string    `json:"requested_by"`
	AssignedTo  string    `json:"assigned_to,omitempty"`
}

// RawServiceRequest holds every known alias of a service request field.
//
// Alias precedence, first non-empty wins:
//
//	id:           id, request_id, requestId
//	title:        title, subject, summary
//	description:  description, details, body
//	status:       status, state
//	priority:     priority, severity, urgency
//	date_created: date_created, dateCreated, created_at, createdAt
//	requested_by: requested_by, requestedBy, requester
//	assigned_to:  assigned_to, assignedTo, assignee
type RawServiceRequest struct {
	ID             *flexString `json:"id"`
	RequestID      *flexString `json:"request_id"`
	RequestIDAlt   *flexString `json:"requestId"`
	Title          *flexString `json:"title"`
	Subject        *flexString `json:"subject"`
	Summary        *flexString `json:"summary"`
	Description    *flexString `json:"description"`
	Details        *flexString `json:"details"`
	Body           *flexString `json:"body"`
	Status         *flexString `json:"status"`
	State          *flexString `json:"state"`
	Priority       *flexString `json:"priority"`
	Severity       *flexString `json:"severity"`
	Urgency        *flexString `json:"urgency"`
	DateCreated    *flexTime   `json:"date_created"`
	DateCreatedAlt *flexTime   `json:"dateCreated"`
	CreatedAt      *flexTime   `json:"created_at"`
	CreatedAtAlt   *flexTime   `json:"createdAt"`
	RequestedBy    *flexString `json:"requested_by"`
	RequestedByAlt *flexString `json:"requestedBy"`
	Requester      *flexString `json:"requester"`
	AssignedTo     *flexString `json:"assigned_to"`
	AssignedToAlt  *flexString `json:"assignedTo"`
	Assignee       *flexString `json:"assignee"`
}

// Canonical resolves the aliases into the wire shape.
func (r RawServiceRequest) Canonical() APIServiceRequest {
	return APIServiceRequest{
		ID:          firstString(r.ID, r.RequestID, r.RequestIDAlt),
		Title:       firstString(r.Title, r.Subject, r.Summary),
		Description: firstString(r.Description, r.Details, r.Body),
		Status:      firstString(r.Status, r.State),
		Priority:    firstString(r.Priority, r.Severity, r.Urgency),
		DateCreated: firstTime(r.DateCreated, r.DateCreatedAlt, r.CreatedAt, r.CreatedAtAlt),
		RequestedBy: firstString(r.RequestedBy, r.RequestedByAlt, r.Requester),
		AssignedTo:  firstString(r.AssignedTo, r.AssignedToAlt, r.Assignee),
	}
}

// ServiceRequestFromAPI normalizes a wire request into the entity model.
func ServiceRequestFromAPI(w APIServiceRequest) model.ServiceRequest {
	return model.ServiceRequest{
		ID:          w.ID,
		Title:       w.Title,
		Description: w.Description,
		Status:      NormalizeStatus(w.Status),
		Priority:    NormalizePriority(w.Priority),
		DateCreated: w.DateCreated,
		RequestedBy: w.RequestedBy,
		AssignedTo:  w.AssignedTo,
	}
}

// ServiceRequestToAPI renders r in the canonical wire shape.
func ServiceRequestToAPI(r model.ServiceRequest) APIServiceRequest {
	return APIServiceRequest{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Status:      string(r.Status),
		Priority:    string(r.Priority),
		DateCreated: r.DateCreated,
		RequestedBy: r.RequestedBy,
		AssignedTo:  r.AssignedTo,
	}
}

// DecodeServiceRequest parses one service request payload in any known shape.
func DecodeServiceRequest(data []byte) (model.ServiceRequest, error) {
	var raw RawServiceRequest
	if err := json.Unmarshal(unwrapData(data), &raw); err != nil {
		return model.ServiceRequest{}, fmt.Errorf("decode service request: %w", err)
	}
	return ServiceRequestFromAPI(raw.Canonical()), nil
}

// DecodeServiceRequests parses a request list, bare or wrapped.
func DecodeServiceRequests(data []byte) ([]model.ServiceRequest, error) {
	var raws []RawServiceRequest
	if err := decodeList(data, &raws, "service_requests", "requests"); err != nil {
		return nil, fmt.Errorf("decode service requests: %w", err)
	}
	out := make([]model.ServiceRequest, 0, len(raws))
	for _, raw := range raws {
		out = append(out, ServiceRequestFromAPI(raw.Canonical()))
	}
	return out, nil
}

// decodeList decodes a bare JSON array, or an object holding the array
// under "data", "items", "results" or one of the extra keys.
func decodeList(data []byte, dst any, extra ...string) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, dst)
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("expected array or object, got %q", trimmed[:1])
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return err
	}
	keys := append([]string{"data", "items", "results"}, extra...)
	for _, k := range keys {
		if inner, ok := envelope[k]; ok {
			return decodeList(inner, dst)
		}
	}
	return fmt.Errorf("no list found under %v", keys)
}

// unwrapData returns the object under "data" when data is {"data": {...}}
// and nothing else. Any other input is returned unchanged.
func unwrapData(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil || len(envelope) != 1 {
		return data
	}
	inner, ok := envelope["data"]
	if !ok {
		return data
	}
	if inner = bytes.TrimSpace(inner); len(inner) == 0 || inner[0] != '{' {
		return data
	}
	return inner
}
