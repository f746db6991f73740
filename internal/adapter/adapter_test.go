package adapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fmdesk/internal/model"
)

// captureWarnings routes the default logger into a buffer for the test.
func captureWarnings(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want model.RequestStatus
	}{
		{"open", model.RequestStatusNew},
		{"NEW", model.RequestStatusNew},
		{" submitted ", model.RequestStatusNew},
		{"in_progress", model.RequestStatusInProgress},
		{"In Progress", model.RequestStatusInProgress},
		{"in-progress", model.RequestStatusInProgress},
		{"assigned", model.RequestStatusInProgress},
		{"done", model.RequestStatusCompleted},
		{"Resolved", model.RequestStatusCompleted},
		{"canceled", model.RequestStatusCancelled},
		{"rejected", model.RequestStatusCancelled},
		{"", model.DefaultRequestStatus},
		{"on-fire", model.DefaultRequestStatus},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.in))
		})
	}
}

func TestNormalizePriority(t *testing.T) {
	assert.Equal(t, model.PriorityUrgent, NormalizePriority("critical"))
	assert.Equal(t, model.PriorityUrgent, NormalizePriority("Emergency"))
	assert.Equal(t, model.PriorityHigh, NormalizePriority("major"))
	assert.Equal(t, model.PriorityMedium, NormalizePriority("normal"))
	assert.Equal(t, model.PriorityLow, NormalizePriority("MINOR"))
	assert.Equal(t, model.DefaultPriority, NormalizePriority("whenever"))
}

func TestNormalizeRoleAndUserStatus(t *testing.T) {
	assert.Equal(t, model.RoleFacilityManager, NormalizeRole("Facility Manager"))
	assert.Equal(t, model.RoleFacilityManager, NormalizeRole("facility-manager"))
	assert.Equal(t, model.RoleAdmin, NormalizeRole("Administrator"))
	assert.Equal(t, model.RoleGuest, NormalizeRole("superuser"))

	assert.Equal(t, model.UserStatusInactive, NormalizeUserStatus("disabled"))
	assert.Equal(t, model.UserStatusPending, NormalizeUserStatus("archived"))
}

func TestUnknownValuesWarn(t *testing.T) {
	buf := captureWarnings(t)

	assert.Equal(t, model.DefaultPriority, NormalizePriority("whenever"))
	assert.Contains(t, buf.String(), "unknown enum value")
	assert.Contains(t, buf.String(), "value=whenever")

	buf.Reset()
	NormalizePriority("")
	assert.Empty(t, buf.String(), "missing values default silently")
}

func TestServiceRequest_RoundTrip(t *testing.T) {
	created := time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)
	for _, status := range model.RequestStatuses {
		for _, priority := range model.Priorities {
			r := model.ServiceRequest{
				ID:          "sr-1",
				Title:       "Broken light",
				Description: "Lobby, second floor",
				Status:      status,
				Priority:    priority,
				DateCreated: created,
				RequestedBy: "u1",
				AssignedTo:  "u2",
			}
			assert.Equal(t, r, ServiceRequestFromAPI(ServiceRequestToAPI(r)))

			// And through the wire.
			data, err := json.Marshal(ServiceRequestToAPI(r))
			require.NoError(t, err)
			got, err := DecodeServiceRequest(data)
			require.NoError(t, err)
			assert.Equal(t, r, got)
		}
	}
}

func TestUser_RoundTrip(t *testing.T) {
	for _, role := range model.Roles {
		for _, status := range model.UserStatuses {
			u := model.User{
				ID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace",
				Role: role, Status: status, Department: "Ops", JobTitle: "Lead", Location: "HQ", IsSSO: true,
			}
			assert.Equal(t, u, UserFromAPI(UserToAPI(u)))

			data, err := json.Marshal(UserToAPI(u))
			require.NoError(t, err)
			got, err := DecodeUser(data)
			require.NoError(t, err)
			assert.Equal(t, u, got)
		}
	}
}

func TestDecodeUser_Aliases(t *testing.T) {
	got, err := DecodeUser([]byte(`{
		"userId": 42,
		"mail": "bob@example.com",
		"firstName": "Bob",
		"family_name": "Builder",
		"userRole": "Manager",
		"accountStatus": "enabled",
		"picture": "https://img.example.com/bob.png",
		"jobTitle": "Technician",
		"sso": "yes"
	}`))
	require.NoError(t, err)

	assert.Equal(t, model.User{
		ID:        "42",
		Email:     "bob@example.com",
		FirstName: "Bob",
		LastName:  "Builder",
		Role:      model.RoleFacilityManager,
		Status:    model.UserStatusActive,
		Avatar:    "https://img.example.com/bob.png",
		JobTitle:  "Technician",
		IsSSO:     true,
	}, got)
}

func TestDecodeUser_NameFallbackAndPrecedence(t *testing.T) {
	got, err := DecodeUser([]byte(`{"id":"u9","name":"Grace Brewster Hopper","first_name":"","given_name":"","role":"weird"}`))
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.FirstName)
	assert.Equal(t, "Brewster Hopper", got.LastName)
	assert.Equal(t, model.RoleGuest, got.Role)
	assert.Equal(t, model.UserStatusPending, got.Status)

	got, err = DecodeUser([]byte(`{"id":"u9","first_name":"Primary","given_name":"Secondary"}`))
	require.NoError(t, err)
	assert.Equal(t, "Primary", got.FirstName)
}

func TestDecodeServiceRequest_Aliases(t *testing.T) {
	got, err := DecodeServiceRequest([]byte(`{
		"requestId": "sr-7",
		"subject": "Water leak",
		"details": "Basement",
		"state": "open",
		"severity": "critical",
		"createdAt": "2026-01-02",
		"requester": "u1",
		"assignee": "u2"
	}`))
	require.NoError(t, err)
	assert.Equal(t, model.ServiceRequest{
		ID:          "sr-7",
		Title:       "Water leak",
		Description: "Basement",
		Status:      model.RequestStatusNew,
		Priority:    model.PriorityUrgent,
		DateCreated: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		RequestedBy: "u1",
		AssignedTo:  "u2",
	}, got)
}

func TestDecodeServiceRequest_UnixTimestamps(t *testing.T) {
	sec, err := DecodeServiceRequest([]byte(`{"id":"a","created_at":1767225600}`))
	require.NoError(t, err)
	ms, err := DecodeServiceRequest([]byte(`{"id":"a","created_at":1767225600000}`))
	require.NoError(t, err)
	assert.True(t, sec.DateCreated.Equal(ms.DateCreated))
	assert.Equal(t, 2026, sec.DateCreated.Year())
}

func TestDecodeLists(t *testing.T) {
	bare := []byte(`[{"id":"1","title":"a"},{"id":"2","title":"b"}]`)
	wrapped := []byte(`{"data":[{"id":"1","title":"a"},{"id":"2","title":"b"}],"total":2}`)

	a, err := DecodeServiceRequests(bare)
	require.NoError(t, err)
	b, err := DecodeServiceRequests(wrapped)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 2)

	users, err := DecodeUsers([]byte(`{"users":[{"id":"u1"}]}`))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)

	empty, err := DecodeUsers([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = DecodeUsers([]byte(`{"nothing":true}`))
	assert.Error(t, err)
	_, err = DecodeUsers([]byte(`"nope"`))
	assert.Error(t, err)
}

func TestDecodeOne_UnwrapsData(t *testing.T) {
	got, err := DecodeUser([]byte(`{"data":{"id":"u1","role":"admin"}}`))
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, model.RoleAdmin, got.Role)

	req, err := DecodeServiceRequest([]byte(`{"data":{"id":"sr-1","priority":"high"}}`))
	require.NoError(t, err)
	assert.Equal(t, "sr-1", req.ID)
	assert.Equal(t, model.PriorityHigh, req.Priority)
}
