package mockapi

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/roach88/fmdesk/internal/adapter"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// Fixture names of the login identities.
const (
	FixtureAdmin = "admin-user"
	FixtureUser  = "user"
)

// Identity is a person the mock provider can sign in.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture,omitempty"`
	OrgID         string `json:"org_id"`
	EnterpriseSSO bool   `json:"enterprise_sso"`
	Scope         string `json:"scope"`
	// UserID is the backend record returned by /api/v1/users/me.
	UserID string `json:"user_id"`
}

func loadIdentity(name string) (Identity, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + name + ".json")
	if err != nil {
		return Identity{}, fmt.Errorf("identity fixture %q: %w", name, err)
	}
	var id Identity
	if err := json.Unmarshal(data, &id); err != nil {
		return Identity{}, fmt.Errorf("identity fixture %q: %w", name, err)
	}
	return id, nil
}

// loadRecords splits a fixture list into raw records keyed by canonical id.
func loadRecords(file string, idOf func(json.RawMessage) (string, error)) (*recordSet, error) {
	data, err := fixtureFS.ReadFile("fixtures/" + file)
	if err != nil {
		return nil, err
	}
	var wrapped struct {
		Data []json.RawMessage `json:"data"`
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", file, err)
		}
		items = wrapped.Data
	}

	rs := newRecordSet()
	for i, raw := range items {
		id, err := idOf(raw)
		if err != nil {
			return nil, fmt.Errorf("fixture %s[%d]: %w", file, i, err)
		}
		rs.put(id, raw)
	}
	return rs, nil
}

func userID(raw json.RawMessage) (string, error) {
	var r adapter.RawUser
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}
	id := r.Canonical().ID
	if id == "" {
		return "", fmt.Errorf("user without id")
	}
	return id, nil
}

func requestID(raw json.RawMessage) (string, error) {
	var r adapter.RawServiceRequest
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", err
	}
	id := r.Canonical().ID
	if id == "" {
		return "", fmt.Errorf("service request without id")
	}
	return id, nil
}
