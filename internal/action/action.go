// Package action is the fmdesk action catalog.
//
// An action is an immutable, named event. Names group events by feature and
// lifecycle stage: "[Users] Load" is a request, "[Users] Load Success" and
// "[Users] Load Failure" are its outcomes. Constructing an action never fails
// and never performs I/O.
//
// Actions are plain structs with JSON tags so the engine can append them to
// the persistent log as an Envelope and decode them again on replay.
package action

import (
	"encoding/json"
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Type is the stable name of an action, e.g. "[Users] Load".
type Type string

// Action is implemented by every event in the catalog.
type Action interface {
	Type() Type
}

// FailureKind classifies why an effect failed.
type FailureKind string

const (
	// FailureNetwork means the request never reached the server.
	FailureNetwork FailureKind = "network"
	// FailureServer means the server answered with a non-2xx status.
	FailureServer FailureKind = "server"
	// FailureAuth means the identity provider refused or timed out.
	FailureAuth FailureKind = "auth"
	// FailureValidation means the input was rejected before any I/O.
	FailureValidation FailureKind = "validation"
)

// Failure is the error payload carried by every "... Failure" action.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Status  int         `json:"status,omitempty"`
	Message string      `json:"message"`
}

func (f Failure) String() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Envelope is the persisted form of a dispatched action.
//
// Cause and Effect are empty for root dispatches. For an action emitted by an
// effect they name the triggering envelope and the effect that produced it.
type Envelope struct {
	ID      string          `json:"id"`
	Seq     int64           `json:"seq"`
	Flow    string          `json:"flow"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Cause   string          `json:"cause,omitempty"`
	Effect  string          `json:"effect,omitempty"`
}

// Seal wraps a dispatched action for the log. The ID is a ULID so envelopes
// sort by creation time even across engine restarts.
func Seal(a Action, seq int64, flow string) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("seal %s: %w", a.Type(), err)
	}
	return Envelope{
		ID:      ulid.Make().String(),
		Seq:     seq,
		Flow:    flow,
		Type:    a.Type(),
		Payload: payload,
	}, nil
}
