package effects

import (
	"context"
	"strings"

	"github.com/roach88/fmdesk/internal/action"
	"github.com/roach88/fmdesk/internal/engine"
	"github.com/roach88/fmdesk/internal/model"
)

func (h *handlers) registerRequests(e *engine.Engine) {
	e.On(action.TypeRequestsLoad, "requests.load", h.loadRequests)
	e.On(action.TypeRequestLoad, "requests.load_one", h.loadRequest)
	e.On(action.TypeRequestCreate, "requests.create", h.createRequest)
	e.On(action.TypeRequestUpdate, "requests.update", h.updateRequest)
	e.On(action.TypeRequestDelete, "requests.delete", h.deleteRequest)
}

func (h *handlers) loadRequests(ctx context.Context, t engine.Trigger) []action.Action {
	reqs, err := h.Requests.ListServiceRequests(ctx)
	if err != nil {
		return []action.Action{action.RequestsLoadFailure{Failure: failureOf(err, action.FailureNetwork), RequestSeq: t.Seq()}}
	}
	return []action.Action{action.RequestsLoadSuccess{Requests: reqs, LoadedAt: h.Now().UTC(), RequestSeq: t.Seq()}}
}

func (h *handlers) loadRequest(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.RequestLoad)
	if a.ID == "" {
		return []action.Action{action.RequestLoadFailure{Failure: invalid("service request id is required")}}
	}
	r, err := h.Requests.GetServiceRequest(ctx, a.ID)
	if err != nil {
		return []action.Action{action.RequestLoadFailure{ID: a.ID, Failure: failureOf(err, action.FailureNetwork)}}
	}
	return []action.Action{action.RequestLoadSuccess{Request: r, RequestSeq: t.Seq()}}
}

func validateRequest(r model.ServiceRequest) string {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return "title is required"
	case r.Status != "" && !r.Status.Valid():
		return "status is invalid"
	case r.Priority != "" && !r.Priority.Valid():
		return "priority is invalid"
	}
	return ""
}

func (h *handlers) createRequest(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.RequestCreate)
	if msg := validateRequest(a.Request); msg != "" {
		f := invalid(msg)
		h.toastError(ctx, "Could not create service request", f)
		return []action.Action{action.RequestCreateFailure{Failure: f}}
	}
	r, err := h.Requests.CreateServiceRequest(ctx, a.Request)
	if err != nil {
		f := failureOf(err, action.FailureNetwork)
		h.toastError(ctx, "Could not create service request", f)
		return []action.Action{action.RequestCreateFailure{Failure: f}}
	}
	h.toastSuccess(ctx, "Service request "+r.Title+" created")
	return []action.Action{
		action.RequestCreateSuccess{Request: r},
		action.RouterNavigated{Path: RouteRequests},
	}
}

func (h *handlers) updateRequest(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.RequestUpdate)
	var msg string
	switch {
	case a.ID == "":
		msg = "service request id is required"
	case a.Changes == (model.ServiceRequestChanges{}):
		msg = "no changes to save"
	case a.Changes.Title != nil && strings.TrimSpace(*a.Changes.Title) == "":
		msg = "title is required"
	case a.Changes.Status != nil && !a.Changes.Status.Valid():
		msg = "status is invalid"
	case a.Changes.Priority != nil && !a.Changes.Priority.Valid():
		msg = "priority is invalid"
	}
	if msg != "" {
		f := invalid(msg)
		h.toastError(ctx, "Could not update service request", f)
		return []action.Action{action.RequestUpdateFailure{ID: a.ID, Failure: f}}
	}

	r, err := h.Requests.UpdateServiceRequest(ctx, a.ID, a.Changes)
	if err != nil {
		f := failureOf(err, action.FailureNetwork)
		h.toastError(ctx, "Could not update service request", f)
		return []action.Action{action.RequestUpdateFailure{ID: a.ID, Failure: f}}
	}
	h.toastSuccess(ctx, "Service request "+r.Title+" updated")
	return []action.Action{action.RequestUpdateSuccess{Request: r, RequestSeq: t.Seq()}}
}

func (h *handlers) deleteRequest(ctx context.Context, t engine.Trigger) []action.Action {
	a := t.Action.(action.RequestDelete)
	if a.ID == "" {
		f := invalid("service request id is required")
		h.toastError(ctx, "Could not delete service request", f)
		return []action.Action{action.RequestDeleteFailure{Failure: f}}
	}
	if err := h.Requests.DeleteServiceRequest(ctx, a.ID); err != nil {
		f := failureOf(err, action.FailureNetwork)
		h.toastError(ctx, "Could not delete service request", f)
		return []action.Action{action.RequestDeleteFailure{ID: a.ID, Failure: f}}
	}
	h.toastSuccess(ctx, "Service request deleted")
	return []action.Action{
		action.RequestDeleteSuccess{ID: a.ID},
		action.RouterNavigated{Path: RouteRequests},
	}
}
