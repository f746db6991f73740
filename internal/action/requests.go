package action

import (
	"time"

	"github.com/roach88/fmdesk/internal/model"
)

const (
	TypeRequestsLoad         Type = "[ServiceRequests] Load"
	TypeRequestsLoadSuccess  Type = "[ServiceRequests] Load Success"
	TypeRequestsLoadFailure  Type = "[ServiceRequests] Load Failure"
	TypeRequestLoad          Type = "[ServiceRequests] Load One"
	TypeRequestLoadSuccess   Type = "[ServiceRequests] Load One Success"
	TypeRequestLoadFailure   Type = "[ServiceRequests] Load One Failure"
	TypeRequestCreate        Type = "[ServiceRequests] Create"
	TypeRequestCreateSuccess Type = "[ServiceRequests] Create Success"
	TypeRequestCreateFailure Type = "[ServiceRequests] Create Failure"
	TypeRequestUpdate        Type = "[ServiceRequests] Update"
	TypeRequestUpdateSuccess Type = "[ServiceRequests] Update Success"
	TypeRequestUpdateFailure Type = "[ServiceRequests] Update Failure"
	TypeRequestDelete        Type = "[ServiceRequests] Delete"
	TypeRequestDeleteSuccess Type = "[ServiceRequests] Delete Success"
	TypeRequestDeleteFailure Type = "[ServiceRequests] Delete Failure"
	TypeRequestSelect        Type = "[ServiceRequests] Select"
	TypeRequestsSetFilters   Type = "[ServiceRequests] Set Filters"
	TypeRequestsClearFilters Type = "[ServiceRequests] Clear Filters"
)

type RequestsLoad struct{}

type RequestsLoadSuccess struct {
	Requests   []model.ServiceRequest `json:"requests"`
	LoadedAt   time.Time              `json:"loaded_at"`
	RequestSeq int64                  `json:"request_seq"`
}

type RequestsLoadFailure struct {
	Failure    Failure `json:"failure"`
	RequestSeq int64   `json:"request_seq"`
}

type RequestLoad struct {
	ID string `json:"id"`
}

type RequestLoadSuccess struct {
	Request    model.ServiceRequest `json:"request"`
	RequestSeq int64                `json:"request_seq"`
}

type RequestLoadFailure struct {
	ID      string  `json:"id"`
	Failure Failure `json:"failure"`
}

type RequestCreate struct {
	Request model.ServiceRequest `json:"request"`
}

type RequestCreateSuccess struct {
	Request model.ServiceRequest `json:"request"`
}

type RequestCreateFailure struct {
	Failure Failure `json:"failure"`
}

type RequestUpdate struct {
	ID      string                      `json:"id"`
	Changes model.ServiceRequestChanges `json:"changes"`
}

type RequestUpdateSuccess struct {
	Request    model.ServiceRequest `json:"request"`
	RequestSeq int64                `json:"request_seq"`
}

type RequestUpdateFailure struct {
	ID      string  `json:"id"`
	Failure Failure `json:"failure"`
}

type RequestDelete struct {
	ID string `json:"id"`
}

type RequestDeleteSuccess struct {
	ID string `json:"id"`
}

type RequestDeleteFailure struct {
	ID      string  `json:"id"`
	Failure Failure `json:"failure"`
}

type RequestSelect struct {
	ID string `json:"id"`
}

type RequestsSetFilters struct {
	Filters model.RequestFilters `json:"filters"`
}

type RequestsClearFilters struct{}

func (RequestsLoad) Type() Type         { return TypeRequestsLoad }
func (RequestsLoadSuccess) Type() Type  { return TypeRequestsLoadSuccess }
func (RequestsLoadFailure) Type() Type  { return TypeRequestsLoadFailure }
func (RequestLoad) Type() Type          { return TypeRequestLoad }
func (RequestLoadSuccess) Type() Type   { return TypeRequestLoadSuccess }
func (RequestLoadFailure) Type() Type   { return TypeRequestLoadFailure }
func (RequestCreate) Type() Type        { return TypeRequestCreate }
func (RequestCreateSuccess) Type() Type { return TypeRequestCreateSuccess }
func (RequestCreateFailure) Type() Type { return TypeRequestCreateFailure }
func (RequestUpdate) Type() Type        { return TypeRequestUpdate }
func (RequestUpdateSuccess) Type() Type { return TypeRequestUpdateSuccess }
func (RequestUpdateFailure) Type() Type { return TypeRequestUpdateFailure }
func (RequestDelete) Type() Type        { return TypeRequestDelete }
func (RequestDeleteSuccess) Type() Type { return TypeRequestDeleteSuccess }
func (RequestDeleteFailure) Type() Type { return TypeRequestDeleteFailure }
func (RequestSelect) Type() Type        { return TypeRequestSelect }
func (RequestsSetFilters) Type() Type   { return TypeRequestsSetFilters }
func (RequestsClearFilters) Type() Type { return TypeRequestsClearFilters }
