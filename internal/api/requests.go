package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/roach88/fmdesk/internal/adapter"
	"github.com/roach88/fmdesk/internal/model"
)

const requestsPath = "/api/v1/service-requests"

func requestPath(id string) string {
	return requestsPath + "/" + url.PathEscape(id)
}

// ListServiceRequests fetches every service request.
func (c *Client) ListServiceRequests(ctx context.Context) ([]model.ServiceRequest, error) {
	body, err := c.do(ctx, http.MethodGet, requestsPath, nil)
	if err != nil {
		return nil, err
	}
	return adapter.DecodeServiceRequests(body)
}

// GetServiceRequest fetches one request by id.
func (c *Client) GetServiceRequest(ctx context.Context, id string) (model.ServiceRequest, error) {
	body, err := c.do(ctx, http.MethodGet, requestPath(id), nil)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	return adapter.DecodeServiceRequest(body)
}

// CreateServiceRequest files r and returns the stored request.
func (c *Client) CreateServiceRequest(ctx context.Context, r model.ServiceRequest) (model.ServiceRequest, error) {
	body, err := c.do(ctx, http.MethodPost, requestsPath, adapter.ServiceRequestToAPI(r))
	if err != nil {
		return model.ServiceRequest{}, err
	}
	return adapter.DecodeServiceRequest(body)
}

// UpdateServiceRequest sends a partial update.
func (c *Client) UpdateServiceRequest(ctx context.Context, id string, changes model.ServiceRequestChanges) (model.ServiceRequest, error) {
	body, err := c.do(ctx, http.MethodPut, requestPath(id), changes)
	if err != nil {
		return model.ServiceRequest{}, err
	}
	if len(body) == 0 {
		return c.GetServiceRequest(ctx, id)
	}
	return adapter.DecodeServiceRequest(body)
}

// DeleteServiceRequest removes the request with id.
func (c *Client) DeleteServiceRequest(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, requestPath(id), nil)
	return err
}
