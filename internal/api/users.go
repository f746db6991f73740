package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/roach88/fmdesk/internal/adapter"
	"github.com/roach88/fmdesk/internal/model"
)

const usersPath = "/api/v1/users"

func userPath(id string) string {
	return usersPath + "/" + url.PathEscape(id)
}

// ListUsers fetches every user.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	body, err := c.do(ctx, http.MethodGet, usersPath, nil)
	if err != nil {
		return nil, err
	}
	return adapter.DecodeUsers(body)
}

// GetUser fetches one user by id.
func (c *Client) GetUser(ctx context.Context, id string) (model.User, error) {
	body, err := c.do(ctx, http.MethodGet, userPath(id), nil)
	if err != nil {
		return model.User{}, err
	}
	return adapter.DecodeUser(body)
}

// CurrentUser fetches the signed-in user's API profile.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	body, err := c.do(ctx, http.MethodGet, usersPath+"/me", nil)
	if err != nil {
		return model.User{}, err
	}
	return adapter.DecodeUser(body)
}

// CreateUser creates u and returns the user as stored by the server.
func (c *Client) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	body, err := c.do(ctx, http.MethodPost, usersPath, adapter.UserToAPI(u))
	if err != nil {
		return model.User{}, err
	}
	return adapter.DecodeUser(body)
}

// UpdateUser sends a partial update. When the server answers without a body
// the user is fetched again.
func (c *Client) UpdateUser(ctx context.Context, id string, changes model.UserChanges) (model.User, error) {
	body, err := c.do(ctx, http.MethodPut, userPath(id), changes)
	if err != nil {
		return model.User{}, err
	}
	if len(body) == 0 {
		return c.GetUser(ctx, id)
	}
	return adapter.DecodeUser(body)
}

// DeleteUser removes the user with id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, userPath(id), nil)
	return err
}
