package apiclient

import (
	"context"
	"errors"
	"net/http"

	"devstudio/internal/apperr"
	"devstudio/internal/models"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	if email == "" || password == "" {
		return nil, apperr.Validation("login", "Email and password are required")
	}

	var resp authResponse
	err := c.do(ctx, request{
		op:       "login",
		method:   http.MethodPost,
		endpoint: "/api/auth/login",
		body:     loginRequest{Email: email, Password: password},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, apperr.Network("login", errors.New("login response carries no token"))
	}
	return &models.AuthResponse{Token: resp.Token, User: resp.User.toModel()}, nil
}

// Profile returns the signed-in user's profile.
func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var resp userDTO
	err := c.do(ctx, request{
		op:       "load profile",
		method:   http.MethodGet,
		endpoint: "/api/users/profile",
		auth:     true,
	}, &resp)
	if err != nil {
		return nil, err
	}
	user := resp.toModel()
	return &user, nil
}
