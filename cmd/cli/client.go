package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// apiError is a non-2xx answer from the user service.
type apiError struct {
	Status int
	Body   models.ErrorResponse
}

func (e *apiError) Error() string {
	if e.Body.Error == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Body.Error, e.Body.Message)
	for field, reason := range e.Body.Errors {
		msg += fmt.Sprintf("\n    %s: %s", field, reason)
	}
	return msg
}

// userClient talks to the user-service HTTP API.
type userClient struct {
	base string
	http *http.Client
}

func newUserClient(base string) *userClient {
	return &userClient{base: base, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *userClient) Create(ctx context.Context, name, email string) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPost, "/users", models.CreateUserRequest{Name: name, Email: email}, http.StatusCreated, &u)
	return u, err
}

func (c *userClient) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, http.MethodGet, "/users", nil, http.StatusOK, &users)
	return users, err
}

func (c *userClient) Get(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, http.StatusOK, &u)
	return u, err
}

func (c *userClient) Update(ctx context.Context, id string, req models.UpdateUserRequest) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req, http.StatusOK, &u)
	return u, err
}

func (c *userClient) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, http.StatusNoContent, nil)
}

// Health reports whether GET /health answers 200.
func (c *userClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil)
}

func (c *userClient) do(ctx context.Context, method, path string, in any, want int, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr.Body)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decode response")
}
