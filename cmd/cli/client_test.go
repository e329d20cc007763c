package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

func TestUserClient_Create(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.CreateUserRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Alice", req.Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(models.User{ID: "u-1", Name: req.Name, Email: req.Email})
	}))
	defer srv.Close()

	u, err := newUserClient(srv.URL).Create(context.Background(), "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, "alice@example.com", u.Email)
}

func TestUserClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(models.ErrorResponse{
			Status: http.StatusConflict, Error: "Conflict", Message: "email already in use",
		})
	}))
	defer srv.Close()

	_, err := newUserClient(srv.URL).Create(context.Background(), "Bob", "bob@x.com")
	require.Error(t, err)

	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, err.Error(), "Conflict: email already in use")
}

func TestUserClient_UpdateSendsOnlySetFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/u-1", r.URL.Path)

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]any{"name": "Alicia"}, raw)

		_ = json.NewEncoder(w).Encode(models.User{ID: "u-1", Name: "Alicia"})
	}))
	defer srv.Close()

	name := "Alicia"
	u, err := newUserClient(srv.URL).Update(context.Background(), "u-1", models.UpdateUserRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.Name)
}

func TestUserClient_Delete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	assert.NoError(t, newUserClient(srv.URL).Delete(context.Background(), "u-1"))
}

func TestApp_GetUserRequiresID(t *testing.T) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run([]string{"cli", "get-user"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: get-user <id>")
}

func TestPrintNotifications_MarksErrors(t *testing.T) {
	var out bytes.Buffer
	printNotifications(&out, []models.NotificationRecord{
		{Status: models.StatusError, EmailTo: "a@example.com", FailureReason: "dial tcp: timeout"},
	})
	assert.Contains(t, out.String(), Red+"ERROR ")
	assert.Contains(t, out.String(), "dial tcp: timeout")
}
