package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ju-ns/management-microsservices/internal/memory"
	"github.com/ju-ns/management-microsservices/internal/user"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	store  *memory.UserStore
	queue  *memory.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	log := logrus.NewEntry(logger)

	store := memory.NewUserStore()
	queue := memory.NewQueue()
	svc := user.NewService(store, queue, log)
	return &fixture{
		router: NewRouter(NewUserHandler(svc, log), log),
		store:  store,
		queue:  queue,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func (f *fixture) create(t *testing.T, name, email string) models.User {
	t.Helper()
	body, _ := json.Marshal(models.CreateUserRequest{Name: name, Email: email})
	w := f.do(t, http.MethodPost, "/users", string(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	return u
}

func TestCreateUser_Success(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/users", `{"name":"Test User","email":"test@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var u models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Test User", u.Name)
	assert.Equal(t, "test@example.com", u.Email)
	assert.Equal(t, "/users/"+u.ID, w.Header().Get("Location"))

	published := f.queue.Published()
	require.Len(t, published, 1)
	assert.Equal(t, u.ID, published[0].CorrelationID)
}

func TestCreateUser_ValidationErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantFields map[string]string
	}{
		{"missing email", `{"name":"Alice"}`, map[string]string{"email": "Email is required"}},
		{"missing both", `{}`, map[string]string{"name": "Name is required", "email": "Email is required"}},
		{"blank name", `{"name":"   ","email":"a@example.com"}`, map[string]string{"name": "Name is required"}},
		{"bad email", `{"name":"Alice","email":"not-an-email"}`, map[string]string{"email": "Email is not valid"}},
		{"malformed json", `{"name":`, map[string]string{"body": "Malformed JSON request"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(t, http.MethodPost, "/users", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, "Validation Error", body.Error)
			assert.Equal(t, http.StatusBadRequest, body.Status)
			assert.Equal(t, tt.wantFields, body.Errors)
			assert.False(t, body.Timestamp.IsZero())
			assert.Empty(t, f.queue.Published())
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Bob", "bob@x.com")

	w := f.do(t, http.MethodPost, "/users", `{"name":"Bob","email":"bob@x.com"}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Conflict", decodeError(t, w).Error)
	assert.Equal(t, 1, f.store.Count("bob@x.com"))
	assert.Len(t, f.queue.Published(), 1)
}

func TestCreateUser_PublishFailureIsGeneric500(t *testing.T) {
	f := newFixture(t)
	f.queue.PublishErr = errors.New("amqp: channel closed")

	w := f.do(t, http.MethodPost, "/users", `{"name":"Alice","email":"alice@example.com"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "Unexpected Error", body.Error)
	assert.Equal(t, models.InternalErrorMessage, body.Message)
	assert.NotContains(t, w.Body.String(), "amqp")
	assert.Equal(t, 1, f.store.Len(), "user row is committed before publish")
}

func TestGetUser(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "Alice", "alice@example.com")

	w := f.do(t, http.MethodGet, "/users/"+u.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, u.ID, got.ID)

	w = f.do(t, http.MethodGet, "/users/nonexistent", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User Not Found", decodeError(t, w).Error)
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	f.create(t, "Alice", "alice@example.com")
	f.create(t, "Bob", "bob@example.com")

	w = f.do(t, http.MethodGet, "/users", "")
	var users []models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 2)
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "Alice", "alice@example.com")
	taken := f.create(t, "Bob", "bob@example.com")

	tests := []struct {
		name      string
		id        string
		body      string
		wantCode  int
		wantError string
	}{
		{"rename only", u.ID, `{"name":"Alicia"}`, http.StatusOK, ""},
		{"blank fields are ignored", u.ID, `{"name":"  ","email":""}`, http.StatusOK, ""},
		{"short name", u.ID, `{"name":"Al"}`, http.StatusBadRequest, "Validation Error"},
		{"bad email", u.ID, `{"email":"nope"}`, http.StatusBadRequest, "Validation Error"},
		{"email taken", u.ID, `{"email":"` + taken.Email + `"}`, http.StatusConflict, "Conflict"},
		{"unknown id", "missing", `{"name":"Whoever"}`, http.StatusNotFound, "User Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPut, "/users/"+tt.id, tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, w).Error)
			}
		})
	}

	got, err := f.store.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Len(t, f.queue.Published(), 2, "updates never publish")
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	u := f.create(t, "Alice", "alice@example.com")

	w := f.do(t, http.MethodDelete, "/users/"+u.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = f.do(t, http.MethodDelete, "/users/"+u.ID, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User Not Found", decodeError(t, w).Error)
}
