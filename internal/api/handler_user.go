package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/internal/user"
	"github.com/ju-ns/management-microsservices/pkg/middleware"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

// UserService is the subset of user.Service the handlers need.
type UserService interface {
	Create(ctx context.Context, name, email string) (models.User, error)
	Update(ctx context.Context, id string, patch user.Patch) (models.User, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (models.User, error)
	ListAll(ctx context.Context) ([]models.User, error)
}

// UserHandler handles user-related HTTP requests.
type UserHandler struct {
	users UserService
	log   *logrus.Entry
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users UserService, log *logrus.Entry) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// CreateUser godoc
// @Summary      Create a new user
// @Description  Creates a user and publishes a user.created event for the welcome email
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request  body      models.CreateUserRequest  true  "Create user request"
// @Success      201      {object}  models.User
// @Failure      400      {object}  models.ErrorResponse
// @Failure      409      {object}  models.ErrorResponse
// @Failure      500      {object}  models.ErrorResponse
// @Router       /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	log := middleware.Logger(c, h.log)

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, log, bindError(err))
		return
	}

	u, err := h.users.Create(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		writeError(c, log, err)
		return
	}

	c.Header("Location", "/users/"+u.ID)
	c.JSON(http.StatusCreated, u)
}

// UpdateUser godoc
// @Summary      Update an existing user
// @Description  Applies a partial update. Absent or blank fields are left unchanged.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id       path      string                    true  "User ID"
// @Param        request  body      models.UpdateUserRequest  true  "Update user request"
// @Success      200      {object}  models.User
// @Failure      400      {object}  models.ErrorResponse
// @Failure      404      {object}  models.ErrorResponse
// @Failure      409      {object}  models.ErrorResponse
// @Failure      500      {object}  models.ErrorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	log := middleware.Logger(c, h.log)

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, log, bindError(err))
		return
	}

	u, err := h.users.Update(c.Request.Context(), c.Param("id"), user.PatchFromRequest(req))
	if err != nil {
		writeError(c, log, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// GetUser godoc
// @Summary      Get a user by ID
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  models.User
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.users.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, middleware.Logger(c, h.log), err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// ListUsers godoc
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Success      200  {array}   models.User
// @Failure      500  {object}  models.ErrorResponse
// @Router       /users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.ListAll(c.Request.Context())
	if err != nil {
		writeError(c, middleware.Logger(c, h.log), err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Removes the user. Notification records already written are kept.
// @Tags         users
// @Param        id   path  string  true  "User ID"
// @Success      204
// @Failure      404  {object}  models.ErrorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, middleware.Logger(c, h.log), err)
		return
	}
	c.Status(http.StatusNoContent)
}
