package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/internal/user"
	"github.com/ju-ns/management-microsservices/pkg/models"
)

// writeError maps a service error to its HTTP status and error body.
func writeError(c *gin.Context, log *logrus.Entry, err error) {
	var verr *user.ValidationError
	switch {
	case errors.As(err, &verr):
		log.WithField("fields", verr.Fields).Warn("validation failed")
		body := models.NewErrorResponse(http.StatusBadRequest, "Validation Error", "Invalid fields")
		body.Errors = verr.Fields
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, user.ErrInvalidState):
		log.WithError(err).Warn("invalid user data")
		c.JSON(http.StatusBadRequest, models.NewErrorResponse(http.StatusBadRequest, "Invalid User Data",
			"Error to publish message: "+err.Error()))
	case errors.Is(err, user.ErrConflict):
		log.WithError(err).Warn("data conflict")
		c.JSON(http.StatusConflict, models.NewErrorResponse(http.StatusConflict, "Conflict", err.Error()))
	case errors.Is(err, user.ErrNotFound):
		log.WithError(err).Warn("user not found")
		c.JSON(http.StatusNotFound, models.NewErrorResponse(http.StatusNotFound, "User Not Found", err.Error()))
	default:
		log.WithError(err).Error("unexpected error")
		c.JSON(http.StatusInternalServerError, models.NewErrorResponse(http.StatusInternalServerError,
			"Unexpected Error", models.InternalErrorMessage))
	}
}

// bindError converts a gin binding failure into a ValidationError so it is
// reported with the same body as service-side validation.
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &user.ValidationError{Fields: map[string]string{"body": "Malformed JSON request"}}
	}

	verr := &user.ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg := fe.Field() + " is not valid"
		if fe.Tag() == "required" {
			msg = fe.Field() + " is required"
		}
		verr.Fields[strings.ToLower(fe.Field())] = msg
	}
	return verr
}
