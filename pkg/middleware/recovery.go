package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ju-ns/management-microsservices/pkg/models"
)

// Recovery turns a panic into the generic 500 error body.
func Recovery(log *logrus.Entry) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		Logger(c, log).WithField("panic", recovered).Error("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			models.NewErrorResponse(http.StatusInternalServerError, "Unexpected Error", models.InternalErrorMessage))
	})
}
