package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/ju-ns/management-microsservices/pkg/middleware"
)

// NewRouter creates and configures the Gin router.
func NewRouter(h *UserHandler, log *logrus.Entry) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.CorrelationID(),
		middleware.RequestLogger(log),
		middleware.Recovery(log),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	users := r.Group("/users")
	users.POST("", h.CreateUser)
	users.GET("", h.ListUsers)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser)

	return r
}
