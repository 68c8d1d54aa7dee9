package handler

import (
	"net/http"
	"time"

	"contactbook/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	// Swagger imports
	_ "contactbook/backend/docs" // registers the swagger spec served under /swagger

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewRouter wires every route of the API onto a fresh gin engine.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(h.log))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		// Public user routes
		publicUsers := apiV1.Group("/users")
		{
			publicUsers.POST("", h.CreateUser)
			publicUsers.GET("", h.ListUsers)
			publicUsers.GET("/:id", auth.OptionalAuthMiddleware(), h.GetUserByID)
			publicUsers.GET("/:id/contacts", h.GetContacts)
			publicUsers.GET("/:id/connections", h.GetConnections)
		}

		// Contact routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me/contacts", h.GetMyContacts)
			userRoutes.GET("/me/events", h.StreamEvents)
			userRoutes.POST("/:id/request", h.SendRequest)
			userRoutes.POST("/:id/accept", h.AcceptRequest)
		}
	}

	return router
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("HTTP request")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("HTTP request")
		default:
			entry.Debug("HTTP request")
		}
	}
}
