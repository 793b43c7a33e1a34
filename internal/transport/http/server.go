package http

import (
	"fmt"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/messagely/messagely-server/internal/auth"
	"github.com/messagely/messagely-server/internal/config"
	"github.com/messagely/messagely-server/internal/messaging"
)

// NewServer builds the HTTP server with all routes mounted.
func NewServer(authService *auth.Service, messageService *messaging.Service, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	authHandlers := NewAuthHandlers(authService, logger)
	router.POST("/auth/register", authHandlers.Register)
	router.POST("/auth/login", authHandlers.Login)

	messageHandlers := NewMessageHandlers(messageService, logger)
	messages := router.Group("/messages")
	messages.Use(AuthMiddleware(authService, logger))
	messages.GET("/:id", messageHandlers.Get)
	messages.POST("", messageHandlers.Send)
	messages.POST("/:id/read", messageHandlers.MarkRead)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	_, _ = fmt.Fprint(c.Writer, "ok")
}
