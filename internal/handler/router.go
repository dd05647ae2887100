package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/keygate/backend/internal/config"
	"github.com/keygate/backend/internal/logging"
	"github.com/keygate/backend/internal/service"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(auth *service.Authenticator, cfg config.ServerConfig, logger logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/", Root(cfg.Version))
	router.GET("/ping", Ping)
	router.GET("/openapi.json", OpenAPIDoc(cfg.Version))

	authHandler := NewAuthHandler(auth)
	api := router.Group("/api/v1/auth")
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)
		api.GET("/config", authHandler.Config)
		api.GET("/me", AuthMiddleware(auth), authHandler.Me)
	}

	return router
}
