package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/keygate/backend/docs"
	"github.com/keygate/backend/internal/model"
)

// Ping godoc
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} model.PingResponse
// @Router /ping [get]
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, model.PingResponse{Message: "pong"})
}

// Root returns a handler reporting the running version.
// @Summary Service status
// @Tags health
// @Produce json
// @Success 200 {object} model.RootResponse
// @Router / [get]
func Root(version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.RootResponse{Status: "ok", Version: version})
	}
}

// OpenAPIDoc serves the swagger document with the running version stamped in.
func OpenAPIDoc(version string) gin.HandlerFunc {
	spec := *docs.SwaggerInfo
	if version != "" {
		spec.Version = version
	}
	doc := []byte(spec.ReadDoc())
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	}
}
