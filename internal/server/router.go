package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Router builds the gin engine: /sub, the token-authenticated /api facade,
// and a catch-all 404.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog())

	engine.GET("/sub", s.handleSub)

	api := engine.Group("/api")
	api.Use(s.requireAPIToken)
	api.POST("/reload", s.handleReload)
	api.GET("/logs", s.handleLogs)
	api.GET("/cache", s.handleCache)

	engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})

	return engine
}

// requireAPIToken gates every /api/* route behind the configured
// api_access_token (query or Authorization: Bearer). With no token
// configured, the facade is closed entirely.
func (s *Server) requireAPIToken(c *gin.Context) {
	state := s.current()
	if state.Pref.Common.APIAccessToken == nil {
		c.String(http.StatusForbidden, "admin api disabled")
		c.Abort()
		return
	}

	token := c.Query("token")
	if token == "" {
		if auth := c.GetHeader("Authorization"); len(auth) > len("Bearer ") && auth[:len("Bearer ")] == "Bearer " {
			token = auth[len("Bearer "):]
		}
	}
	if token != *state.Pref.Common.APIAccessToken {
		c.String(http.StatusForbidden, "invalid token")
		c.Abort()
		return
	}
	c.Next()
}
