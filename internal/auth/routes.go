package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers Auth routes on a group already behind Middleware
func RegisterRoutes(rg *gin.RouterGroup, handler *Handler) {
	authGroup := rg.Group("/auth")
	{
		authGroup.GET("/ping", handler.Ping)
		authGroup.GET("/me", handler.Me)
	}
}
