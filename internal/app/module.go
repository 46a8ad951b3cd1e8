package app

import "github.com/gin-gonic/gin"

// Module defines the contract for a self-registering page module. Page
// routes are mounted behind the session and CSRF middleware.
type Module interface {
	RegisterRoutes(pages *gin.RouterGroup)
}
