package router

import "github.com/gin-gonic/gin"

// Module is one feature surface (users, connections, messaging, vetting,
// dashboard, health) registering its routes on the shared API group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
