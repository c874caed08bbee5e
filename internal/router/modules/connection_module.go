package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sobrhq/sobr-server/internal/container"
	handlers "github.com/sobrhq/sobr-server/internal/interface/http"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/helpers"
)

// ConnectionModule wires the connection ledger routes. All protected.
type ConnectionModule struct {
	Handler *handlers.ConnectionHandler
	JWT     *helpers.JWTManager
}

func NewConnectionModule(h *handlers.ConnectionHandler, jwt *helpers.JWTManager) *ConnectionModule {
	return &ConnectionModule{Handler: h, JWT: jwt}
}

func (m *ConnectionModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/connections")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("", m.Handler.Request)
		auth.POST("/accept", m.Handler.Accept)
		auth.POST("/decline", m.Handler.Decline)
		auth.GET("/status", m.Handler.Status)
		auth.GET("/sponsor/:id/incoming", middleware.RequireRole("sponsor", "admin"), m.Handler.Incoming)
	}
}
