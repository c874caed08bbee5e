package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/sobrhq/sobr-server/internal/interface/http"
)

// HealthModule wires the public liveness routes.
type HealthModule struct {
	Handler *handlers.HealthHandler
}

func NewHealthModule(h *handlers.HealthHandler) *HealthModule {
	return &HealthModule{Handler: h}
}

func (m *HealthModule) Register(rg *gin.RouterGroup) {
	rg.GET("/ping", m.Handler.Ping)
	rg.GET("/health", m.Handler.Health)
}
