package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sobrhq/sobr-server/internal/container"
	handlers "github.com/sobrhq/sobr-server/internal/interface/http"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/helpers"
)

// DashboardModule wires the metrics and activity feed routes.
type DashboardModule struct {
	Handler *handlers.DashboardHandler
	JWT     *helpers.JWTManager
}

func NewDashboardModule(h *handlers.DashboardHandler, jwt *helpers.JWTManager) *DashboardModule {
	return &DashboardModule{Handler: h, JWT: jwt}
}

func (m *DashboardModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/dashboard/metrics", m.Handler.GetMetrics)
		auth.GET("/activity/recent", m.Handler.GetRecentActivity)
	}
}
