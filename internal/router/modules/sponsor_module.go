package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sobrhq/sobr-server/internal/container"
	handlers "github.com/sobrhq/sobr-server/internal/interface/http"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/helpers"
)

// SponsorModule wires the vetting workflow. Admin only.
type SponsorModule struct {
	Handler *handlers.SponsorHandler
	JWT     *helpers.JWTManager
}

func NewSponsorModule(h *handlers.SponsorHandler, jwt *helpers.JWTManager) *SponsorModule {
	return &SponsorModule{Handler: h, JWT: jwt}
}

func (m *SponsorModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/sponsors")
	admin.Use(
		middleware.Auth(container.GetRedis(), m.JWT),
		middleware.RequireRole("admin"),
		middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		admin.GET("/pending", m.Handler.ListPending)
		admin.GET("/search", m.Handler.Search)
		admin.POST("/:id/approve", m.Handler.Approve)
		admin.POST("/:id/decline", m.Handler.Decline)
		admin.POST("/bulk_approve", m.Handler.BulkApprove)
	}
}
