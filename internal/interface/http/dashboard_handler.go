package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/application"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/response"
)

type DashboardHandler struct {
	Metrics  *application.DashboardService
	Activity *application.ActivityService
	Logger   *logrus.Logger
}

func NewDashboardHandler(metrics *application.DashboardService, activity *application.ActivityService, logger *logrus.Logger) *DashboardHandler {
	return &DashboardHandler{Metrics: metrics, Activity: activity, Logger: logger}
}

// scope resolves the userId/role pair the caller may ask about: admins may
// query anyone, everyone else gets their own session identity.
func scope(c *gin.Context) (userID, role string) {
	userID = c.GetString(middleware.CtxUserIDKey)
	role = c.GetString(middleware.CtxRoleKey)
	if role == "admin" {
		if q := c.Query("userId"); q != "" {
			userID = q
		}
		if q := c.Query("role"); q != "" {
			role = q
		}
	}
	return userID, role
}

func (h *DashboardHandler) GetMetrics(c *gin.Context) {
	userID, role := scope(c)
	m, err := h.Metrics.Metrics(c.Request.Context(), userID, role)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to load metrics", nil)
		return
	}
	response.Success(c, http.StatusOK, m, "dashboard metrics", nil)
}

// GetRecentActivity is best effort: store errors yield an empty list.
func (h *DashboardHandler) GetRecentActivity(c *gin.Context) {
	userID, role := scope(c)
	items := h.Activity.Recent(c.Request.Context(), userID, role)
	response.Success(c, http.StatusOK, items, "recent activity", map[string]any{"count": len(items)})
}
