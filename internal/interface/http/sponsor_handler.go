package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/application"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/response"
	"github.com/sobrhq/sobr-server/pkg/validation"
)

// SponsorHandler exposes the vetting workflow. Every route is behind the
// admin role gate.
type SponsorHandler struct {
	Svc    *application.VettingService
	Logger *logrus.Logger
}

func NewSponsorHandler(svc *application.VettingService, logger *logrus.Logger) *SponsorHandler {
	return &SponsorHandler{Svc: svc, Logger: logger}
}

type bulkApproveRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,ident"`
}

func (h *SponsorHandler) ListPending(c *gin.Context) {
	users, err := h.Svc.ListPending(c.Request.Context())
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to list pending sponsors", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	response.Success(c, http.StatusOK, out, "pending sponsors", map[string]any{"count": len(out)})
}

func (h *SponsorHandler) Approve(c *gin.Context) {
	actorID := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Approve(c.Request.Context(), actorID, c.Param("id")); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "sponsor not found", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to approve sponsor", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"approved": true}, "sponsor approved", nil)
}

func (h *SponsorHandler) Decline(c *gin.Context) {
	actorID := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.Decline(c.Request.Context(), actorID, c.Param("id")); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "sponsor not found", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to decline sponsor", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"declined": true}, "sponsor declined", nil)
}

// BulkApprove approves each id, continuing past failures and reporting
// the ids that failed.
func (h *SponsorHandler) BulkApprove(c *gin.Context) {
	var req bulkApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	actorID := c.GetString(middleware.CtxUserIDKey)
	failed := h.Svc.BulkApprove(c.Request.Context(), actorID, req.IDs)
	if failed == nil {
		failed = []string{}
	}
	response.Success[any](c, http.StatusOK, map[string]any{
		"approved": len(req.IDs) - len(failed),
		"failed":   failed,
	}, "bulk approve finished", nil)
}

func (h *SponsorHandler) Search(c *gin.Context) {
	users, err := h.Svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to search sponsors", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for i := range users {
		out = append(out, userView(&users[i]))
	}
	response.Success(c, http.StatusOK, out, "matching sponsors", map[string]any{"count": len(out)})
}
