package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/application"
	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/response"
	"github.com/sobrhq/sobr-server/pkg/validation"
)

type ConnectionHandler struct {
	Svc    *application.ConnectionService
	Logger *logrus.Logger
}

func NewConnectionHandler(svc *application.ConnectionService, logger *logrus.Logger) *ConnectionHandler {
	return &ConnectionHandler{Svc: svc, Logger: logger}
}

type connectionRequest struct {
	UserID    string `json:"userId" binding:"required,ident"`
	SponsorID string `json:"sponsorId" binding:"required,ident"`
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(middleware.CtxRoleKey) == entity.RoleAdmin
}

// Request creates a pending connection. The seeker must be the session
// user unless an admin is acting on their behalf.
func (h *ConnectionHandler) Request(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.UserID != c.GetString(middleware.CtxUserIDKey) && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "cannot request on behalf of another user", nil)
		return
	}
	conn, err := h.Svc.Request(c.Request.Context(), req.UserID, req.SponsorID)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrInvalidRole):
			response.Error[any](c, http.StatusBadRequest, "target is not an approved sponsor", nil)
		case errors.Is(err, application.ErrNotFound):
			response.Error[any](c, http.StatusNotFound, "sponsor not found", nil)
		default:
			response.Error[any](c, http.StatusInternalServerError, "failed to create connection", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, connectionView(conn), "connection requested", nil)
}

// Accept transitions a pending request. Only the named sponsor, or an
// admin, may respond.
func (h *ConnectionHandler) Accept(c *gin.Context) {
	h.respond(c, true)
}

func (h *ConnectionHandler) Decline(c *gin.Context) {
	h.respond(c, false)
}

func (h *ConnectionHandler) respond(c *gin.Context, accept bool) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.SponsorID != c.GetString(middleware.CtxUserIDKey) && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "only the named sponsor may respond", nil)
		return
	}
	if err := h.Svc.Respond(c.Request.Context(), req.UserID, req.SponsorID, accept); err != nil {
		if errors.Is(err, application.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "no pending request for this pair", nil)
			return
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to update connection", nil)
		return
	}
	msg := "connection declined"
	if accept {
		msg = "connection accepted"
	}
	response.Success[any](c, http.StatusOK, map[string]any{"accepted": accept}, msg, nil)
}

// Status returns the connection state for a (seeker, sponsor) pair, empty
// when none exists.
func (h *ConnectionHandler) Status(c *gin.Context) {
	userID := c.Query("userId")
	sponsorID := c.Query("sponsorId")
	if userID == "" || sponsorID == "" {
		response.Error[any](c, http.StatusBadRequest, "userId and sponsorId required", nil)
		return
	}
	self := c.GetString(middleware.CtxUserIDKey)
	if userID != self && sponsorID != self && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "not a party to this connection", nil)
		return
	}
	status, err := h.Svc.Status(c.Request.Context(), userID, sponsorID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to read status", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"status": status}, "connection status", nil)
}

// Incoming lists pending requests targeting the sponsor, oldest first.
func (h *ConnectionHandler) Incoming(c *gin.Context) {
	sponsorID := c.Param("id")
	if sponsorID != c.GetString(middleware.CtxUserIDKey) && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "cannot read another sponsor's queue", nil)
		return
	}
	conns, err := h.Svc.ListIncoming(c.Request.Context(), sponsorID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to list incoming requests", nil)
		return
	}
	out := make([]gin.H, 0, len(conns))
	for i := range conns {
		out = append(out, connectionView(&conns[i]))
	}
	response.Success(c, http.StatusOK, out, "incoming requests", map[string]any{"count": len(out)})
}

func connectionView(conn *entity.Connection) gin.H {
	return gin.H{
		"userId":     conn.SeekerID,
		"sponsorId":  conn.SponsorID,
		"status":     conn.Status,
		"created_at": conn.CreatedAt,
		"updated_at": conn.UpdatedAt,
	}
}
