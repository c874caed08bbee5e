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

type MessageHandler struct {
	Svc           *application.MessagingService
	Conversations *application.ConversationService
	Logger        *logrus.Logger
}

func NewMessageHandler(svc *application.MessagingService, convs *application.ConversationService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{Svc: svc, Conversations: convs, Logger: logger}
}

type sendMessageRequest struct {
	FromUserID string `json:"fromUserId" binding:"required,ident"`
	ToUserID   string `json:"toUserId" binding:"required,ident"`
	Body       string `json:"body" binding:"required"`
}

type markReadRequest struct {
	UserID      string `json:"userId" binding:"required,ident"`
	OtherUserID string `json:"otherUserId" binding:"required,ident"`
}

// Send appends a message. The sender must be the session user; an
// accepted connection is required unless the counterpart is the admin.
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.FromUserID != c.GetString(middleware.CtxUserIDKey) && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "cannot send as another user", nil)
		return
	}
	m, err := h.Svc.Send(c.Request.Context(), req.FromUserID, req.ToUserID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrEmptyBody):
			response.Error[any](c, http.StatusBadRequest, "message body is empty", nil)
		case errors.Is(err, application.ErrConnectionNotApproved):
			response.Error[any](c, http.StatusForbidden, "connection not yet approved", nil)
		case errors.Is(err, application.ErrNotFound):
			response.Error[any](c, http.StatusNotFound, "recipient not found", nil)
		default:
			response.Error[any](c, http.StatusInternalServerError, "failed to send message", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, messageView(m), "message sent", nil)
}

// ListForUser returns the flat ordered message log for a user, self-scoped.
func (h *MessageHandler) ListForUser(c *gin.Context) {
	userID := c.Param("id")
	if userID != c.GetString(middleware.CtxUserIDKey) && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "cannot read another user's messages", nil)
		return
	}
	msgs, err := h.Svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to list messages", nil)
		return
	}
	out := make([]gin.H, 0, len(msgs))
	for i := range msgs {
		out = append(out, messageView(&msgs[i]))
	}
	response.Success(c, http.StatusOK, out, "messages", map[string]any{"count": len(out)})
}

// Conversations returns the per-counterpart threads for the session user.
func (h *MessageHandler) ConversationsForUser(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)
	convs, err := h.Conversations.BuildConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to build conversations", nil)
		return
	}
	response.Success(c, http.StatusOK, convs, "conversations", map[string]any{"count": len(convs)})
}

// MarkRead flags messages from otherUserId to userId as read. Idempotent.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.UserID != c.GetString(middleware.CtxUserIDKey) && !isAdmin(c) {
		response.Error[any](c, http.StatusForbidden, "cannot mark another user's messages", nil)
		return
	}
	if err := h.Svc.MarkRead(c.Request.Context(), req.UserID, req.OtherUserID); err != nil {
		response.Error[any](c, http.StatusInternalServerError, "failed to mark messages read", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"marked": true}, "messages marked read", nil)
}

func messageView(m *entity.Message) gin.H {
	return gin.H{
		"id":             m.ID,
		"from_user_id":   m.FromUserID,
		"to_user_id":     m.ToUserID,
		"body":           m.Body,
		"sent_at":        m.SentAt,
		"read":           m.Read,
		"from_user_name": m.FromName,
		"to_user_name":   m.ToName,
	}
}
