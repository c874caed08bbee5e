package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sobrhq/sobr-server/internal/container"
	handlers "github.com/sobrhq/sobr-server/internal/interface/http"
	"github.com/sobrhq/sobr-server/internal/interface/middleware"
	"github.com/sobrhq/sobr-server/pkg/helpers"
)

// MessageModule wires the messaging gateway and conversation routes.
type MessageModule struct {
	Handler *handlers.MessageHandler
	JWT     *helpers.JWTManager
}

func NewMessageModule(h *handlers.MessageHandler, jwt *helpers.JWTManager) *MessageModule {
	return &MessageModule{Handler: h, JWT: jwt}
}

func (m *MessageModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.POST("/messages", m.Handler.Send)
		auth.GET("/messages/user/:id", m.Handler.ListForUser)
		auth.POST("/messages/mark-read", m.Handler.MarkRead)
		auth.GET("/conversations", m.Handler.ConversationsForUser)
	}
}
