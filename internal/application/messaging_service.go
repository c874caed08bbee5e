package application

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

// MessagingService is the append-only message gateway. Sending between a
// seeker and a sponsor requires an accepted connection; the admin identity
// is reachable unconditionally as the support escape hatch.
type MessagingService struct {
	Users       repository.UserRepository
	Messages    repository.MessageRepository
	Connections *ConnectionService
	AdminEmail  string
	Logger      *logrus.Logger

	adminOnce sync.Once
	adminID   string
}

func NewMessagingService(users repository.UserRepository, msgs repository.MessageRepository, conns *ConnectionService, adminEmail string, logger *logrus.Logger) *MessagingService {
	return &MessagingService{Users: users, Messages: msgs, Connections: conns, AdminEmail: adminEmail, Logger: logger}
}

// AdminID resolves the well-known admin identity once on first use.
func (s *MessagingService) AdminID(ctx context.Context) string {
	s.adminOnce.Do(func() {
		u, err := s.Users.GetByEmail(ctx, s.AdminEmail)
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("email", s.AdminEmail).Warn("admin identity not resolvable")
			}
			return
		}
		s.adminID = u.ID
	})
	return s.adminID
}

// Send appends a message. The body must be non-empty after trimming, and the
// pair must hold an accepted connection unless either side is the admin
// identity. A denied send is an explicit error, never a silent drop.
func (s *MessagingService) Send(ctx context.Context, fromUserID, toUserID, body string) (*entity.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	admin := s.AdminID(ctx)
	if fromUserID != admin && toUserID != admin {
		approved, err := s.pairAccepted(ctx, fromUserID, toUserID)
		if err != nil {
			return nil, err
		}
		if !approved {
			return nil, ErrConnectionNotApproved
		}
	}

	msg := &entity.Message{FromUserID: fromUserID, ToUserID: toUserID, Body: body}
	audit := &entity.AuditEntry{
		ActorUserID: fromUserID,
		Action:      entity.AuditMessageSent,
		TargetType:  "message",
		TargetID:    toUserID,
		Metadata:    map[string]any{"to_user_id": toUserID},
	}
	stored, err := s.Messages.Insert(ctx, msg, audit)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"from": fromUserID, "to": toUserID, "message_id": stored.ID}).Debug("message sent")
	}
	return stored, nil
}

// pairAccepted checks the connection in both orientations; either side of
// an accepted pair may message the other.
func (s *MessagingService) pairAccepted(ctx context.Context, a, b string) (bool, error) {
	if ok, err := s.Connections.IsAccepted(ctx, a, b); err != nil || ok {
		return ok, err
	}
	return s.Connections.IsAccepted(ctx, b, a)
}

// ListForUser returns every message the user sent or received, ascending by
// sent_at, with display names attached.
func (s *MessagingService) ListForUser(ctx context.Context, userID string) ([]entity.Message, error) {
	return s.Messages.ListForUser(ctx, userID)
}

// MarkRead flags all messages from otherUserID to userID as read. Idempotent.
func (s *MessagingService) MarkRead(ctx context.Context, userID, otherUserID string) error {
	audit := &entity.AuditEntry{
		ActorUserID: userID,
		Action:      entity.AuditMessagesRead,
		TargetType:  "message",
		TargetID:    otherUserID,
		Metadata:    map[string]any{"userId": userID, "fromUserId": otherUserID},
	}
	return s.Messages.MarkRead(ctx, userID, otherUserID, audit)
}
