package application

import (
	"context"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

// RequestSentPlaceholder is shown to a seeker for a connection that has no
// messages yet.
const RequestSentPlaceholder = "Request sent"

// ConversationService derives per-viewer conversation views from the flat
// message log. It holds no state of its own: identical inputs produce
// identical output.
type ConversationService struct {
	Users       repository.UserRepository
	Messages    repository.MessageRepository
	Connections repository.ConnectionRepository
}

func NewConversationService(users repository.UserRepository, msgs repository.MessageRepository, conns repository.ConnectionRepository) *ConversationService {
	return &ConversationService{Users: users, Messages: msgs, Connections: conns}
}

// BuildConversations groups the viewer's message log by counterpart,
// ascending sent_at within each group, and surfaces messageless connections
// the viewer initiated as empty "Request sent" conversations. Conversation
// order follows first message appearance, then connection creation; both
// orders are total, so repeated calls over an unchanged log are identical.
func (s *ConversationService) BuildConversations(ctx context.Context, viewerID string) ([]entity.Conversation, error) {
	msgs, err := s.Messages.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string]*entity.Conversation)

	for _, m := range msgs {
		counterpartID := m.FromUserID
		counterpartName := m.FromName
		if m.FromUserID == viewerID {
			counterpartID = m.ToUserID
			counterpartName = m.ToName
		}
		conv, ok := groups[counterpartID]
		if !ok {
			conv = &entity.Conversation{
				CounterpartID:   counterpartID,
				CounterpartName: counterpartName,
				CounterpartRole: entity.RoleUser,
				IsRead:          true,
			}
			groups[counterpartID] = conv
			order = append(order, counterpartID)
		}
		conv.Messages = append(conv.Messages, m)
		conv.LastMessage = m.Body
		conv.LastMessageTime = m.SentAt
		if m.ToUserID == viewerID && !m.Read {
			conv.IsRead = false
		}
	}

	// Connections without any messages yet surface only on the requester's
	// own view, as an empty conversation with a placeholder.
	conns, err := s.Connections.ListForUser(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	for _, c := range conns {
		if c.SeekerID != viewerID || c.Status == entity.ConnectionDeclined {
			continue
		}
		if _, ok := groups[c.SponsorID]; ok {
			continue
		}
		conv := &entity.Conversation{
			CounterpartID:   c.SponsorID,
			CounterpartRole: entity.RoleSponsor,
			IsRead:          true,
			Placeholder:     RequestSentPlaceholder,
			LastMessageTime: c.CreatedAt,
		}
		groups[c.SponsorID] = conv
		order = append(order, c.SponsorID)
	}

	out := make([]entity.Conversation, 0, len(order))
	for _, id := range order {
		conv := groups[id]
		s.resolveCounterpart(ctx, conv)
		out = append(out, *conv)
	}
	return out, nil
}

// resolveCounterpart fills in the directory name and role, keeping the
// denormalized message name as fallback for users no longer resolvable.
func (s *ConversationService) resolveCounterpart(ctx context.Context, conv *entity.Conversation) {
	if u, err := s.Users.GetByID(ctx, conv.CounterpartID); err == nil {
		conv.CounterpartName = u.DisplayName()
		conv.CounterpartRole = u.Role
		return
	}
	if conv.CounterpartName == "" {
		conv.CounterpartName = conv.CounterpartID
	}
}
