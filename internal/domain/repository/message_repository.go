package repository

import (
	"context"
	"time"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

// MessageRepository is the append-only message log.
type MessageRepository interface {
	// Insert appends a message and its audit entry in one transaction,
	// returning the stored row with id and sent_at filled in.
	Insert(ctx context.Context, m *entity.Message, audit *entity.AuditEntry) (*entity.Message, error)
	// ListForUser returns every message the user sent or received, ordered
	// by sent_at ascending, with sender/recipient names denormalized.
	ListForUser(ctx context.Context, userID string) ([]entity.Message, error)
	// MarkRead flags all messages from otherUserID to userID as read.
	// Idempotent.
	MarkRead(ctx context.Context, userID, otherUserID string, audit *entity.AuditEntry) error

	CountUnreadForUser(ctx context.Context, userID string) (int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountUnreadFromSponsors(ctx context.Context) (int, error)
}

// AuditRepository is the append-only audit trail consumed by the activity
// feed. Writes that must be atomic with another row change go through the
// owning repository instead.
type AuditRepository interface {
	Append(ctx context.Context, e *entity.AuditEntry) error
	// QueryByActions returns the newest rows whose action is in the given
	// set, newest first, capped at limit.
	QueryByActions(ctx context.Context, actions []string, limit int) ([]entity.AuditEntry, error)
}
