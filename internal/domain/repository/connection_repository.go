package repository

import (
	"context"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

// ConnectionRepository tracks seeker→sponsor pairing requests. Mutating
// methods take the audit entry that must land atomically with the row
// change; implementations commit both in a single transaction or neither.
type ConnectionRepository interface {
	Get(ctx context.Context, seekerID, sponsorID string) (*entity.Connection, error)
	// CreatePending inserts a pending connection and the audit entry in one
	// transaction. Returns ErrNotFound only on storage faults, never for a
	// pre-existing row (callers check first).
	CreatePending(ctx context.Context, conn *entity.Connection, audit *entity.AuditEntry) error
	// Accept transitions pending → accepted together with its audit entry.
	Accept(ctx context.Context, seekerID, sponsorID string, audit *entity.AuditEntry) error
	// DeleteDeclined removes the row (original product behavior: a declined
	// seeker may re-request) together with its audit entry.
	DeleteDeclined(ctx context.Context, seekerID, sponsorID string, audit *entity.AuditEntry) error

	ListPendingForSponsor(ctx context.Context, sponsorID string) ([]entity.Connection, error)
	ListForUser(ctx context.Context, userID string) ([]entity.Connection, error)
	CountForSponsor(ctx context.Context, sponsorID, status string) (int, error)
	CountForSeeker(ctx context.Context, seekerID, status string) (int, error)
}
