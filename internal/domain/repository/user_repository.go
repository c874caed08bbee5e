package repository

import (
	"context"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
)

// UserRepository defines directory operations over users, the role lookup
// table, and the companion sponsor_backgrounds rows. Implementations return
// users with the role name and vetting flag already resolved.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetAll(ctx context.Context) ([]entity.User, error)
	// UpsertByEmail inserts or updates a user keyed by email and returns the
	// stored row. Role is resolved through the roles table when set.
	UpsertByEmail(ctx context.Context, u *entity.User) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRole(ctx context.Context, id, role string) error
	// DisplayNames resolves user ids to display names in one query. Ids with
	// no matching row are absent from the result.
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)

	CountAll(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role string) (int, error)
	CountAvailableSponsors(ctx context.Context) (int, error)
}

// SponsorRepository covers the vetting side of the directory.
type SponsorRepository interface {
	ListPending(ctx context.Context) ([]entity.User, error)
	// SetVerified flips the sponsor_backgrounds.verified flag, creating the
	// background row when missing.
	SetVerified(ctx context.Context, sponsorID string, verified bool) error
	CountPending(ctx context.Context) (int, error)
}
