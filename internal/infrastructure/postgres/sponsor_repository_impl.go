package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

type SponsorRepository struct {
	pool *pgxpool.Pool
}

func NewSponsorRepository(pool *pgxpool.Pool) *SponsorRepository {
	return &SponsorRepository{pool: pool}
}

func (r *SponsorRepository) ListPending(ctx context.Context) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+userColumns+userJoins+`
		WHERE r.name = 'sponsor' AND NOT COALESCE(b.verified, false)
		ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *u)
	}
	return pending, rows.Err()
}

func (r *SponsorRepository) SetVerified(ctx context.Context, sponsorID string, verified bool) error {
	if !ValidUUID(sponsorID) {
		return repository.ErrNotFound
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, sponsorID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sponsor_backgrounds (sponsor_user_id, verified)
		VALUES ($1, $2)
		ON CONFLICT (sponsor_user_id) DO UPDATE SET verified = $2, updated_at = now()
	`, sponsorID, verified)
	return err
}

func (r *SponsorRepository) CountPending(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users u
		JOIN roles r ON r.id = u.role_id
		LEFT JOIN sponsor_backgrounds b ON b.sponsor_user_id = u.id
		WHERE r.name = 'sponsor' AND NOT COALESCE(b.verified, false)
	`).Scan(&n)
	return n, err
}

var _ repository.SponsorRepository = (*SponsorRepository)(nil)
