package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

type ConnectionRepository struct {
	pool *pgxpool.Pool
}

func NewConnectionRepository(pool *pgxpool.Pool) *ConnectionRepository {
	return &ConnectionRepository{pool: pool}
}

func (r *ConnectionRepository) Get(ctx context.Context, seekerID, sponsorID string) (*entity.Connection, error) {
	if !ValidUUID(seekerID) || !ValidUUID(sponsorID) {
		return nil, repository.ErrNotFound
	}
	c := &entity.Connection{}
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, sponsor_id, status, created_at, updated_at
		FROM connections
		WHERE user_id = $1 AND sponsor_id = $2
	`, seekerID, sponsorID).Scan(&c.SeekerID, &c.SponsorID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CreatePending inserts the pending row and its audit entry atomically. An
// insert racing with an identical request is absorbed by the primary key:
// ON CONFLICT DO NOTHING keeps exactly one row per pair.
func (r *ConnectionRepository) CreatePending(ctx context.Context, conn *entity.Connection, audit *entity.AuditEntry) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO connections (user_id, sponsor_id, status)
			VALUES ($1, $2, 'pending')
			ON CONFLICT (user_id, sponsor_id) DO UPDATE SET updated_at = connections.updated_at
			RETURNING status, created_at, updated_at
		`, conn.SeekerID, conn.SponsorID)
		if err := row.Scan(&conn.Status, &conn.CreatedAt, &conn.UpdatedAt); err != nil {
			return err
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *ConnectionRepository) Accept(ctx context.Context, seekerID, sponsorID string, audit *entity.AuditEntry) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `
			UPDATE connections SET status = 'accepted', updated_at = now()
			WHERE user_id = $1 AND sponsor_id = $2 AND status = 'pending'
		`, seekerID, sponsorID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *ConnectionRepository) DeleteDeclined(ctx context.Context, seekerID, sponsorID string, audit *entity.AuditEntry) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `
			DELETE FROM connections
			WHERE user_id = $1 AND sponsor_id = $2 AND status = 'pending'
		`, seekerID, sponsorID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *ConnectionRepository) ListPendingForSponsor(ctx context.Context, sponsorID string) ([]entity.Connection, error) {
	if !ValidUUID(sponsorID) {
		return nil, nil
	}
	return r.list(ctx, `
		SELECT user_id, sponsor_id, status, created_at, updated_at
		FROM connections
		WHERE sponsor_id = $1 AND status = 'pending'
		ORDER BY created_at, user_id
	`, sponsorID)
}

func (r *ConnectionRepository) ListForUser(ctx context.Context, userID string) ([]entity.Connection, error) {
	if !ValidUUID(userID) {
		return nil, nil
	}
	return r.list(ctx, `
		SELECT user_id, sponsor_id, status, created_at, updated_at
		FROM connections
		WHERE user_id = $1 OR sponsor_id = $1
		ORDER BY created_at, user_id
	`, userID)
}

func (r *ConnectionRepository) list(ctx context.Context, sql string, args ...any) ([]entity.Connection, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conns []entity.Connection
	for rows.Next() {
		var c entity.Connection
		if err := rows.Scan(&c.SeekerID, &c.SponsorID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

func (r *ConnectionRepository) CountForSponsor(ctx context.Context, sponsorID, status string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM connections WHERE sponsor_id = $1 AND status = $2`, sponsorID, status)
}

func (r *ConnectionRepository) CountForSeeker(ctx context.Context, seekerID, status string) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM connections WHERE user_id = $1 AND status = $2`, seekerID, status)
}

func (r *ConnectionRepository) count(ctx context.Context, sql string, id, status string) (int, error) {
	if !ValidUUID(id) {
		return 0, nil
	}
	var n int
	if err := r.pool.QueryRow(ctx, sql, id, status).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

var _ repository.ConnectionRepository = (*ConnectionRepository)(nil)
