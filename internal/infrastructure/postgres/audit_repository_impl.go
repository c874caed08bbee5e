package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx, so the same insert
// serves standalone appends and transactional writes from other repos.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertAudit(ctx context.Context, q execer, e *entity.AuditEntry) error {
	if e == nil {
		return nil
	}
	var actor any
	if ValidUUID(e.ActorUserID) {
		actor = e.ActorUserID
	}
	md, err := json.Marshal(e.Metadata)
	if err != nil {
		md = []byte("{}")
	}
	_, err = q.Exec(ctx, `
		INSERT INTO audit_logs (actor_user_id, action, target_type, target_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`, actor, e.Action, e.TargetType, e.TargetID, md)
	return err
}

func (r *AuditRepository) Append(ctx context.Context, e *entity.AuditEntry) error {
	return insertAudit(ctx, r.pool, e)
}

func (r *AuditRepository) QueryByActions(ctx context.Context, actions []string, limit int) ([]entity.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(actor_user_id::text, ''), action, target_type, target_id, metadata, created_at
		FROM audit_logs
		WHERE action = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`, actions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		var md []byte
		if err := rows.Scan(&e.ID, &e.ActorUserID, &e.Action, &e.TargetType, &e.TargetID, &md, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(md) > 0 {
			_ = json.Unmarshal(md, &e.Metadata)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// inTx runs fn inside a transaction, committing on nil error.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
