package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Insert(ctx context.Context, m *entity.Message, audit *entity.AuditEntry) (*entity.Message, error) {
	stored := *m
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO messages (from_user_id, to_user_id, body)
			VALUES ($1, $2, $3)
			RETURNING id, sent_at, read
		`, m.FromUserID, m.ToUserID, m.Body)
		if err := row.Scan(&stored.ID, &stored.SentAt, &stored.Read); err != nil {
			return err
		}
		return insertAudit(ctx, tx, audit)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// ListForUser returns the user's full message log ascending by sent_at, with
// counterpart names joined in so the client never has to resolve ids.
func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]entity.Message, error) {
	if !ValidUUID(userID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.from_user_id, m.to_user_id, m.body, m.sent_at, m.read,
		       COALESCE(NULLIF(fu.full_name, ''), fu.email, 'Unknown'),
		       COALESCE(NULLIF(tu.full_name, ''), tu.email, 'Unknown')
		FROM messages m
		LEFT JOIN users fu ON fu.id = m.from_user_id
		LEFT JOIN users tu ON tu.id = m.to_user_id
		WHERE m.from_user_id = $1 OR m.to_user_id = $1
		ORDER BY m.sent_at, m.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []entity.Message
	for rows.Next() {
		var m entity.Message
		if err := rows.Scan(&m.ID, &m.FromUserID, &m.ToUserID, &m.Body, &m.SentAt, &m.Read, &m.FromName, &m.ToName); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *MessageRepository) MarkRead(ctx context.Context, userID, otherUserID string, audit *entity.AuditEntry) error {
	if !ValidUUID(userID) || !ValidUUID(otherUserID) {
		return nil
	}
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE messages SET read = true
			WHERE to_user_id = $1 AND from_user_id = $2 AND NOT read
		`, userID, otherUserID); err != nil {
			return err
		}
		return insertAudit(ctx, tx, audit)
	})
}

func (r *MessageRepository) CountUnreadForUser(ctx context.Context, userID string) (int, error) {
	if !ValidUUID(userID) {
		return 0, nil
	}
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages WHERE to_user_id = $1 AND NOT read
	`, userID).Scan(&n)
	return n, err
}

func (r *MessageRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM messages WHERE sent_at >= $1`, since).Scan(&n)
	return n, err
}

func (r *MessageRepository) CountUnreadFromSponsors(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM messages m
		JOIN users u ON u.id = m.from_user_id
		JOIN roles r ON r.id = u.role_id
		WHERE r.name = 'sponsor' AND NOT m.read
	`).Scan(&n)
	return n, err
}

var _ repository.MessageRepository = (*MessageRepository)(nil)
