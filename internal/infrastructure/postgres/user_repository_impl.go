package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sobrhq/sobr-server/internal/domain/entity"
	"github.com/sobrhq/sobr-server/internal/domain/repository"
)

const userColumns = `
	u.id, u.email, u.password_hash, u.full_name, u.avatar_url,
	COALESCE(r.name, 'user'),
	COALESCE(b.verified, false),
	COALESCE(b.qualifications, '{}'),
	COALESCE(b.years_of_experience, 0),
	COALESCE(b.motivation, ''),
	u.metadata, u.created_at, u.updated_at`

const userJoins = `
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
	LEFT JOIN sponsor_backgrounds b ON b.sponsor_user_id = u.id`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*entity.User, error) {
	u := &entity.User{}
	var metadata []byte
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.AvatarURL,
		&u.Role, &u.Vetted, &u.Qualifications, &u.YearsOfExperience, &u.Motivation,
		&metadata, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &u.Metadata)
	}
	if goals, ok := u.Metadata["recoveryGoals"].([]any); ok {
		for _, g := range goals {
			if s, ok := g.(string); ok {
				u.RecoveryGoals = append(u.RecoveryGoals, s)
			}
		}
	}
	return u, nil
}

func marshalMetadata(m map[string]any) []byte {
	if m == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return []byte("{}")
	}
	return b
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, avatar_url, role_id, metadata)
		VALUES ($1, $2, $3, $4, (SELECT id FROM roles WHERE name = $5), $6)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.AvatarURL, roleOrDefault(u.Role), marshalMetadata(u.Metadata))

	return row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if !ValidUUID(id) {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT`+userColumns+userJoins+` WHERE u.id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT`+userColumns+userJoins+` WHERE lower(u.email) = lower($1)`, email))
}

func (r *UserRepository) GetAll(ctx context.Context) ([]entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+userColumns+userJoins+` ORDER BY u.created_at, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpsertByEmail mirrors the original registration flow: the row is keyed by
// email, the id is kept only when it is a well-formed UUID, and the role is
// resolved through the lookup table.
func (r *UserRepository) UpsertByEmail(ctx context.Context, u *entity.User) (*entity.User, error) {
	var id string
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, full_name, role_id, metadata)
		VALUES ($1, $2, (SELECT id FROM roles WHERE name = $3), $4)
		ON CONFLICT (email) DO UPDATE SET
			full_name = CASE WHEN EXCLUDED.full_name <> '' THEN EXCLUDED.full_name ELSE users.full_name END,
			role_id = COALESCE(EXCLUDED.role_id, users.role_id),
			metadata = users.metadata || EXCLUDED.metadata,
			updated_at = now()
		RETURNING id
	`, u.Email, u.Name, roleOrDefault(u.Role), marshalMetadata(u.Metadata))
	if err := row.Scan(&id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, full_name = $2, avatar_url = $3, metadata = $4, updated_at = $5
		WHERE id = $6
	`, u.Email, u.Name, u.AvatarURL, marshalMetadata(u.Metadata), u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2
	`, passwordHash, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetRole(ctx context.Context, id, role string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET role_id = (SELECT id FROM roles WHERE name = $1), updated_at = now()
		WHERE id = $2
	`, role, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if ValidUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return names, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(NULLIF(full_name, ''), email, id::text)
		FROM users WHERE id = ANY($1)`, valid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (r *UserRepository) CountAll(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM users`)
}

func (r *UserRepository) CountByRole(ctx context.Context, role string) (int, error) {
	return r.count(ctx, `
		SELECT count(*) FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE r.name = $1`, role)
}

func (r *UserRepository) CountAvailableSponsors(ctx context.Context) (int, error) {
	return r.count(ctx, `
		SELECT count(*) FROM users u
		JOIN roles r ON r.id = u.role_id
		JOIN sponsor_backgrounds b ON b.sponsor_user_id = u.id
		WHERE r.name = 'sponsor' AND b.verified`)
}

func (r *UserRepository) count(ctx context.Context, sql string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func roleOrDefault(role string) string {
	if role == "" {
		return entity.RoleUser
	}
	return role
}

var _ repository.UserRepository = (*UserRepository)(nil)
