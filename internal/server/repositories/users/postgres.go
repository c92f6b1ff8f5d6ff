// Package users provides the PostgreSQL-backed user repository.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/taskkeeper/internal/common"
	"github.com/dmitrijs2005/taskkeeper/internal/dbx"
	"github.com/dmitrijs2005/taskkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, email, password_hash, tokens,
		(avatar IS NOT NULL OR avatar_key IS NOT NULL), COALESCE(avatar_key, ''),
		created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user with token as the only entry of its token list.
// A taken email yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User, token string) (*models.User, error) {
	query :=
		`INSERT INTO users (id, name, email, password_hash, tokens)
		 VALUES ($1, $2, $3, $4, ARRAY[$5]::text[])
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, token).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Tokens = []string{token}
	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.queryUser(ctx, query, id)
}

// GetByEmail matches case-insensitively, like the unique index.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.queryUser(ctx, query, email)
}

// Update applies every non-nil field of patch in one statement.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	query :=
		`UPDATE users SET
			name = COALESCE($2, name),
			email = COALESCE($3, email),
			password_hash = COALESCE($4, password_hash),
			updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	u, err := r.queryUser(ctx, query, id, nullString(patch.Name), nullString(patch.Email), patch.PasswordHash)
	if err != nil && dbx.IsUniqueViolation(err) {
		return nil, common.ErrorAlreadyExists
	}
	return u, err
}

// Delete removes the record and returns it as it was. Tokens and avatar are
// columns of the same row and tasks cascade, so nothing outlives the user.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (*models.User, error) {
	query := `DELETE FROM users WHERE id = $1 RETURNING ` + userColumns
	return r.queryUser(ctx, query, id)
}

// AppendToken adds token to the end of the user's token list.
func (r *PostgresRepository) AppendToken(ctx context.Context, id string, token string) error {
	query :=
		`UPDATE users SET tokens = array_append(tokens, $2), updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, token)
}

// RemoveToken drops token from the user's token list. Removing an absent
// token is not an error.
func (r *PostgresRepository) RemoveToken(ctx context.Context, id string, token string) error {
	query :=
		`UPDATE users SET tokens = array_remove(tokens, $2), updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, token)
}

func (r *PostgresRepository) ClearTokens(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET tokens = '{}', updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id)
}

// SetAvatar stores either inline data or an object storage key; the other
// column is cleared.
func (r *PostgresRepository) SetAvatar(ctx context.Context, id string, data []byte, key string) error {
	query :=
		`UPDATE users SET avatar = $2, avatar_key = NULLIF($3, ''), updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id, data, key)
}

func (r *PostgresRepository) ClearAvatar(ctx context.Context, id string) error {
	query :=
		`UPDATE users SET avatar = NULL, avatar_key = NULL, updated_at = now()
		 WHERE id = $1
		 `
	return r.execOne(ctx, query, id)
}

// GetAvatar returns the inline bytes or the object key. A user without an
// avatar yields common.ErrorNotFound.
func (r *PostgresRepository) GetAvatar(ctx context.Context, id string) ([]byte, string, error) {
	query :=
		`SELECT avatar, COALESCE(avatar_key, '') FROM users
		 WHERE id = $1
		 `
	var data []byte
	var key string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&data, &key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", common.ErrorNotFound
		}
		return nil, "", fmt.Errorf("db error: %w", err)
	}
	if len(data) == 0 && key == "" {
		return nil, "", common.ErrorNotFound
	}
	return data, key, nil
}

func (r *PostgresRepository) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, textArray(&user.Tokens),
		&user.HasAvatar, &user.AvatarKey, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// textArray scans a Postgres text[] into dst. A Map is built per call
// because pgtype.Map is not safe for concurrent use.
func textArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
