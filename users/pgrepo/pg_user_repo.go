// Package pgrepo stores users in PostgreSQL through a pgx connection pool.
package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/users"
)

var _ users.Repo = (*PgUserRepo)(nil)

const userColumns = `id, username, email, password_hash, is_active, created_at, updated_at`

type PgUserRepo struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("[pgrepo Connect] failed to parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("[pgrepo Connect] failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("[pgrepo Connect] ping failed: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *PgUserRepo {
	return &PgUserRepo{pool: pool}
}

func (r *PgUserRepo) Create(ctx context.Context, user *users.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash, user.IsActive)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if isDuplicateKey(err) {
			return apperrors.ErrUserExists
		}
		return fmt.Errorf("[PgUserRepo Create] %w", err)
	}
	return nil
}

func (r *PgUserRepo) Upsert(ctx context.Context, user *users.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email,
			password_hash = EXCLUDED.password_hash,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		user.Username, user.Email, user.PasswordHash, user.IsActive)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return fmt.Errorf("[PgUserRepo Upsert] %w", err)
	}
	return nil
}

func (r *PgUserRepo) GetByUsername(ctx context.Context, username string) (*users.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		return nil, fmt.Errorf("[PgUserRepo GetByUsername] %w", err)
	}
	return collectOne(rows)
}

func (r *PgUserRepo) GetByID(ctx context.Context, id int64) (*users.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("[PgUserRepo GetByID] %w", err)
	}
	return collectOne(rows)
}

func (r *PgUserRepo) Delete(ctx context.Context, username string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("[PgUserRepo Delete] %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

func (r *PgUserRepo) List(ctx context.Context, offset, limit int) ([]*users.User, error) {
	if offset < 0 {
		offset = 0
	}
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1 LIMIT $2`, offset, limit)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id OFFSET $1`, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("[PgUserRepo List] %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[userRow])
	if err != nil {
		return nil, fmt.Errorf("[PgUserRepo List] %w", err)
	}
	out := make([]*users.User, 0, len(list))
	for _, row := range list {
		out = append(out, row.toUser())
	}
	return out, nil
}

type userRow struct {
	ID           int64
	Username     string
	Email        *string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *userRow) toUser() *users.User {
	return &users.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func collectOne(rows pgx.Rows) (*users.User, error) {
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[userRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, err
	}
	return row.toUser(), nil
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
