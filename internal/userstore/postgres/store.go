package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"

	"github.com/MrEthical07/contentauth"
)

// querier is the subset of *pgxpool.Pool used by UserStore. pgxmock pools
// satisfy it in tests.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// UserStore implements contentauth.UserStore.
type UserStore struct {
	db  querier
	now func() time.Time
}

var _ contentauth.UserStore = (*UserStore)(nil)

// New wraps an existing pool.
func New(db querier) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

// Connect opens a pgx pool for databaseURL and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("USERSTORE_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.Code("USERSTORE_CONNECT_FAILED").With("operation", "ping").Wrap(err)
	}
	return pool, nil
}

const selectUser = `
	SELECT id, username, nickname, password_hash, email, avatar,
	       is_delete, created_at, updated_at
	FROM users
	WHERE username = $1
`

// GetByUsername returns the account whose login handle is username.
// Soft-deleted accounts are returned with IsDeleted set; the engine decides
// what to do with them.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*contentauth.User, error) {
	var u contentauth.User
	err := s.db.QueryRow(ctx, selectUser, username).Scan(
		&u.ID,
		&u.Username,
		&u.Nickname,
		&u.PasswordHash,
		&u.Email,
		&u.Avatar,
		&u.IsDeleted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(contentauth.ErrUserNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return &u, nil
}

// UpdatePasswordHash stores a new hash for a live account.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1 AND NOT is_delete
	`, userID, passwordHash, s.now().UTC())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update password hash").
			With("user_id", userID).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("user_id", userID).
			Wrap(contentauth.ErrUserNotFound)
	}
	return nil
}

// Create inserts u. An empty ID is replaced with a random UUID; timestamps
// are set to now.
func (s *UserStore) Create(ctx context.Context, u *contentauth.User) error {
	if u == nil {
		return oops.Code("USER_CREATE_FAILED").Errorf("user is nil")
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := s.db.Exec(ctx, `
		INSERT INTO users (
			id, username, nickname, password_hash, email, avatar,
			is_delete, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		u.ID,
		u.Username,
		u.Nickname,
		u.PasswordHash,
		u.Email,
		u.Avatar,
		u.IsDeleted,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", u.Username).
			Wrap(err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *UserStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return oops.Code("USERSTORE_UNAVAILABLE").Wrap(err)
	}
	return nil
}
