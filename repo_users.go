package auth

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

const pgUniqueViolation = "23505"

type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error
	UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error
}

type users struct {
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithUsersClock sets the clock used to stamp created_at
func WithUsersClock(now func() time.Time) UsersOption {
	return func(u *users) {
		if now != nil {
			u.now = now
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := &users{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	return a.GetByIDTx(ctx, a.db, id)
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, notFoundOr(err, map[string]any{"id": id})
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, notFoundOr(err, nil)
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

// RegisterTx inserts a new user. The unique email index is the source of
// truth for conflicts, so two concurrent registrations can not both win.
func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, ErrUnableToParseData
	}

	prepareUserDefaults(user, a.now)

	if _, err := tx.NewInsert().Model(user).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyRegistered
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to insert user")
	}

	return user, nil
}

func (a *users) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	return a.UpdatePasswordHashTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordHashTx(ctx context.Context, tx bun.IDB, id int64, passwordHash string) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("password_hash = ?", passwordHash).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update password hash")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

// NormalizeEmail is the canonical form of the login lookup key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func prepareUserDefaults(record *User, now func() time.Time) {
	record.Email = NormalizeEmail(record.Email)
	record.Username = getUsername(strings.TrimSpace(record.Username), record.Email)
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now().UTC()
	}
}

func notFoundOr(err error, metadata map[string]any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrIdentityNotFound
	}
	wrapped := errors.Wrap(err, errors.CategoryInternal, "failed to query users")
	if metadata != nil {
		wrapped = wrapped.WithMetadata(metadata)
	}
	return wrapped
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
