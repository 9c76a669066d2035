package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/storefront/internal/domain/auth"
)

const (
	insertUserSQL = `INSERT INTO users (id, email, first_name, last_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	userColumns = `id, email, first_name, last_name, password_hash, role, created_at`

	getUserByEmailSQL = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	getUserByIDSQL    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
)

var _ auth.Repository = (*UserRepository)(nil)

// UserRepository implements auth.Repository backed by PostgreSQL.
type UserRepository struct {
	db *DB
}

// NewUserRepository returns a UserRepository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts u. Emails are unique.
func (r *UserRepository) Create(ctx context.Context, u *auth.User) error {
	err := r.db.conn(ctx).QueryRow(ctx, insertUserSQL,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, string(u.Role),
	).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return auth.ErrEmailTaken
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

// FindByEmail looks up a user by lower-cased email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.findOne(ctx, getUserByEmailSQL, email)
}

// FindByID looks up a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return r.findOne(ctx, getUserByIDSQL, id)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*auth.User, error) {
	rows, err := r.db.conn(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	u, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.User, error) {
		var (
			u    auth.User
			role string
		)
		err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &role, &u.CreatedAt)
		u.Role = auth.Role(role)
		return u, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "find user")
	}
	return &u, nil
}
