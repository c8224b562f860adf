package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/parkshare/internal/model"
)

// UserRepo persists resident accounts.  Residents act as both owners
// and claimers so there is no role column.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user with an already hashed password and returns its
// ID.  The email is normalised to lower case; a taken email yields
// ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, name, passwordHash string) (uint64, error) {
	email = normalizeEmail(email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, name, password_hash) VALUES (?,?,?)",
		email, strings.TrimSpace(name), passwordHash)
	if err != nil {
		if violates(err, "uq_users_email") {
			return 0, ErrEmailExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalised email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT id,email,name,password_hash,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		normalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx,
		"SELECT id,email,name,password_hash,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
