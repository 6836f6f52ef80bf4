package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/security/auth"
	"github.com/karthickst/agenticosv2.0/pkg/database"
)

// UserRepository implements domain.UserRepository
type UserRepository struct {
	base
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.ConnectionPool, notifier domain.ChangeNotifier, logger *slog.Logger) *UserRepository {
	return &UserRepository{base: newBase(db, notifier, logger, "user")}
}

const userColumns = `id, email, name, password, created_at`

func scanUser(s scanner) (*domain.User, error) {
	u := &domain.User{}
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// Create normalizes the input, hashes the password and stores the user.
func (r *UserRepository) Create(ctx context.Context, in domain.CreateUserInput) (*domain.User, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	if _, err := r.GetByEmail(ctx, in.Email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, r.fail("create", err)
	}

	u := &domain.User{Email: in.Email, Name: in.Name, PasswordHash: hashed, CreatedAt: nowMillis()}
	u.ID, err = r.db.Insert(ctx,
		`INSERT INTO users (email, name, password, created_at) VALUES (?,?,?,?)`,
		u.Email, u.Name, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, r.fail("create", err, slog.String("email", u.Email))
	}

	r.changed("create")
	r.logger.Info("user created", slog.Int64("user_id", u.ID))
	return u, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, r.fail("get", err, slog.Int64("id", id))
	}
	r.read("get")
	return u, nil
}

// GetByEmail looks a user up by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, r.fail("get_by_email", err)
	}
	r.read("get_by_email")
	return u, nil
}

// UpdatePassword stores a new hash for the given plaintext password.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, password string) error {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return r.fail("update_password", err)
	}
	res, err := r.db.Exec(ctx, `UPDATE users SET password = ? WHERE id = ?`, hashed, id)
	if err != nil {
		return r.fail("update_password", err, slog.Int64("id", id))
	}
	if err := expectRow(res); err != nil {
		return r.fail("update_password", err)
	}
	r.changed("update_password")
	return nil
}
