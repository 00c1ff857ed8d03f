package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// compile-time check that *UserRepo implements repository.UserRepository
var _ repository.UserRepository = (*UserRepo)(nil)

// UserRepo provides account persistence on top of a shared DB handle.
type UserRepo struct {
	db *DB
}

// NewUserRepo returns a UserRepo backed by db.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, google_id, avatar_url, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.GoogleID,
		&u.AvatarURL, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new account. The ID and timestamps are assigned here.
// An already-registered email returns apperror.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, google_id, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.GoogleID,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return apperror.Conflict("email already registered")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return user, nil
}

// GetByEmail retrieves an account by its email address.
// Returns apperror.ErrNotFound if the email is not registered.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email,
	)

	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email %s: %w", email, err)
	}

	return user, nil
}

// UpsertGoogle inserts or updates an account based on its Google subject ID.
//
// First federated login creates the account; later logins keep the existing
// internal ID and refresh name/avatar in case they changed on Google. A
// Google login whose email matches an existing password account attaches
// the Google identity to that account instead of creating a duplicate.
func (r *UserRepo) UpsertGoogle(ctx context.Context, user *model.User) error {
	var existingID string
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE google_id = ?`, user.GoogleID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by google_id: %w", err)
	}

	if existingID == "" && user.Email != "" {
		// Same email, different sign-in method: link rather than duplicate.
		err = r.db.conn.QueryRowContext(ctx,
			`SELECT id FROM users WHERE email = ?`, user.Email,
		).Scan(&existingID)
		if err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("sqlite: looking up user by email: %w", err)
		}
	}

	if existingID != "" {
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = r.db.conn.ExecContext(ctx,
			`UPDATE users SET name = ?, google_id = ?, avatar_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.Name,
			user.GoogleID,
			user.AvatarURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		// Preserve fields the federated profile doesn't carry.
		existing, err := r.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		user.Email = existing.Email
		user.PasswordHash = existing.PasswordHash
		user.CreatedAt = existing.CreatedAt
		return nil
	}

	return r.Create(ctx, user)
}
