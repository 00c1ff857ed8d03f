// Package service — authentication business logic.
//
// AuthService sits between the HTTP handlers and the user repository plus
// auth utilities:
//
//	AuthHandler (HTTP) → AuthService (rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
//
// Two sign-in paths end in the same place: email/password registration and
// login, and the Google OAuth callback. Both produce an AuthResult bundling
// the user record with a freshly issued JWT, and the handler turns that
// into the session cookie.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/repository"
)

// MinPasswordLength is the floor for new account passwords.
const MinPasswordLength = 6

// emailPattern is deliberately loose: one @ with something on both sides
// and a dot in the domain. Real validation is the confirmation email's job
// (out of scope); this only catches obvious typos.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a password account.
//
// The email is lowercased and trimmed before the uniqueness check so
// "Jane@Example.com" and "jane@example.com" are the same account. An
// already-registered email surfaces as ErrConflict (409 at the boundary).
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperror.ValidationFailed("email", "email is not valid")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", "password is not usable")
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: registering user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login verifies an email/password pair and issues a token.
//
// Every failure mode — unknown email, OAuth-only account, wrong password —
// returns the same unauthorized error, so a caller can't probe which
// emails are registered.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("", "email and password are required")
	}

	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	// Accounts created via Google have no password to verify against.
	if user.PasswordHash == "" {
		return nil, invalid
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, invalid
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return &AuthResult{User: user, Token: token}, nil
}

// LoginOrRegisterGoogle handles the Google OAuth callback: upsert the user
// (create on first login, refresh profile on later ones) and issue a token.
func (s *AuthService) LoginOrRegisterGoogle(ctx context.Context, gUser *auth.GoogleUser) (*AuthResult, error) {
	if gUser == nil {
		return nil, fmt.Errorf("service/auth: Google user must not be nil")
	}

	user := &model.User{
		Name:      gUser.Name,
		Email:     strings.ToLower(strings.TrimSpace(gUser.Email)),
		GoogleID:  gUser.ID,
		AvatarURL: gUser.Picture,
	}

	if err := s.users.UpsertGoogle(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (googleID=%s): %w", gUser.ID, err)
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userID", user.ID),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID. Used by the
// /api/me handler after the middleware validates the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}
