package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
)

func TestUserCreate(t *testing.T) {
	_, users := newTestRepos(t)

	user := &model.User{
		Name:         "Ada",
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$fakehash",
	}
	if err := users.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Error("expected Create to assign an ID")
	}

	got, err := users.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "ada@example.com" || got.PasswordHash != "$2a$10$fakehash" {
		t.Errorf("persisted user = %+v", got)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	_, users := newTestRepos(t)
	createTestUser(t, users, "ada@example.com")

	dup := &model.User{Name: "Other", Email: "ada@example.com"}
	err := users.Create(context.Background(), dup)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("Create(duplicate email) error = %v, want ErrConflict", err)
	}
}

func TestUserGetByEmail(t *testing.T) {
	_, users := newTestRepos(t)
	created := createTestUser(t, users, "ada@example.com")

	got, err := users.GetByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("GetByEmail() ID = %q, want %q", got.ID, created.ID)
	}

	if _, err := users.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	_, users := newTestRepos(t)

	_, err := users.GetByID(context.Background(), "no-such-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrNotFound", err)
	}
}

func TestUserUpsertGoogle_NewUser(t *testing.T) {
	_, users := newTestRepos(t)

	user := &model.User{
		Name:      "Ada",
		Email:     "ada@example.com",
		GoogleID:  "g-123",
		AvatarURL: "https://example.com/a.png",
	}
	if err := users.UpsertGoogle(context.Background(), user); err != nil {
		t.Fatalf("UpsertGoogle() error = %v", err)
	}
	if user.ID == "" {
		t.Error("expected UpsertGoogle to assign an ID for a new user")
	}
}

// Repeat federated logins must keep the internal ID stable while picking
// up profile changes from Google.
func TestUserUpsertGoogle_ExistingUser(t *testing.T) {
	_, users := newTestRepos(t)
	ctx := context.Background()

	first := &model.User{Name: "Ada", Email: "ada@example.com", GoogleID: "g-123"}
	if err := users.UpsertGoogle(ctx, first); err != nil {
		t.Fatalf("first UpsertGoogle() error = %v", err)
	}
	stored, err := users.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	second := &model.User{Name: "Ada Lovelace", Email: "ada@example.com", GoogleID: "g-123", AvatarURL: "https://example.com/new.png"}
	if err := users.UpsertGoogle(ctx, second); err != nil {
		t.Fatalf("second UpsertGoogle() error = %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("internal ID changed across logins: %q then %q", first.ID, second.ID)
	}

	got, err := users.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Ada Lovelace" || got.AvatarURL != "https://example.com/new.png" {
		t.Errorf("profile not refreshed: %+v", got)
	}
	if !got.CreatedAt.Equal(stored.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v then %v", stored.CreatedAt, got.CreatedAt)
	}
}

// A Google login whose email matches a password account attaches to that
// account instead of creating a second one, keeping the password intact.
func TestUserUpsertGoogle_LinksByEmail(t *testing.T) {
	_, users := newTestRepos(t)
	ctx := context.Background()

	registered := &model.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "$2a$10$fakehash"}
	if err := users.Create(ctx, registered); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	federated := &model.User{Name: "Ada", Email: "ada@example.com", GoogleID: "g-123"}
	if err := users.UpsertGoogle(ctx, federated); err != nil {
		t.Fatalf("UpsertGoogle() error = %v", err)
	}

	if federated.ID != registered.ID {
		t.Errorf("linked ID = %q, want existing account %q", federated.ID, registered.ID)
	}
	if federated.PasswordHash != "$2a$10$fakehash" {
		t.Error("linking must preserve the password hash")
	}

	got, err := users.GetByID(ctx, registered.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.GoogleID != "g-123" {
		t.Errorf("GoogleID = %q, want attached identity", got.GoogleID)
	}
}
