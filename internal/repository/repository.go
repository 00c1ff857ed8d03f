// Package repository defines the storage contracts the service layer
// programs against. The sqlite subpackage implements them; tests swap in
// in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/streamhub/internal/model"
	"github.com/sakif/streamhub/internal/policy"
)

// ListOrder selects the sort applied to a stream listing.
type ListOrder int

const (
	// OrderUpdatedDesc sorts newest-updated first. Used by the JSON API.
	OrderUpdatedDesc ListOrder = iota
	// OrderLiveFirst sorts live streams before offline ones, then by
	// update time. Used by the explore page.
	OrderLiveFirst
)

// StreamFilter is the fully-typed listing predicate. Zero values mean
// "no constraint"; IsLive is a pointer so true/false/unset are distinct.
// All set fields combine conjunctively, and the Scope is always applied —
// the optional Visibility filter can narrow the scope but never widen it.
type StreamFilter struct {
	// Scope is the caller's visibility/ownership scope (see policy.ScopeFor).
	Scope policy.Scope
	// Search matches case-insensitive substrings of title or description.
	Search string
	// IsLive filters on the live flag when non-nil.
	IsLive *bool
	// Visibility keeps only the listed values when non-empty.
	Visibility []model.Visibility
	// Order selects the sort; the zero value is OrderUpdatedDesc.
	Order ListOrder
	// Limit and Offset page the result. Limit is clamped by the caller.
	Limit  int
	Offset int
}

// StreamRepository is the storage contract for stream records.
//
// Create and Update must fail with apperror.ErrConflict when the slug
// collides with another record: the UNIQUE index at the storage layer is
// the actual uniqueness guarantee, and the conflict signal is what lets
// the service retry with the next suffix.
type StreamRepository interface {
	Create(ctx context.Context, stream *model.Stream) error
	GetByID(ctx context.Context, id string) (*model.Stream, error)
	GetBySlug(ctx context.Context, slug string) (*model.Stream, error)
	List(ctx context.Context, filter StreamFilter) ([]model.Stream, error)
	Update(ctx context.Context, stream *model.Stream) error
	Delete(ctx context.Context, id string) error
}

// UserRepository is the storage contract for accounts. Create fails with
// apperror.ErrConflict when the email is already registered; UpsertGoogle
// keeps the internal ID stable across repeat federated logins.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertGoogle(ctx context.Context, user *model.User) error
}
