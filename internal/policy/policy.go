// Package policy decides what a caller may do with a stream.
//
// Every function takes the caller identity as an explicit parameter — an
// empty callerID means anonymous. Nothing here reads ambient session state,
// touches the database, or knows about HTTP, so the whole access model is
// testable with plain function calls.
//
// Leakage policy: a private stream is reported as not-found (not forbidden)
// on the read path, so a non-owner can never confirm it exists. Mutation
// paths return forbidden on an ownership mismatch for every visibility
// level; they already require an authenticated caller and match the
// conflict signals the slug machinery exposes anyway.
package policy

import (
	"github.com/sakif/streamhub/internal/apperror"
	"github.com/sakif/streamhub/internal/model"
)

// CanView reports whether the caller may read the stream via direct link.
// Public and unlisted streams are viewable by anyone, including anonymous
// callers; private streams only by their owner.
func CanView(stream *model.Stream, callerID string) bool {
	if stream == nil {
		return false
	}
	if stream.Visibility == model.VisibilityPrivate && stream.UserID != callerID {
		return false
	}
	return true
}

// CanModify reports whether the caller may update or delete the stream.
// Only the owner qualifies; there is no administrative bypass.
func CanModify(stream *model.Stream, callerID string) bool {
	if stream == nil || callerID == "" {
		return false
	}
	return stream.UserID == callerID
}

// Scope is the listing predicate for a caller. It narrows which streams a
// listing may contain; caller-supplied visibility filters are applied on
// top of it and can only narrow further.
type Scope struct {
	// MineOnly restricts the listing to the caller's own streams,
	// regardless of visibility.
	MineOnly bool
	// CallerID is the authenticated caller, or "" for anonymous.
	CallerID string
}

// ScopeFor builds the listing scope for a caller. Requesting mineOnly
// without authentication is an authorization failure, not an empty result.
func ScopeFor(callerID string, mineOnly bool) (Scope, error) {
	if mineOnly && callerID == "" {
		return Scope{}, apperror.Unauthorized("sign in to list your streams")
	}
	return Scope{MineOnly: mineOnly, CallerID: callerID}, nil
}

// Allows reports whether a stream falls inside the scope.
//
// Default discovery: public streams for everyone; unlisted streams and the
// caller's own streams only when authenticated. Private streams never
// appear in a default listing, even for their owner — direct link and
// MineOnly are the only ways to reach them.
func (s Scope) Allows(stream *model.Stream) bool {
	if stream == nil {
		return false
	}
	if s.MineOnly {
		return stream.UserID == s.CallerID
	}
	if stream.Visibility == model.VisibilityPrivate {
		return false
	}
	if stream.Visibility == model.VisibilityPublic {
		return true
	}
	// unlisted
	if s.CallerID == "" {
		return false
	}
	return true
}
