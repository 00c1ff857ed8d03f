// Package model defines the data structures used throughout the application.
package model

import "time"

// Visibility controls how discoverable a stream is. It gates listing, not
// direct-link access: an unlisted stream never shows up in an anonymous
// listing but anyone holding the link can view it. Private streams are
// viewable and listed only by their owner.
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
	VisibilityPrivate  Visibility = "private"
)

// Valid reports whether v is one of the three persistable values.
// Nothing outside this set is ever written to the database.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityUnlisted, VisibilityPrivate:
		return true
	}
	return false
}

// Stream is a published stream record: metadata plus an optional
// externally-hosted playback URL. There is no media handling here — the
// record only points at where playback lives.
//
// Slug is unique across all streams and may be reassigned on update.
// UserID is set at creation and never changes; every stream has exactly
// one owner.
type Stream struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	IsLive      bool       `json:"isLive"`
	HlsURL      string     `json:"hlsUrl,omitempty"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	// Owner is populated on reads for API responses; it is not a stored
	// column of the streams table.
	Owner *UserSummary `json:"owner,omitempty"`
}

// UserSummary is the public slice of a user embedded in stream responses.
type UserSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}
