// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts come from two places: email/password registration and Google
// OAuth sign-in. A password account has a PasswordHash and an empty
// GoogleID; an OAuth account has a GoogleID (Google's stable "sub" claim)
// and an empty PasswordHash. Email is unique either way, so the two flows
// can't create duplicate accounts for the same address.
//
// PasswordHash is tagged `json:"-"` so it can never leak into a response,
// no matter which handler serializes the struct.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	GoogleID     string    `json:"-"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary returns the public slice of the user embedded in stream responses.
func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}
