package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("stream", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("title", "title is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("slug already taken"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("you do not own this stream"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("authentication required"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("stream", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "Unauthorized does NOT match ErrForbidden",
			err:       Unauthorized("authentication required"),
			target:    ErrForbidden,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

// Errors wrapped further up the call stack must still match their sentinel,
// since handlers check classes after services add context with %w.
func TestErrorsIs_ThroughWrapping(t *testing.T) {
	inner := NotFound("stream", "abc123")
	wrapped := fmt.Errorf("resolving stream: %w", inner)

	if !errors.Is(wrapped, ErrNotFound) {
		t.Errorf("wrapped error should match ErrNotFound")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatalf("errors.As should extract *AppError from wrapped chain")
	}
	if appErr.Message != inner.Message {
		t.Errorf("Message = %q, want %q", appErr.Message, inner.Message)
	}
}

func TestValidationFailed_CarriesField(t *testing.T) {
	err := ValidationFailed("hlsUrl", "must be a valid URL")
	if err.Field != "hlsUrl" {
		t.Errorf("Field = %q, want %q", err.Field, "hlsUrl")
	}
	if err.Error() != "must be a valid URL" {
		t.Errorf("Error() = %q, want the message", err.Error())
	}
}
