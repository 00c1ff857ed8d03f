// Package slug derives unique, URL-safe identifiers from stream titles.
//
// Slug assignment is two-phase. Normalize is a pure string transform;
// Assigner.Assign layers a uniqueness probe on top, appending numeric
// suffixes until a free candidate is found. The probe is best-effort: two
// concurrent writers can both see a candidate as free, so the streams
// table carries a UNIQUE index on slug and the service retries on the
// resulting conflict. The loop here only avoids the predictable collisions.
package slug

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// fallbackAlphabet is the symbol set for synthesized slugs when a title
// normalizes to nothing (e.g. all punctuation). 36 lowercase alphanumerics
// at length 6 keeps accidental collisions negligible; cryptographic
// strength is not needed for a public identifier.
const (
	fallbackAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	fallbackLength   = 6
)

// Normalize maps an arbitrary string to its URL-safe form: lowercased,
// trimmed, every character outside [a-z0-9\s-] stripped, whitespace runs
// and repeated hyphens collapsed to a single hyphen, leading and trailing
// hyphens removed. Deterministic and pure; may return "".
func Normalize(input string) string {
	lowered := strings.ToLower(strings.TrimSpace(input))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-':
			b.WriteRune('-')
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\f', r == '\v':
			// whitespace becomes a hyphen; runs collapse below
			b.WriteRune('-')
		}
		// everything else is dropped
	}

	// Collapse hyphen runs left by whitespace sequences or repeated dashes.
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}

	return strings.Trim(out, "-")
}

// LookupFunc reports the ID of the stream currently holding a slug, or
// ("", false) when the slug is free. Implemented by the stream repository.
type LookupFunc func(ctx context.Context, slug string) (id string, ok bool, err error)

// Assigner turns desired slugs into unique ones by probing existing records.
type Assigner struct {
	lookup LookupFunc
	rand   *rand.Rand // nil means the global source
}

// NewAssigner creates an Assigner that checks candidates via lookup.
func NewAssigner(lookup LookupFunc) *Assigner {
	return &Assigner{lookup: lookup}
}

// newSeededAssigner pins the fallback-suffix randomness for tests.
func newSeededAssigner(lookup LookupFunc, seed uint64) *Assigner {
	return &Assigner{
		lookup: lookup,
		rand:   rand.New(rand.NewPCG(seed, 0)),
	}
}

// Assign returns a unique slug for the desired string.
//
// The base is Normalize(desired), or "stream-" plus a random 6-character
// suffix when nothing survives normalization. Candidates are probed in the
// order base, base-1, base-2, ... and the first free one is returned. A
// candidate already held by excludeID is treated as free: on the update
// path a record may keep (or re-request) its own slug without colliding
// with itself. Pass excludeID == "" on the creation path.
//
// The loop is unbounded in principle but terminates after at most one more
// probe than there are streams sharing the base.
func (a *Assigner) Assign(ctx context.Context, desired, excludeID string) (string, error) {
	base := Normalize(desired)
	if base == "" {
		base = "stream-" + a.randomSuffix()
	}

	candidate := base
	for attempt := 1; ; attempt++ {
		holderID, taken, err := a.lookup(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("slug: probing %q: %w", candidate, err)
		}
		if !taken || (excludeID != "" && holderID == excludeID) {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}
}

func (a *Assigner) randomSuffix() string {
	buf := make([]byte, fallbackLength)
	for i := range buf {
		var n int
		if a.rand != nil {
			n = a.rand.IntN(len(fallbackAlphabet))
		} else {
			n = rand.IntN(len(fallbackAlphabet))
		}
		buf[i] = fallbackAlphabet[n]
	}
	return string(buf)
}
