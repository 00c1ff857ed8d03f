package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// newTestPasswordService uses the minimum bcrypt cost so each test does
// not pay the full production hashing time.
func newTestPasswordService(t *testing.T) *PasswordService {
	t.Helper()
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService(t)

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$") && !strings.HasPrefix(hash, "$2b$") {
		t.Errorf("Hash() = %q, want bcrypt prefix", hash)
	}
}

// Two hashes of the same password differ because bcrypt salts each one.
func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService(t)

	h1, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHash_RejectsPasswordOver72Bytes(t *testing.T) {
	ps := newTestPasswordService(t)

	if _, err := ps.Hash(strings.Repeat("x", 73)); err == nil {
		t.Error("Hash() should reject passwords over 72 bytes")
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService(t)

	hash, err := ps.Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "s3cret-pass"); err != nil {
		t.Errorf("Verify() with correct password error = %v", err)
	}
	if err := ps.Verify(hash, "wrong-pass"); err == nil {
		t.Error("Verify() should fail for the wrong password")
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := newTestPasswordService(t)

	if err := ps.Verify("not-a-bcrypt-hash", "whatever"); err == nil {
		t.Error("Verify() should fail for a malformed hash")
	}
}
