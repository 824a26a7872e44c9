package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("s3cret!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !Verify("s3cret!", hash) {
		t.Fatalf("expected password to verify")
	}
	if Verify("wrong", hash) {
		t.Fatalf("expected wrong password to fail")
	}
	if Verify("s3cret!", "") {
		t.Fatalf("expected empty hash to fail")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	if _, err := Hash("12345"); err != ErrTooShort {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}
