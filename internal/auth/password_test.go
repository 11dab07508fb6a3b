package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompare(t *testing.T) {
	h, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h == "hunter2" || !strings.HasPrefix(h, "$2") {
		t.Fatalf("expected a bcrypt hash, got %q", h)
	}
	if err := ComparePassword(h, "hunter2"); err != nil {
		t.Fatalf("ComparePassword should accept the right password: %v", err)
	}
	if err := ComparePassword(h, "hunter3"); err == nil {
		t.Fatal("ComparePassword should reject the wrong password")
	}
}

func TestHashPassword_Salted(t *testing.T) {
	a, _ := HashPassword("same", bcrypt.MinCost)
	b, _ := HashPassword("same", bcrypt.MinCost)
	if a == b {
		t.Fatal("two hashes of the same password should differ")
	}
}

func TestHashPassword_InvalidCost(t *testing.T) {
	if _, err := HashPassword("pw", bcrypt.MaxCost+1); err == nil {
		t.Fatal("expected invalid cost error")
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("x", 73), bcrypt.MinCost); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
