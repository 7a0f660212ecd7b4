package auth

import (
	"testing"
	"time"

	"sp2any/src/users"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse battery staple") {
		t.Fatal("expected matching password to check out")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatal("expected mismatched password to fail")
	}
}

func TestIssueAndVerifyToken(t *testing.T) {
	userID := users.NewUserId()
	token, err := IssueToken("super-secret", userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	got, err := VerifyToken("super-secret", token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got != userID {
		t.Fatalf("expected user id %v, got %v", userID, got)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	userID := users.NewUserId()
	token, err := IssueToken("secret-a", userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := VerifyToken("secret-b", token); err == nil {
		t.Fatal("expected verification with the wrong secret to fail")
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	userID := users.NewUserId()
	token, err := IssueToken("super-secret", userID, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := VerifyToken("super-secret", token); err == nil {
		t.Fatal("expected verification of an already-expired token to fail")
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	if _, err := VerifyToken("super-secret", "not-a-jwt"); err == nil {
		t.Fatal("expected verification of garbage input to fail")
	}
}
