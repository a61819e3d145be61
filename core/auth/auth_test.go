package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if !VerifyPassword("s3cret-password", hash) {
		t.Error("correct password should verify")
	}
	if VerifyPassword("wrong-password", hash) {
		t.Error("wrong password should not verify")
	}
	if VerifyPassword("s3cret-password", "not-a-bcrypt-hash") {
		t.Error("malformed hash should not verify")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateToken(42, "alice")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	SetJWTSecret("test-secret")
	token, err := GenerateToken(7, "bob")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	t.Run("garbage token", func(t *testing.T) {
		if _, err := ParseToken("not.a.token"); err == nil {
			t.Error("expected error for garbage token")
		}
	})

	t.Run("modified payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		tampered := parts[0] + ".eyJ1c2VySWQiOjk5OX0." + parts[2]
		if _, err := ParseToken(tampered); err == nil {
			t.Error("expected error for tampered token")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		SetJWTSecret("another-secret")
		defer SetJWTSecret("test-secret")
		if _, err := ParseToken(token); err == nil {
			t.Error("expected error when secret changed")
		}
	})
}
