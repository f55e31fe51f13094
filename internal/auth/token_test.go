package auth

import (
	"errors"
	"testing"
	"time"

	"expensio/internal/core"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	u := core.User{ID: 42, Email: "mario@example.com", Role: core.RoleAdmin}
	token, err := issuer.Issue(u)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	actor, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.ID != 42 || actor.Role != core.RoleAdmin || actor.Email != "mario@example.com" {
		t.Fatalf("actor mismatch: %+v", actor)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Hour).Issue(core.User{ID: 1, Role: core.RoleEmployee})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = NewTokenIssuer("secret-b", time.Hour).Parse(token)
	if !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestParseExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute)
	token, err := issuer.Issue(core.User{ID: 1, Role: core.RoleEmployee})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := issuer.Parse(token); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired token, got %v", err)
	}
}

func TestParseGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := issuer.Parse(tok); !errors.Is(err, core.ErrUnauthenticated) {
			t.Fatalf("%q: expected ErrUnauthenticated, got %v", tok, err)
		}
	}
}

func TestParseRejectsInvalidClaims(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)

	// Unknown role
	token, err := issuer.Issue(core.User{ID: 1, Role: "SUPERUSER"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := issuer.Parse(token); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for unknown role, got %v", err)
	}

	// Missing user id
	token, err = issuer.Issue(core.User{Role: core.RoleEmployee})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if _, err := issuer.Parse(token); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for zero user id, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "correct horse battery") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong password") {
		t.Fatal("wrong password accepted")
	}
}
