package auth

import (
	"testing"
	"time"

	"github.com/sakif/classroom-portal/internal/model"
)

// newTestTokenService creates a TokenService with a fixed, known secret so
// tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_EmptySecret(t *testing.T) {
	// Fail closed: no secret must never degrade to a default.
	_, err := NewTokenService("")
	if err == nil {
		t.Fatal("NewTokenService() should reject an empty secret")
	}
}

func TestIssue_ReturnsWellFormedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("student", model.RoleStudent)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if token == "" {
		t.Error("Issue() returned empty token")
	}

	// JWTs have 3 dot-separated parts: header.payload.signature
	dots := 0
	for _, c := range token {
		if c == '.' {
			dots++
		}
	}
	if dots != 2 {
		t.Errorf("Issue() token doesn't look like a JWT (expected 2 dots, got %d)", dots)
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("admin", model.RoleStaff)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != "admin" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "admin")
	}
	if claims.Role != model.RoleStaff {
		t.Errorf("claims.Role = %q, want %q", claims.Role, model.RoleStaff)
	}
	if claims.ExpiresAt.Before(claims.IssuedAt) {
		t.Error("claims.ExpiresAt must be after IssuedAt")
	}

	// The expiry is issuance + 8h.
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt)
	if ttl != 8*time.Hour {
		t.Errorf("token TTL = %v, want 8h", ttl)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.IssueWithDuration("student", model.RoleStudent, -1*time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should return an error for an expired token")
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	token, _ := ts.Issue("student", model.RoleStudent)

	// Flip the tail of the signature.
	tampered := token[:len(token)-3] + "xxx"

	_, err := ts.Validate(tampered)
	if err == nil {
		t.Fatal("Validate() should return an error for a tampered token")
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!")
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!")

	token, _ := ts1.Issue("student", model.RoleStudent)

	_, err := ts2.Validate(token)
	if err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_GarbageInputs(t *testing.T) {
	ts := newTestTokenService(t)

	for _, input := range []string{"", "not.a.jwt", "not.a.jwt.token", "aaaa"} {
		if _, err := ts.Validate(input); err == nil {
			t.Errorf("Validate(%q) should return an error", input)
		}
	}
}

func TestValidate_UnknownRoleClaim(t *testing.T) {
	ts := newTestTokenService(t)

	// Forge a structurally valid token with a role the system doesn't know.
	token, err := ts.IssueWithDuration("someone", model.Role("superuser"), time.Hour)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Validate(token)
	if err == nil {
		t.Fatal("Validate() should reject a token carrying an unknown role")
	}
}
