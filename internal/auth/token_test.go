package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer("test-key", time.Hour)

	secret, err := issuer.Issue("abc123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if secret == "" {
		t.Fatal("expected a non-empty secret")
	}
	if err := issuer.Verify(secret, "abc123"); err != nil {
		t.Fatalf("expected the secret to verify: %v", err)
	}
}

func TestVerifyWrongRoom(t *testing.T) {
	issuer := NewIssuer("test-key", time.Hour)

	secret, _ := issuer.Issue("abc123")
	if err := issuer.Verify(secret, "def456"); err == nil {
		t.Fatal("expected a secret bound to another room to be rejected")
	}
}

func TestVerifyWrongKey(t *testing.T) {
	issuer := NewIssuer("test-key", time.Hour)
	other := NewIssuer("other-key", time.Hour)

	secret, _ := other.Issue("abc123")
	if err := issuer.Verify(secret, "abc123"); err == nil {
		t.Fatal("expected a secret signed with another key to be rejected")
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := NewIssuer("test-key", -time.Minute)

	secret, _ := issuer.Issue("abc123")
	if err := issuer.Verify(secret, "abc123"); err == nil {
		t.Fatal("expected an expired secret to be rejected")
	}
}

func TestVerifyGarbage(t *testing.T) {
	issuer := NewIssuer("test-key", time.Hour)
	if err := issuer.Verify("not-a-token", "abc123"); err == nil {
		t.Fatal("expected garbage to be rejected")
	}
}

func TestSecretsAreUnique(t *testing.T) {
	issuer := NewIssuer("test-key", time.Hour)

	a, _ := issuer.Issue("abc123")
	b, _ := issuer.Issue("abc123")
	if a == b {
		t.Fatal("expected each issued secret to be unique")
	}
}
