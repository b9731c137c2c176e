package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidateAttachToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")

	tok, err := issuer.IssueAttachToken("alice", "ws1", "sess1", time.Minute)
	if err != nil {
		t.Fatalf("IssueAttachToken returned error: %v", err)
	}

	claims, err := issuer.ValidateAttachToken(tok)
	if err != nil {
		t.Fatalf("ValidateAttachToken returned error: %v", err)
	}
	if claims.Subject != "alice" {
		t.Errorf("expected subject alice, got %s", claims.Subject)
	}
	if claims.WorkspaceID != "ws1" {
		t.Errorf("expected workspace ws1, got %s", claims.WorkspaceID)
	}
	if claims.SessionID != "sess1" {
		t.Errorf("expected session sess1, got %s", claims.SessionID)
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("secret-a").IssueAttachToken("alice", "ws1", "sess1", time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewTokenIssuer("secret-b").ValidateAttachToken(tok); err == nil {
		t.Fatal("expected error for token signed with different secret, got nil")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	tok, err := issuer.IssueAttachToken("alice", "ws1", "sess1", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := issuer.ValidateAttachToken(tok); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := NewTokenIssuer("test-secret").ValidateAttachToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token, got nil")
	}
}
