package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Authorizer decides whether a principal may use a workspace's terminals.
// Checked before session creation and attach.
type Authorizer interface {
	Allow(principal, workspaceID string) bool
}

// AllowAll permits every principal. Used when the surrounding platform
// performs its own permission checks in front of this service.
type AllowAll struct{}

func (AllowAll) Allow(string, string) bool { return true }

// TerminalClaims are the JWT claims for workspace-scoped attach tokens.
// A token authorizes one principal to attach to one session.
type TerminalClaims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"workspace_id"`
	SessionID   string `json:"session_id"`
}

// TokenIssuer creates and validates attach tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates a token issuer. An empty secret disables token
// checks (development mode).
func NewTokenIssuer(secret string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret)}
}

// Enabled reports whether attach tokens are enforced.
func (i *TokenIssuer) Enabled() bool {
	return len(i.secret) > 0
}

// IssueAttachToken creates a short-lived JWT scoped to one session.
// Browser WebSocket clients pass it as a query parameter since they cannot
// set headers on the upgrade request.
func (i *TokenIssuer) IssueAttachToken(principal, workspaceID, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TerminalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "workterm",
		},
		WorkspaceID: workspaceID,
		SessionID:   sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// ValidateAttachToken parses and validates an attach token.
func (i *TokenIssuer) ValidateAttachToken(tokenStr string) (*TerminalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &TerminalClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*TerminalClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
