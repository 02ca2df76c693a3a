// Package token inspects the bearer tokens handed out by the gateway.
//
// The client never holds the signing key, so claims are read without
// verification; the gateway stays the authority. Inspection is only used to
// skip a round trip for tokens that are already expired and to tell admin
// tokens from user tokens.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of a gateway token the client cares about.
type Claims struct {
	Subject   string    // Email of the account, or the admin username
	Role      string    // "client" or "admin"
	Type      string    // "admin" for admin panel tokens, empty otherwise
	ExpiresAt time.Time // Zero when the token carries no exp claim
}

// Expired reports whether the token is past its expiry at now. Tokens
// without an exp claim never expire locally.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// IsAdmin reports whether the token was issued to the admin panel.
func (c Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// Inspect parses tokenString without verifying its signature.
func Inspect(tokenString string) (Claims, error) {
	parsed, _, err := new(jwt.Parser).ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return Claims{}, fmt.Errorf("failed to parse token: %w", err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid token claims")
	}
	return claimsFrom(mc)
}

func claimsFrom(mc jwt.MapClaims) (Claims, error) {
	var c Claims
	c.Subject, _ = mc["sub"].(string)
	c.Role, _ = mc["role"].(string)
	c.Type, _ = mc["type"].(string)

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return Claims{}, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, nil
}

// Issue signs an HS256 token shaped like the gateway's: sub, role, optional
// type and exp. It backs the in-memory gateway used in tests and local
// development.
func Issue(secret []byte, subject, role, typ string, ttl time.Duration) (string, error) {
	mc := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	if typ != "" {
		mc["type"] = typ
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mc).SignedString(secret)
}

// Verify checks an HS256 token signed with secret and returns its claims.
func Verify(secret []byte, tokenString string) (Claims, error) {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}

	parsed, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, keyFunc)
	if err != nil {
		return Claims{}, fmt.Errorf("failed to verify token: %w", err)
	}
	if !parsed.Valid {
		return Claims{}, fmt.Errorf("invalid token")
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid token claims")
	}
	return claimsFrom(mc)
}
