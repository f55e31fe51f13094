// Package auth issues and verifies the bearer tokens that carry the actor
// identity across requests. Credentials themselves are checked by the user
// service; this package only deals with token mechanics.
package auth

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"

	"expensio/internal/core"
)

// Claims are the JWT claims embedded in every issued token.
type Claims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// TokenIssuer signs and parses HS256 tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed token for the given user.
func (t *TokenIssuer) Issue(u core.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: u.ID,
		Role:   string(u.Role),
		Email:  u.Email,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(t.ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token string and resolves it to an actor.
// Any verification failure maps to ErrUnauthenticated.
func (t *TokenIssuer) Parse(tokenString string) (core.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return core.Actor{}, core.ErrUnauthenticated
	}

	role := core.Role(claims.Role)
	if claims.UserID == 0 || !role.Valid() {
		return core.Actor{}, core.ErrUnauthenticated
	}

	return core.Actor{ID: claims.UserID, Role: role, Email: claims.Email}, nil
}
