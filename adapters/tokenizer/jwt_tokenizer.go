// Package tokenizer implements the access-credential port with HS256 JWTs
// signed by the same server-held secret that seals challenge tokens.
package tokenizer

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/ports"
)

// AudienceAccess marks tokens minted by this service.
const AudienceAccess = "gatekeeper:access"

// JWTTokenizer implements the Tokenizer interface using JWT.
type JWTTokenizer struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTTokenizer creates a tokenizer signing with secret. Tokens expire
// after ttl.
func NewJWTTokenizer(secret string, ttl time.Duration) (ports.Tokenizer, error) {
	if secret == "" {
		return nil, core.ErrSecretMissing
	}
	return &JWTTokenizer{secret: []byte(secret), ttl: ttl}, nil
}

// Sign converts token data to a signed JWT string.
func (j *JWTTokenizer) Sign(data core.TokenData) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   data.CUID,
			ID:        data.SessionID,
			Audience:  jwt.ClaimStrings{AudienceAccess},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
		UserID:      data.UserID,
		CUID:        data.CUID,
		Roles:       data.Roles,
		Permissions: data.Permissions,
		SessionID:   data.SessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a JWT string and returns the embedded claims.
func (j *JWTTokenizer) Verify(tokenStr string) (*core.TokenData, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secret, nil
	}, jwt.WithAudience(AudienceAccess))
	if err != nil || !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.TokenData{
		UserID:      claims.UserID,
		CUID:        claims.CUID,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
		SessionID:   claims.SessionID,
	}, nil
}
