package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the claims in a ClauseChain token
type JWTClaims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Signer issues and validates tokens. The secret is injected at
// construction; there is no process-wide key.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner creates a signer with the given HMAC secret
func NewSigner(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	return &Signer{secret: secret, ttl: 24 * time.Hour}, nil
}

// GenerateUserToken generates a JWT token for user authentication
func (s *Signer) GenerateUserToken(userID string) (string, error) {
	claims := &JWTClaims{
		UserID: userID,
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Signer) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}

// TokenExpiry reads the expiry of a token without verifying its signature.
// Clients use it to decide when a cached token needs refreshing.
func TokenExpiry(tokenString string) (time.Time, error) {
	claims := &JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}
