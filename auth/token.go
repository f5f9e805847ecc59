package auth

import (
	"chat-hub/errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chat-hub"

// CustomClaims defines the structure of the data stored inside the JWT.
// RegisteredClaims.ID carries the token id recorded in the token store.
type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Signer issues and validates HS256 tokens with a shared secret.
type Signer struct {
	secret   []byte
	duration time.Duration
}

func NewSigner(secret string, duration time.Duration) Signer {
	return Signer{secret: []byte(secret), duration: duration}
}

// Generate creates a signed JWT for a specific user and returns it with its token id.
func (s Signer) Generate(userID uuid.UUID) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()
	claims := &CustomClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", errors.ErrTokenGeneration, err)
	}
	return token, jti, nil
}

// Validate parses and validates the signature and expiration of a JWT string.
func (s Signer) Validate(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid && claims.ID != "" {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
