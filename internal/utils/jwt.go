package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// ErrInvalidSessionToken is returned when a bearer token cannot be parsed,
// carries a bad signature, or lacks the user id claim.
var ErrInvalidSessionToken = errors.New("invalid session token")

// NewSessionToken builds and signs an HS256 JWT binding the user ID.  The
// token has no expiry; it stays valid for as long as it remains in the
// user's token collection.  A random jti keeps tokens issued within the
// same second distinct, so revoking one never revokes its twin.
func NewSessionToken(secret, userID string) (string, error) {
	claims := jwt.MapClaims{
		"_id": userID,
		"jti": uuid.NewString(),
		"iat": time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseSessionToken checks the signature of raw and returns the embedded
// user ID.  Only HMAC signing methods are accepted.
func ParseSessionToken(secret, raw string) (string, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSessionToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalidSessionToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidSessionToken
	}
	id, ok := claims["_id"].(string)
	if !ok || id == "" {
		return "", ErrInvalidSessionToken
	}
	return id, nil
}
