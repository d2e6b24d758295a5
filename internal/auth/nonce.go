package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Nonce actions.
const (
	ActionAutocomplete = "alm_autocomplete"
	ActionReloadTerms  = "alm_reload_terms"
)

// NonceExpiry is the default nonce lifetime.
const NonceExpiry = 12 * time.Hour

type nonceClaims struct {
	Action string `json:"act"`
	UserID int64  `json:"uid"`
	jwt.RegisteredClaims
}

// GenerateNonce issues a short-lived anti-forgery token bound to an action
// and a user. Anonymous visitors use userID 0.
func GenerateNonce(secret, action string, userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = NonceExpiry
	}

	now := time.Now()
	signed, err := sign(secret, nonceClaims{
		Action: action,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectNonce,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	if err != nil {
		return "", fmt.Errorf("signing nonce: %w", err)
	}
	return signed, nil
}

// VerifyNonce checks that nonce was issued for action and userID and has not expired.
func VerifyNonce(secret, nonce, action string, userID int64) error {
	if nonce == "" {
		return fmt.Errorf("%w: missing nonce", ErrInvalidToken)
	}

	claims := &nonceClaims{}
	if err := parse(secret, nonce, subjectNonce, claims); err != nil {
		return err
	}
	if claims.Action != action || claims.UserID != userID {
		return fmt.Errorf("%w: nonce issued for another action or user", ErrInvalidToken)
	}
	return nil
}
