package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// credentialExpiry reads the exp claim of a JWT credential without verifying it.
// Verification belongs to the backend; the value is only shown to the user.
func credentialExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
