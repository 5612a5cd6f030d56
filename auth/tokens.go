package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiryFromJWT extracts the exp claim from an access token without verifying
// the signature. Wanderstay access tokens are JWTs; verification is the
// gateway's job, the client only needs the deadline.
func ExpiryFromJWT(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
