package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// InspectToken parses raw as a JWT without verifying its signature. The
// session layer treats the token as an opaque bearer credential; claims are
// only read to discard obviously stale persisted sessions, never for
// authorization.
func InspectToken(raw string) (jwt.MapClaims, bool) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}

// IsExpiredToken reports whether raw is a JWT whose exp claim is in the
// past. Tokens that are not JWTs, or carry no exp claim, are never treated
// as expired here; only the backend can reject those.
func IsExpiredToken(raw string, now time.Time) bool {
	claims, ok := InspectToken(raw)
	if !ok {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Before(now)
}
