package utils

import (
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// NewAccessToken builds and signs an HS256 JWT compatible with the
// tokens the identity provider issues in production.  It exists for
// local development and tests, where no external provider is running.
// The claims mirror the provider's: subject (sub), email, role,
// expiration (exp) and issued at (iat).
func NewAccessToken(secret, userID, email, role string, ttl time.Duration) (string, error) {
    now := time.Now().UTC()
    claims := jwt.MapClaims{
        "sub":   userID,
        "email": email,
        "role":  role,
        "exp":   now.Add(ttl).Unix(),
        "iat":   now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return t.SignedString([]byte(secret))
}
