package middleware // middleware contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"
)

// authCookieName is the cookie the identity provider's frontend stores
// the session token in.  API clients send the same token as a Bearer
// header instead.
const authCookieName = "auth_token"

// JWTAuth returns an Echo middleware that validates the identity
// provider's HS256 access token and injects its subject, email and role
// claims into the request context.  The token is read from the
// Authorization header when present and from the auth cookie otherwise,
// so both browser sessions and API clients are covered.  Handlers access
// the authenticated user via c.Get("user_id"), c.Get("email") and
// c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := ""
            if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
                raw = strings.TrimPrefix(auth, "Bearer ")
            } else if cookie, err := c.Cookie(authCookieName); err == nil {
                raw = cookie.Value
            }
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing token"})
            }

            // Parse with the HS256 signing method and our shared secret.
            // A token signed with any other algorithm is rejected.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
            }

            // Store the identity claims for handlers and downstream
            // middleware; type assertions are left to the consumers.
            c.Set("user_id", claims["sub"])
            c.Set("email", claims["email"])
            c.Set("role", claims["role"])
            return next(c)
        }
    }
}
