package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID pulls the user identifier that JWTAuth stored in the
// Echo context; rate-limit keys use it to distinguish authenticated
// traffic from guests.

import "github.com/labstack/echo/v4"

// currentUserID returns the authenticated user's identifier or "anon"
// when the request carries no usable identity.
func currentUserID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    if v := c.Get("organizer_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "anon"
}
