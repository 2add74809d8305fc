package middleware

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/event-ticketing/internal/repository"
    "github.com/iliyamo/event-ticketing/internal/utils"
)

// APIKeyAuth returns a middleware that authenticates partner requests
// carrying an X-API-Key header.  The key's public identifier selects the
// stored record and the secret part is compared against its bcrypt
// hash.  On success the owning organizer's ID is stored in the context
// under "organizer_id"; every failure mode answers 401 with the same
// message so callers learn nothing about which part was wrong.
func APIKeyAuth(keys repository.APIKeyRepo) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := c.Request().Header.Get("X-API-Key")
            if raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "api key required"})
            }
            id, secret, ok := utils.ParseAPIKey(raw)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api key"})
            }
            rec, err := keys.GetByID(c.Request().Context(), id)
            if errors.Is(err, repository.ErrNotFound) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api key"})
            }
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
            }
            if !utils.CheckAPIKeySecret(rec.SecretHash, secret) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid api key"})
            }
            c.Set("organizer_id", rec.OrganizerID)
            return next(c)
        }
    }
}
