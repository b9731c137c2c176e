package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// APIKeyMiddleware validates the platform API key on every request. The
// key is taken from the X-API-Key header, an Authorization bearer token,
// or the api_key query parameter (for clients that cannot set headers).
// An empty configured key disables authentication (development mode).
func APIKeyMiddleware(apiKey string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if apiKey == "" {
				return next(c)
			}

			provided := c.Request().Header.Get("X-API-Key")
			if provided == "" {
				if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
					provided = strings.TrimPrefix(h, "Bearer ")
				}
			}
			if provided == "" {
				provided = c.QueryParam("api_key")
			}

			if provided == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "missing API key",
				})
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "invalid API key",
				})
			}

			return next(c)
		}
	}
}
