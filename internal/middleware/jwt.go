package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parkshare/internal/utils"
)

// UserIDKey is the echo context key under which JWTAuth stores the
// authenticated user's id as a uint64.
const UserIDKey = "user_id"

// JWTAuth validates an HS256 bearer token and stores its subject under
// UserIDKey.  Requests without a valid token are rejected with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return unauthenticated(c, "missing bearer token")
			}
			uid, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return unauthenticated(c, "invalid or expired token")
			}
			c.Set(UserIDKey, uid)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error":   "Unauthenticated",
		"message": msg,
	})
}
