package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns the authenticated user id as a key fragment, or
// "anon" for requests that did not pass JWTAuth.
func currentUserID(c echo.Context) string {
	if uid, ok := c.Get(UserIDKey).(uint64); ok && uid != 0 {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
