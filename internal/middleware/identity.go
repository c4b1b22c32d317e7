package middleware

import "github.com/labstack/echo/v4"

// currentUserID returns the authenticated user id, or "anon" before
// JWTAuth has run.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(CtxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
