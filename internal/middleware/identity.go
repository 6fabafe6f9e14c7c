package middleware

import "github.com/labstack/echo/v4"

// context keys written by JWTAuth
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// currentUserID returns the authenticated subject, or "anon" for public
// requests.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}

func currentRole(c echo.Context) string {
	s, _ := c.Get(ctxRole).(string)
	return s
}
