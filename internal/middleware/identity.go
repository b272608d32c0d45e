package middleware

// identity.go holds the accessors for the authenticated user that JWTAuth
// places in the Echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/camera-management/internal/model"
)

const ctxUserKey = "user"

// CurrentUser returns the authenticated user, or nil outside JWTAuth.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUserKey).(*model.User)
	return u
}

// SetCurrentUser stores u as the authenticated user.  Intended for tests
// that drive handlers without a token.
func SetCurrentUser(c echo.Context, u *model.User) {
	c.Set(ctxUserKey, u)
}

// userID returns the authenticated user's ID, or "" when there is none.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.ID != "" {
		return u.ID
	}
	return ""
}
