package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/camera-management/internal/metrics"
	"github.com/iliyamo/camera-management/internal/model"
	"github.com/iliyamo/camera-management/internal/repository"
	"github.com/iliyamo/camera-management/internal/utils"
)

// Messages sent with 401/403 responses.
const (
	MsgNoToken       = "No token provided"
	MsgInvalidToken  = "Invalid or expired token"
	MsgUserNotFound  = "User not found"
	MsgAdminRequired = "Admin access required"
)

// UserFinder loads the user a token refers to.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer identity token
// and stores the referenced user in the context under "user".  The user is
// reloaded on every request so a deleted account or a changed role takes
// effect before the token expires.
func JWTAuth(tokens *utils.TokenService, users UserFinder, m *metrics.Metrics, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return deny(c, http.StatusUnauthorized, MsgNoToken)
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				m.TokenRejected(utils.FailureReason(err))
				return deny(c, http.StatusUnauthorized, MsgInvalidToken)
			}

			u, err := users.GetByID(c.Request().Context(), id.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return deny(c, http.StatusUnauthorized, MsgUserNotFound)
				}
				log.WithError(err).WithField("user_id", id.UserID).Error("auth: load user")
				return deny(c, http.StatusInternalServerError, "Server error during authentication")
			}

			c.Set(ctxUserKey, u)
			return next(c)
		}
	}
}

// bearerToken extracts the token from an Authorization header.  The scheme
// is matched case-insensitively.
func bearerToken(h string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"message": msg})
}
