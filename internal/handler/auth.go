package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/camera-management/internal/metrics"
	"github.com/iliyamo/camera-management/internal/middleware"
	"github.com/iliyamo/camera-management/internal/model"
	q "github.com/iliyamo/camera-management/internal/queue"
	"github.com/iliyamo/camera-management/internal/service"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Auth    *service.AuthService
	Audit   *Auditor
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

func NewAuthHandler(auth *service.AuthService, audit *Auditor, m *metrics.Metrics, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{Auth: auth, Audit: audit, Metrics: m, Log: log}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResp struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	User    model.PublicUser `json:"user"`
}

// Login: verify credentials and return a token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		h.Metrics.Login("validation")
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Username, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrValidation):
		h.Metrics.Login("validation")
		return message(c, http.StatusBadRequest, "Username and password are required")
	case errors.Is(err, service.ErrInvalidCredentials):
		h.Metrics.Login("invalid_credentials")
		return message(c, http.StatusUnauthorized, "Invalid credentials")
	default:
		h.Metrics.Login("error")
		h.Log.WithError(err).Error("auth: login")
		return message(c, http.StatusInternalServerError, "Server error during login")
	}

	h.Metrics.Login("success")
	return c.JSON(http.StatusOK, authResp{Message: "Login successful", Token: res.Token.Token, User: res.User})
}

// Signup: create a user.  Only reachable by admins (see router).
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		h.Metrics.Signup("validation")
		return message(c, http.StatusBadRequest, "Invalid request body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Auth.Signup(ctx, service.SignupInput{Username: req.Username, Password: req.Password, Role: req.Role})
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidRole):
		h.Metrics.Signup("validation")
		return message(c, http.StatusBadRequest, "Role must be Admin or Operator")
	case errors.Is(err, service.ErrPasswordTooLong):
		h.Metrics.Signup("validation")
		return message(c, http.StatusBadRequest, "Password must be at most 72 bytes")
	case errors.Is(err, service.ErrValidation):
		h.Metrics.Signup("validation")
		return message(c, http.StatusBadRequest, "Username and password are required")
	case errors.Is(err, service.ErrConflict):
		h.Metrics.Signup("conflict")
		return message(c, http.StatusBadRequest, "Username already exists")
	default:
		h.Metrics.Signup("error")
		h.Log.WithError(err).Error("auth: signup")
		return message(c, http.StatusInternalServerError, "Server error during signup")
	}

	h.Metrics.Signup("success")
	h.Audit.Record(q.UserCreated, middleware.CurrentUser(c).ID, res.User.ID)
	return c.JSON(http.StatusCreated, authResp{Message: "User created successfully", Token: res.Token.Token, User: res.User})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, echo.Map{"user": u.Public()})
}
