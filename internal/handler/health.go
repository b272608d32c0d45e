package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Root answers GET / so a browser or uptime check can see the API is up.
func Root(c echo.Context) error {
	return c.String(http.StatusOK, "Camera management API is running")
}

// Health is a simple health-check endpoint used by load balancers and
// monitoring systems.  It returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
