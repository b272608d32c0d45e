package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/camera-management/internal/config"
	"github.com/iliyamo/camera-management/internal/handler"
	"github.com/iliyamo/camera-management/internal/metrics"
	"github.com/iliyamo/camera-management/internal/middleware"
	"github.com/iliyamo/camera-management/internal/utils"
)

// Deps is everything the HTTP layer is built from.
type Deps struct {
	Log         logrus.FieldLogger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer // served on /metrics; nil disables the route
	Tokens      *utils.TokenService
	Users       middleware.UserFinder
	Auth        *handler.AuthHandler
	Cameras     *handler.CameraHandler
	CORSOrigins []string
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Redis       *redis.Client // optional
}

// New builds the Echo instance with global middleware and every route.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(requestLogger(d.Log))
	e.Use(d.Metrics.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: d.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	RegisterRoutes(e, d.Gatherer)

	authn := middleware.JWTAuth(d.Tokens, d.Users, d.Metrics, d.Log)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	RegisterAuth(e, d.Auth, authn, limit)
	RegisterCameras(e, d.Cameras, authn, limit, middleware.NewUserCache(d.Cache, d.Redis, d.Log))
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, g prometheus.Gatherer) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	if g != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
	}
}

// RegisterAuth registers /api/auth.  Login is open; signup needs an admin
// token.  limit runs after authn so per-user buckets see the caller.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, authn, limit echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login, limit)
	g.POST("/signup", a.Signup, authn, limit, middleware.RequireAdmin())
	g.GET("/me", a.Me, authn, limit)
}

// RegisterCameras registers /api/cameras; every route needs a token and
// acts on the caller's own cameras.
func RegisterCameras(e *echo.Echo, h *handler.CameraHandler, authn, limit, cache echo.MiddlewareFunc) {
	g := e.Group("/api/cameras", authn, limit, cache)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// requestLogger emits one structured line per request.
func requestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
				"remote_ip":  v.RemoteIP,
			})
			switch {
			case v.Status >= 500:
				entry.WithError(v.Error).Error("request")
			case v.Status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		},
	})
}
