package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/camera-management/internal/config"
	"github.com/iliyamo/camera-management/internal/database"
	"github.com/iliyamo/camera-management/internal/handler"
	"github.com/iliyamo/camera-management/internal/metrics"
	"github.com/iliyamo/camera-management/internal/model"
	"github.com/iliyamo/camera-management/internal/repository"
	"github.com/iliyamo/camera-management/internal/service"
	"github.com/iliyamo/camera-management/internal/utils"
)

type app struct {
	e      *echo.Echo
	users  *repository.UserRepo
	tokens *utils.TokenService
}

func newApp(t *testing.T, opts ...func(*Deps)) *app {
	t.Helper()
	db := database.NewTestDB(t)
	users := repository.NewUserRepo(db)

	hash, err := utils.HashPassword("admin123", bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(),
		&model.User{Username: "admin", PasswordHash: hash, Role: model.RoleAdmin}))

	log, _ := test.NewNullLogger()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	tokens := utils.NewTokenService("router-secret", time.Hour)
	auth, err := service.NewAuthService(users, tokens, bcrypt.MinCost)
	require.NoError(t, err)

	d := Deps{
		Log:         log,
		Metrics:     m,
		Gatherer:    reg,
		Tokens:      tokens,
		Users:       users,
		Auth:        handler.NewAuthHandler(auth, nil, m, log),
		Cameras:     handler.NewCameraHandler(repository.NewCameraRepo(db), nil, log),
		CORSOrigins: []string{"*"},
		RateLimit:   config.RateLimitConfig{},
		Cache:       config.CacheConfig{},
	}
	for _, o := range opts {
		o(&d)
	}
	return &app{e: New(d), users: users, tokens: tokens}
}

// operator stores an Operator and returns it with a token, skipping login.
func (a *app) operator(t *testing.T, username string) (*model.User, string) {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "unused", Role: model.RoleOperator}
	require.NoError(t, a.users.Create(context.Background(), u))
	tok, err := a.tokens.Issue(u.ID, u.Role)
	require.NoError(t, err)
	return u, tok.Token
}

func (a *app) req(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, r)
	return rec
}

func (a *app) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := a.req(t, http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct{ Token string }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Token
}

func TestServiceEndpoints(t *testing.T) {
	a := newApp(t)

	rec := a.req(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Camera management API is running", rec.Body.String())
	assert.Equal(t, http.StatusOK, a.req(t, http.MethodGet, "/healthz", "", "").Code)

	a.req(t, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"bad"}`)
	rec = a.req(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `camera_auth_logins_total{result="invalid_credentials"} 1`)
	assert.Contains(t, rec.Body.String(), `camera_http_requests_total{method="POST",route="/api/auth/login",status="401"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	a := newApp(t)
	r := httptest.NewRequest(http.MethodOptions, "/api/cameras", nil)
	r.Header.Set(echo.HeaderOrigin, "http://dashboard.local")
	r.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)
}

func TestSignupRequiresAdmin(t *testing.T) {
	a := newApp(t)
	admin := a.login(t, "admin", "admin123")
	body := `{"username":"ops1","password":"secret1"}`

	rec := a.req(t, http.MethodPost, "/api/auth/signup", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"No token provided"}`, rec.Body.String())

	rec = a.req(t, http.MethodPost, "/api/auth/signup", "garbage", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid or expired token"}`, rec.Body.String())

	rec = a.req(t, http.MethodPost, "/api/auth/signup", admin, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	ops := a.login(t, "ops1", "secret1")
	rec = a.req(t, http.MethodPost, "/api/auth/signup", ops, `{"username":"ops2","password":"x"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Admin access required"}`, rec.Body.String())

	rec = a.req(t, http.MethodPost, "/api/auth/signup", admin, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Username already exists"}`, rec.Body.String())

	n, err := a.users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMeReflectsToken(t *testing.T) {
	a := newApp(t)
	tok := a.login(t, "admin", "admin123")

	rec := a.req(t, http.MethodGet, "/api/auth/me", tok, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"admin"`)
	assert.Equal(t, http.StatusUnauthorized, a.req(t, http.MethodGet, "/api/auth/me", "", "").Code)
}

// Walks the camera lifecycle for two operators and checks isolation.
func TestCameraScenario(t *testing.T) {
	a := newApp(t)
	admin := a.login(t, "admin", "admin123")
	for _, u := range []string{"alice", "bob"} {
		rec := a.req(t, http.MethodPost, "/api/auth/signup", admin, `{"username":"`+u+`","password":"pw-`+u+`"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	alice := a.login(t, "alice", "pw-alice")
	bob := a.login(t, "bob", "pw-bob")

	assert.Equal(t, http.StatusUnauthorized, a.req(t, http.MethodGet, "/api/cameras", "", "").Code)

	rec := a.req(t, http.MethodPost, "/api/cameras", alice, `{"name":"Gate","streamURL":"rtsp://gate","location":"North"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct{ Camera model.Camera }
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Camera.ID
	assert.Equal(t, "Active", created.Camera.Status)

	rec = a.req(t, http.MethodGet, "/api/cameras", bob, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, a.req(t, http.MethodGet, "/api/cameras/"+id, bob, "").Code)
	assert.Equal(t, http.StatusNotFound, a.req(t, http.MethodPut, "/api/cameras/"+id, bob, `{"name":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, a.req(t, http.MethodDelete, "/api/cameras/"+id, bob, "").Code)

	rec = a.req(t, http.MethodPut, "/api/cameras/"+id, alice, `{"status":"Offline"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Offline"`)
	assert.Contains(t, rec.Body.String(), `"name":"Gate"`)

	rec = a.req(t, http.MethodGet, "/api/cameras", alice, "")
	var list []model.Camera
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Offline", list[0].Status)

	require.Equal(t, http.StatusOK, a.req(t, http.MethodDelete, "/api/cameras/"+id, alice, "").Code)
	assert.Equal(t, http.StatusNotFound, a.req(t, http.MethodGet, "/api/cameras/"+id, alice, "").Code)
}

func TestRateLimitBucketPerUser(t *testing.T) {
	a := newApp(t, func(d *Deps) {
		d.RateLimit = config.RateLimitConfig{
			Enabled:        true,
			Capacity:       1,
			RefillTokens:   1,
			RefillInterval: time.Hour,
			TTL:            time.Hour,
			KeyStrategy:    "user",
			Prefix:         "rl",
			LocalKeys:      16,
			Debug:          true,
		}
	})
	alice, aliceTok := a.operator(t, "alice")
	bob, bobTok := a.operator(t, "bob")

	rec := a.req(t, http.MethodGet, "/api/cameras", aliceTok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rl:user:"+alice.ID, rec.Header().Get("X-RateLimit-Key"))

	rec = a.req(t, http.MethodGet, "/api/cameras", bobTok, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "rl:user:"+bob.ID, rec.Header().Get("X-RateLimit-Key"))

	rec = a.req(t, http.MethodGet, "/api/cameras", aliceTok, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests, please try again later"}`, rec.Body.String())

	// me shares the caller's bucket
	assert.Equal(t, http.StatusTooManyRequests, a.req(t, http.MethodGet, "/api/auth/me", bobTok, "").Code)

	// login has no user yet and is keyed by address
	rec = a.req(t, http.MethodPost, "/api/auth/login", "", `{"username":"admin","password":"bad"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "rl:user:anon@192.0.2.1", rec.Header().Get("X-RateLimit-Key"))
}
