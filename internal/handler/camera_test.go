package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/camera-management/internal/database"
	"github.com/iliyamo/camera-management/internal/model"
	q "github.com/iliyamo/camera-management/internal/queue"
	"github.com/iliyamo/camera-management/internal/repository"
)

type cameraFixture struct {
	alice, bob *echo.Echo
	pub        *recordingPublisher
	audit      *Auditor
}

func newCameraFixture(t *testing.T) *cameraFixture {
	t.Helper()
	db := database.NewTestDB(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	alice := &model.User{Username: "alice", PasswordHash: "x", Role: model.RoleOperator}
	bob := &model.User{Username: "bob", PasswordHash: "x", Role: model.RoleOperator}
	require.NoError(t, users.Create(ctx, alice))
	require.NoError(t, users.Create(ctx, bob))

	log, _ := test.NewNullLogger()
	f := &cameraFixture{pub: &recordingPublisher{}}
	f.audit = NewAuditor(f.pub, log)
	h := NewCameraHandler(repository.NewCameraRepo(db), f.audit, log)

	mount := func(u *model.User) *echo.Echo {
		e := newEcho()
		g := e.Group("/api/cameras", as(u))
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
		return e
	}
	f.alice, f.bob = mount(alice), mount(bob)
	return f
}

func decodeCamera(t *testing.T, body []byte) model.Camera {
	t.Helper()
	var resp struct {
		Message string       `json:"message"`
		Camera  model.Camera `json:"camera"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Camera
}

func (f *cameraFixture) create(t *testing.T, e *echo.Echo, body string) model.Camera {
	t.Helper()
	rec := call(t, e, http.MethodPost, "/api/cameras", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeCamera(t, rec.Body.Bytes())
}

func TestCameraCreate(t *testing.T) {
	f := newCameraFixture(t)

	rec := call(t, f.alice, http.MethodPost, "/api/cameras",
		`{"name":" Lobby ","streamURL":"rtsp://10.0.0.2/live","location":"HQ"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Camera created successfully"`)

	cam := decodeCamera(t, rec.Body.Bytes())
	assert.NotEmpty(t, cam.ID)
	assert.Equal(t, "Lobby", cam.Name)
	assert.Equal(t, model.DefaultCameraStatus, cam.Status)
	assert.NotEmpty(t, cam.CreatedBy)
	assert.False(t, cam.CreatedAt.IsZero())

	// createdBy in the body is ignored
	other := f.create(t, f.alice, `{"name":"B","streamURL":"rtsp://b","location":"L","status":"Offline","createdBy":"someone"}`)
	assert.Equal(t, cam.CreatedBy, other.CreatedBy)
	assert.Equal(t, "Offline", other.Status)
}

func TestCameraCreate_Validation(t *testing.T) {
	f := newCameraFixture(t)

	for _, body := range []string{
		`{"streamURL":"rtsp://a","location":"L"}`,
		`{"name":"A","location":"L"}`,
		`{"name":"A","streamURL":"rtsp://a","location":"   "}`,
	} {
		rec := call(t, f.alice, http.MethodPost, "/api/cameras", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"message":"Name, Stream URL, and Location are required"}`, rec.Body.String())
	}

	rec := call(t, f.alice, http.MethodPost, "/api/cameras", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid request body"}`, rec.Body.String())
}

func TestCamera_OverlongFields(t *testing.T) {
	f := newCameraFixture(t)
	cam := f.create(t, f.alice, `{"name":"A","streamURL":"rtsp://a","location":"L"}`)
	long := strings.Repeat("n", model.MaxCameraNameLen+1)

	rec := call(t, f.alice, http.MethodPost, "/api/cameras",
		`{"name":"`+long+`","streamURL":"rtsp://a","location":"L"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Name must be at most 255 characters"}`, rec.Body.String())

	rec = call(t, f.alice, http.MethodPut, "/api/cameras/"+cam.ID,
		`{"location":"`+strings.Repeat("l", model.MaxLocationLen+1)+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Location must be at most 255 characters"}`, rec.Body.String())

	// multi-byte characters count once
	rec = call(t, f.alice, http.MethodPut, "/api/cameras/"+cam.ID,
		`{"name":"`+strings.Repeat("é", model.MaxCameraNameLen)+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, f.alice, http.MethodGet, "/api/cameras", "")
	var cams []model.Camera
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cams))
	require.Len(t, cams, 1)
	assert.Equal(t, "L", cams[0].Location)
}

func TestCameraList_OnlyOwn(t *testing.T) {
	f := newCameraFixture(t)

	rec := call(t, f.alice, http.MethodGet, "/api/cameras", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	f.create(t, f.alice, `{"name":"A1","streamURL":"rtsp://a1","location":"L"}`)
	f.create(t, f.alice, `{"name":"A2","streamURL":"rtsp://a2","location":"L"}`)
	f.create(t, f.bob, `{"name":"B1","streamURL":"rtsp://b1","location":"L"}`)

	var cams []model.Camera
	rec = call(t, f.alice, http.MethodGet, "/api/cameras", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cams))
	require.Len(t, cams, 2)
	for _, c := range cams {
		assert.Contains(t, []string{"A1", "A2"}, c.Name)
	}
}

// Cameras of other users must be indistinguishable from missing ones.
func TestCamera_ForeignLooksMissing(t *testing.T) {
	f := newCameraFixture(t)
	cam := f.create(t, f.alice, `{"name":"A","streamURL":"rtsp://a","location":"L"}`)
	notFound := `{"message":"Camera not found or access denied"}`

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/cameras/" + cam.ID, ""},
		{http.MethodPut, "/api/cameras/" + cam.ID, `{"name":"pwned"}`},
		{http.MethodDelete, "/api/cameras/" + cam.ID, ""},
		{http.MethodGet, "/api/cameras/00000000-0000-0000-0000-000000000000", ""},
		{http.MethodGet, "/api/cameras/not-a-uuid", ""},
		{http.MethodDelete, "/api/cameras/not-a-uuid", ""},
	} {
		rec := call(t, f.bob, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, tc.method+" "+tc.path)
		assert.JSONEq(t, notFound, rec.Body.String())
	}

	// alice's camera is untouched
	rec := call(t, f.alice, http.MethodGet, "/api/cameras/"+cam.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Camera
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "A", got.Name)
}

func TestCameraUpdate_Partial(t *testing.T) {
	f := newCameraFixture(t)
	cam := f.create(t, f.alice, `{"name":"A","streamURL":"rtsp://a","location":"L"}`)

	rec := call(t, f.alice, http.MethodPut, "/api/cameras/"+cam.ID, `{"location":"Roof","status":"","name":"  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message":"Camera updated successfully"`)

	got := decodeCamera(t, rec.Body.Bytes())
	assert.Equal(t, "A", got.Name)
	assert.Equal(t, "rtsp://a", got.StreamURL)
	assert.Equal(t, "Roof", got.Location)
	assert.Equal(t, model.DefaultCameraStatus, got.Status)
	assert.Equal(t, cam.CreatedBy, got.CreatedBy)

	rec = call(t, f.alice, http.MethodGet, "/api/cameras/"+cam.ID, "")
	var stored model.Camera
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "Roof", stored.Location)
}

func TestCameraDelete(t *testing.T) {
	f := newCameraFixture(t)
	cam := f.create(t, f.alice, `{"name":"A","streamURL":"rtsp://a","location":"L"}`)

	rec := call(t, f.alice, http.MethodDelete, "/api/cameras/"+cam.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Camera deleted successfully"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, call(t, f.alice, http.MethodGet, "/api/cameras/"+cam.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, call(t, f.alice, http.MethodDelete, "/api/cameras/"+cam.ID, "").Code)
}

func TestCamera_AuditEvents(t *testing.T) {
	f := newCameraFixture(t)
	f.pub.err = errors.New("broker down") // must not affect responses

	cam := f.create(t, f.alice, `{"name":"A","streamURL":"rtsp://a","location":"L"}`)
	require.Equal(t, http.StatusOK, call(t, f.alice, http.MethodPut, "/api/cameras/"+cam.ID, `{"name":"B"}`).Code)
	require.Equal(t, http.StatusOK, call(t, f.alice, http.MethodDelete, "/api/cameras/"+cam.ID, "").Code)
	call(t, f.bob, http.MethodDelete, "/api/cameras/"+cam.ID, "")

	f.audit.Wait()
	assert.ElementsMatch(t, []string{q.CameraCreated, q.CameraUpdated, q.CameraDeleted}, f.pub.types())
}

// failingCameras fails every call with a store error.
type failingCameras struct{}

var errStore = errors.New("connection reset by peer")

func (failingCameras) Create(context.Context, *model.Camera) error { return errStore }
func (failingCameras) GetByIDAndOwner(context.Context, string, string) (*model.Camera, error) {
	return nil, errStore
}
func (failingCameras) ListByOwner(context.Context, string) ([]*model.Camera, error) {
	return nil, errStore
}
func (failingCameras) Update(context.Context, *model.Camera) error             { return errStore }
func (failingCameras) DeleteByIDAndOwner(context.Context, string, string) error { return errStore }

func TestCamera_StoreFailures(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := NewCameraHandler(failingCameras{}, nil, log)
	e := newEcho()
	g := e.Group("/api/cameras", as(&model.User{ID: "u1", Role: model.RoleOperator}))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)

	id := "/api/cameras/3f2b8c1e-8a5d-4c8e-9a61-0b3c2d1e4f50"
	for _, tc := range []struct{ method, path, body, msg string }{
		{http.MethodPost, "/api/cameras", `{"name":"A","streamURL":"rtsp://a","location":"L"}`, "Server error while creating camera"},
		{http.MethodGet, "/api/cameras", "", "Server error while fetching cameras"},
		{http.MethodGet, id, "", "Server error while fetching camera"},
		{http.MethodDelete, id, "", "Server error while deleting camera"},
	} {
		rec := call(t, e, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"message":"`+tc.msg+`"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "peer")
	}
	assert.Len(t, hook.AllEntries(), 4)
}

func TestAuditor_NilIsNoop(t *testing.T) {
	var a *Auditor
	a.Record(q.CameraCreated, "u", "c")
	a.Wait()

	done := make(chan struct{})
	go func() { NewAuditor(nil, nil).Record(q.CameraCreated, "u", "c"); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked")
	}
}
