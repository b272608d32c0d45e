package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/camera-management/internal/middleware"
	"github.com/iliyamo/camera-management/internal/model"
	q "github.com/iliyamo/camera-management/internal/queue"
	"github.com/iliyamo/camera-management/internal/repository"
)

const msgCameraNotFound = "Camera not found or access denied"

// CameraStore is the camera persistence the handler needs.  Every lookup
// and mutation is scoped to an owner.
type CameraStore interface {
	Create(ctx context.Context, c *model.Camera) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Camera, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Camera, error)
	Update(ctx context.Context, c *model.Camera) error
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error
}

// CameraHandler serves /api/cameras for the authenticated user.  A camera
// owned by someone else is reported exactly like a missing one.
type CameraHandler struct {
	Cameras CameraStore
	Audit   *Auditor
	Log     logrus.FieldLogger
}

func NewCameraHandler(cameras CameraStore, audit *Auditor, log logrus.FieldLogger) *CameraHandler {
	return &CameraHandler{Cameras: cameras, Audit: audit, Log: log}
}

type cameraReq struct {
	Name      string `json:"name"`
	StreamURL string `json:"streamURL"`
	Location  string `json:"location"`
	Status    string `json:"status"`
}

func (r *cameraReq) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.StreamURL = strings.TrimSpace(r.StreamURL)
	r.Location = strings.TrimSpace(r.Location)
	r.Status = strings.TrimSpace(r.Status)
}

// tooLong names the first field that does not fit its column, or "".
func (r *cameraReq) tooLong() string {
	for _, f := range []struct {
		label string
		value string
		max   int
	}{
		{"Name", r.Name, model.MaxCameraNameLen},
		{"Stream URL", r.StreamURL, model.MaxStreamURLLen},
		{"Location", r.Location, model.MaxLocationLen},
		{"Status", r.Status, model.MaxCameraStatusLen},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Sprintf("%s must be at most %d characters", f.label, f.max)
		}
	}
	return ""
}

type cameraResp struct {
	Message string        `json:"message"`
	Camera  *model.Camera `json:"camera"`
}

// Create registers a camera owned by the caller.
func (h *CameraHandler) Create(c echo.Context) error {
	var req cameraReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	req.trim()
	if req.Name == "" || req.StreamURL == "" || req.Location == "" {
		return message(c, http.StatusBadRequest, "Name, Stream URL, and Location are required")
	}
	if msg := req.tooLong(); msg != "" {
		return message(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner := middleware.CurrentUser(c)
	cam := &model.Camera{
		Name:      req.Name,
		StreamURL: req.StreamURL,
		Location:  req.Location,
		Status:    req.Status,
		CreatedBy: owner.ID,
	}
	if err := h.Cameras.Create(ctx, cam); err != nil {
		h.Log.WithError(err).WithField("user_id", owner.ID).Error("camera: create")
		return message(c, http.StatusInternalServerError, "Server error while creating camera")
	}

	h.Audit.Record(q.CameraCreated, owner.ID, cam.ID)
	return c.JSON(http.StatusCreated, cameraResp{Message: "Camera created successfully", Camera: cam})
}

// List returns the caller's cameras.
func (h *CameraHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner := middleware.CurrentUser(c)
	cams, err := h.Cameras.ListByOwner(ctx, owner.ID)
	if err != nil {
		h.Log.WithError(err).WithField("user_id", owner.ID).Error("camera: list")
		return message(c, http.StatusInternalServerError, "Server error while fetching cameras")
	}
	return c.JSON(http.StatusOK, cams)
}

// Get returns one of the caller's cameras.
func (h *CameraHandler) Get(c echo.Context) error {
	id, ok := cameraID(c)
	if !ok {
		return message(c, http.StatusNotFound, msgCameraNotFound)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner := middleware.CurrentUser(c)
	cam, err := h.Cameras.GetByIDAndOwner(ctx, id, owner.ID)
	if err != nil {
		return h.lookupFailed(c, err, "camera: get", "Server error while fetching camera")
	}
	return c.JSON(http.StatusOK, cam)
}

// Update overwrites the fields supplied with a non-blank value and keeps
// the rest.  Concurrent updates are last-write-wins.
func (h *CameraHandler) Update(c echo.Context) error {
	id, ok := cameraID(c)
	if !ok {
		return message(c, http.StatusNotFound, msgCameraNotFound)
	}
	var req cameraReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	req.trim()
	if msg := req.tooLong(); msg != "" {
		return message(c, http.StatusBadRequest, msg)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner := middleware.CurrentUser(c)
	cam, err := h.Cameras.GetByIDAndOwner(ctx, id, owner.ID)
	if err != nil {
		return h.lookupFailed(c, err, "camera: update lookup", "Server error while updating camera")
	}

	if req.Name != "" {
		cam.Name = req.Name
	}
	if req.StreamURL != "" {
		cam.StreamURL = req.StreamURL
	}
	if req.Location != "" {
		cam.Location = req.Location
	}
	if req.Status != "" {
		cam.Status = req.Status
	}

	if err := h.Cameras.Update(ctx, cam); err != nil {
		// deleted between the lookup and the write
		return h.lookupFailed(c, err, "camera: update", "Server error while updating camera")
	}

	h.Audit.Record(q.CameraUpdated, owner.ID, cam.ID)
	return c.JSON(http.StatusOK, cameraResp{Message: "Camera updated successfully", Camera: cam})
}

// Delete removes one of the caller's cameras.
func (h *CameraHandler) Delete(c echo.Context) error {
	id, ok := cameraID(c)
	if !ok {
		return message(c, http.StatusNotFound, msgCameraNotFound)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owner := middleware.CurrentUser(c)
	if err := h.Cameras.DeleteByIDAndOwner(ctx, id, owner.ID); err != nil {
		return h.lookupFailed(c, err, "camera: delete", "Server error while deleting camera")
	}

	h.Audit.Record(q.CameraDeleted, owner.ID, id)
	return message(c, http.StatusOK, "Camera deleted successfully")
}

func (h *CameraHandler) lookupFailed(c echo.Context, err error, op, msg500 string) error {
	if errors.Is(err, repository.ErrCameraNotFound) {
		return message(c, http.StatusNotFound, msgCameraNotFound)
	}
	h.Log.WithError(err).WithField("camera_id", c.Param("id")).Error(op)
	return message(c, http.StatusInternalServerError, msg500)
}

// cameraID returns the :id path parameter in canonical form.  Anything that
// is not a UUID cannot name a camera.
func cameraID(c echo.Context) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		return "", false
	}
	return id.String(), true
}
