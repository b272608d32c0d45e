// Package repository contains data access logic separated from HTTP handlers.
// This file holds the camera queries.  Every read and write except Create is
// filtered by the owning user, so a camera owned by someone else looks
// exactly like one that does not exist.
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/camera-management/internal/model"
)

// CameraRepo encapsulates all database queries related to cameras.
type CameraRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewCameraRepo constructs a CameraRepo with the provided DB handle.
func NewCameraRepo(db *sql.DB) *CameraRepo {
	return &CameraRepo{db: db}
}

const cameraColumns = "id, name, stream_url, location, status, created_by, created_at, updated_at"

// Create inserts a new camera.  ID and timestamps are assigned here; the
// caller sets CreatedBy from the authenticated user and Status is defaulted
// when blank.
func (r *CameraRepo) Create(ctx context.Context, c *model.Camera) error {
	if c.Status == "" {
		c.Status = model.DefaultCameraStatus
	}
	now := time.Now().UTC().Truncate(time.Second)
	c.ID = uuid.NewString()
	c.CreatedAt, c.UpdatedAt = now, now

	const q = "INSERT INTO cameras (" + cameraColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	if _, err := r.db.ExecContext(ctx, q,
		c.ID, c.Name, c.StreamURL, c.Location, c.Status, c.CreatedBy, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert camera: %w", err)
	}
	return nil
}

// GetByIDAndOwner fetches a camera by id but only if it belongs to the
// specified owner.  If the camera doesn't exist or is owned by someone
// else, ErrCameraNotFound is returned.
func (r *CameraRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Camera, error) {
	const q = "SELECT " + cameraColumns + " FROM cameras WHERE id = ? AND created_by = ?"
	c, err := scanCamera(r.db.QueryRowContext(ctx, q, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCameraNotFound
		}
		return nil, fmt.Errorf("select camera: %w", err)
	}
	return c, nil
}

// ListByOwner returns all cameras for a specific owner in creation order.
// An owner without cameras gets an empty, non-nil slice.
func (r *CameraRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Camera, error) {
	const q = "SELECT " + cameraColumns + " FROM cameras WHERE created_by = ? ORDER BY created_at, id"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	defer rows.Close()

	out := []*model.Camera{}
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("scan camera: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cameras: %w", err)
	}
	return out, nil
}

// Update overwrites the mutable fields of c, matching on both id and
// owner.  UpdatedAt is refreshed.  No version check is made; the last
// write wins.
func (r *CameraRepo) Update(ctx context.Context, c *model.Camera) error {
	c.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	const q = `UPDATE cameras
	           SET name = ?, stream_url = ?, location = ?, status = ?, updated_at = ?
	           WHERE id = ? AND created_by = ?`
	res, err := r.db.ExecContext(ctx, q, c.Name, c.StreamURL, c.Location, c.Status, c.UpdatedAt, c.ID, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("update camera: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrCameraNotFound
	}
	return nil
}

// DeleteByIDAndOwner removes a camera provided it belongs to the specified
// owner.  ErrCameraNotFound is returned when nothing was deleted.
func (r *CameraRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cameras WHERE id = ? AND created_by = ?", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete camera: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete camera: %w", err)
	}
	if n == 0 {
		return ErrCameraNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamera(s rowScanner) (*model.Camera, error) {
	var c model.Camera
	if err := s.Scan(&c.ID, &c.Name, &c.StreamURL, &c.Location, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
