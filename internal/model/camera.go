package model

import "time"

// DefaultCameraStatus is assigned when a camera is created without a status.
const DefaultCameraStatus = "Active"

// Column widths of the cameras table, in characters.
const (
	MaxCameraNameLen   = 255
	MaxStreamURLLen    = 2048
	MaxLocationLen     = 255
	MaxCameraStatusLen = 64
)

// Camera represents a camera registered by a user.  Every camera
// belongs to exactly one user (CreatedBy) and is only visible to
// that user.  This struct corresponds to a row in the `cameras`
// table.
//
// Fields:
//  ID        – UUID primary key.
//  Name      – display name.
//  StreamURL – stream address as supplied by the caller.
//  Location  – free-form location label.
//  Status    – free-form status, "Active" by default.
//  CreatedBy – users.id of the owner; set once at creation.
//  CreatedAt – timestamp when the camera was created.
//  UpdatedAt – timestamp of last update.
type Camera struct {
	ID        string    `json:"id"`        // cameras.id
	Name      string    `json:"name"`      // cameras.name
	StreamURL string    `json:"streamURL"` // cameras.stream_url
	Location  string    `json:"location"`  // cameras.location
	Status    string    `json:"status"`    // cameras.status
	CreatedBy string    `json:"createdBy"` // cameras.created_by
	CreatedAt time.Time `json:"createdAt"` // cameras.created_at
	UpdatedAt time.Time `json:"updatedAt"` // cameras.updated_at
}
