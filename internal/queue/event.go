// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// AuditQueueName is the durable queue audit events are published to.
const AuditQueueName = "camera.audit"

// Event types.
const (
	UserCreated   = "user.created"
	CameraCreated = "camera.created"
	CameraUpdated = "camera.updated"
	CameraDeleted = "camera.deleted"
)

// AuditEvent is published after a successful state change.  It carries
// identifiers only; consumers that need more must ask the API.
type AuditEvent struct {
	Type       string    `json:"type"`
	ActorID    string    `json:"actorId"`
	ResourceID string    `json:"resourceId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewAuditEvent stamps an event with the current UTC time.
func NewAuditEvent(typ, actorID, resourceID string) AuditEvent {
	return AuditEvent{Type: typ, ActorID: actorID, ResourceID: resourceID, OccurredAt: time.Now().UTC()}
}
