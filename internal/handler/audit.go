package handler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	q "github.com/iliyamo/camera-management/internal/queue"
	"github.com/iliyamo/camera-management/internal/service"
)

const publishTimeout = 5 * time.Second

// Auditor hands audit events to a publisher off the request path.  A
// failed publish is logged; it never affects the response.  A nil *Auditor
// records nothing.
type Auditor struct {
	pub service.EventPublisher
	log logrus.FieldLogger
	wg  sync.WaitGroup
}

func NewAuditor(pub service.EventPublisher, log logrus.FieldLogger) *Auditor {
	return &Auditor{pub: pub, log: log}
}

// Record publishes an event of type typ in the background.
func (a *Auditor) Record(typ, actorID, resourceID string) {
	if a == nil || a.pub == nil {
		return
	}
	ev := q.NewAuditEvent(typ, actorID, resourceID)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := a.pub.Publish(ctx, ev); err != nil {
			a.log.WithError(err).WithFields(logrus.Fields{
				"event":       ev.Type,
				"resource_id": ev.ResourceID,
			}).Warn("audit: event dropped")
		}
	}()
}

// Wait blocks until in-flight events are handed off.
func (a *Auditor) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}
