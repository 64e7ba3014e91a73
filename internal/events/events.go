// Package events fans committed notifications out to external subscribers.
// Publishing is best-effort: the notification row is the source of truth.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nemt/internal/domain/models"

	"github.com/google/uuid"
)

type Event struct {
	ID             string              `json:"id"`
	Type           string              `json:"type"`
	OrganizationID int64               `json:"organizationId"`
	OccurredAt     time.Time           `json:"occurredAt"`
	Notification   models.Notification `json:"notification"`
}

func NewNotificationEvent(n models.Notification, at time.Time) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           string(n.Type),
		OrganizationID: n.OrganizationID,
		OccurredAt:     at.UTC(),
		Notification:   n,
	}
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Channel returns the per-organization channel subscribers listen on.
func Channel(orgID int64) string {
	return fmt.Sprintf("nemt:org:%d:notifications", orgID)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
