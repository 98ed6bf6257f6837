// Package events fans booking lifecycle notifications out to subscribers.
// Delivery is best effort: publish failures never undo a committed booking.
package events

import (
	"context"
	"errors"
	"time"
)

type Type string

const (
	BookingCreated   Type = "booking.created"
	BookingCancelled Type = "booking.cancelled"
	BookingApproved  Type = "booking.approved"
	WindowRolled     Type = "window.rolled"
)

type Event struct {
	Type       Type      `json:"type"`
	RoomID     int64     `json:"room_id"`
	BookingID  int64     `json:"booking_id,omitempty"`
	UserID     int64     `json:"user_id,omitempty"`
	Date       string    `json:"date,omitempty"`
	StartTime  string    `json:"start_time,omitempty"`
	EndTime    string    `json:"end_time,omitempty"`
	Status     string    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
