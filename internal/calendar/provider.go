// Package calendar abstracts the calendar service behind the two
// operations the scheduler consumes: a free/busy query and event creation.
// The provider is the sole durable home of a booking.
package calendar

import (
	"context"
	"time"
)

// Interval is a half-open [Start, End) busy period.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two intervals share any time.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Event is the payload for event creation.
type Event struct {
	Summary       string
	Description   string
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	Timezone      string
}

// Provider is the narrow calendar capability interface.
type Provider interface {
	// FreeBusy returns the busy intervals for a calendar within [from, to).
	FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]Interval, error)
	// CreateEvent writes one event and returns the provider's event id.
	CreateEvent(ctx context.Context, calendarID string, event Event) (string, error)
}
