package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrEventConflict is returned by the fake when a create overlaps an
// existing event.
var ErrEventConflict = errors.New("calendar: event overlaps an existing event")

// FakeEvent is an event recorded by the fake provider.
type FakeEvent struct {
	ID         string
	CalendarID string
	Event      Event
}

// Fake is an in-memory Provider used in tests and demo mode. Unlike the real
// service it rejects overlapping creates, which lets booking races be
// exercised deterministically.
type Fake struct {
	mu     sync.Mutex
	nextID int
	busy   map[string][]Interval
	events []FakeEvent

	// FreeBusyErr and CreateErr force the next call of each kind to fail.
	FreeBusyErr error
	CreateErr   error
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{busy: make(map[string][]Interval)}
}

// SetBusy seeds busy intervals for a calendar.
func (f *Fake) SetBusy(calendarID string, intervals ...Interval) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy[calendarID] = append(f.busy[calendarID], intervals...)
}

// FreeBusy returns seeded busy intervals plus intervals of created events.
func (f *Fake) FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FreeBusyErr != nil {
		err := f.FreeBusyErr
		f.FreeBusyErr = nil
		return nil, err
	}

	window := Interval{Start: from, End: to}
	var out []Interval
	for _, iv := range f.busy[calendarID] {
		if iv.Overlaps(window) {
			out = append(out, iv)
		}
	}
	return out, nil
}

// CreateEvent records the event unless it overlaps something already booked.
func (f *Fake) CreateEvent(ctx context.Context, calendarID string, event Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		err := f.CreateErr
		f.CreateErr = nil
		return "", err
	}

	slot := Interval{Start: event.Start, End: event.End}
	for _, iv := range f.busy[calendarID] {
		if iv.Overlaps(slot) {
			return "", ErrEventConflict
		}
	}

	f.nextID++
	id := fmt.Sprintf("evt-%d", f.nextID)
	f.busy[calendarID] = append(f.busy[calendarID], slot)
	f.events = append(f.events, FakeEvent{ID: id, CalendarID: calendarID, Event: event})
	return id, nil
}

// Events returns a copy of all created events.
func (f *Fake) Events() []FakeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeEvent, len(f.events))
	copy(out, f.events)
	return out
}

var _ Provider = (*Fake)(nil)
