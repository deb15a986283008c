package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicflow/clinicflow/internal/calendar"
	"github.com/clinicflow/clinicflow/internal/directory"
)

var testSpecialist = directory.Specialist{
	ID:         "card-1",
	Name:       "Dr. Asha Rao",
	Category:   directory.CategoryCardiologist,
	CalendarID: "asha.rao@clinicflow.example",
}

// fixedNow is a Tuesday morning before clinic open, so every template slot
// on the query day is in the future.
var fixedNow = time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

func newTestSelector(fake *calendar.Fake) *Selector {
	sel := NewSelector(fake, DefaultTemplate(time.UTC), nil, nil)
	sel.now = func() time.Time { return fixedNow }
	return sel
}

func TestAvailableSlotsOrderedAndDisjointFromBusy(t *testing.T) {
	fake := calendar.NewFake()
	busy := []calendar.Interval{
		{Start: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC), End: time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)},
		{Start: time.Date(2026, 9, 2, 9, 15, 0, 0, time.UTC), End: time.Date(2026, 9, 2, 9, 45, 0, 0, time.UTC)},
	}
	fake.SetBusy(testSpecialist.CalendarID, busy...)

	sel := newTestSelector(fake)
	slots, err := sel.AvailableSlots(context.Background(), testSpecialist, fixedNow, 2)
	if err != nil {
		t.Fatalf("AvailableSlots() error = %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}

	// Day one: 16 template slots minus two busy ones; day two: minus the
	// two slots clipped by the 09:15-09:45 busy block.
	if want := 16 - 2 + 16 - 2; len(slots) != want {
		t.Fatalf("expected %d slots, got %d", want, len(slots))
	}

	for i := 1; i < len(slots); i++ {
		if !slots[i-1].Start.Before(slots[i].Start) {
			t.Fatalf("slots not strictly ascending at %d: %v then %v", i, slots[i-1].Start, slots[i].Start)
		}
	}
	for _, slot := range slots {
		iv := calendar.Interval{Start: slot.Start, End: slot.End}
		for _, b := range busy {
			if iv.Overlaps(b) {
				t.Fatalf("slot %v overlaps busy interval %v", slot, b)
			}
		}
		if slot.SpecialistID != testSpecialist.ID {
			t.Fatalf("slot carries wrong specialist id %q", slot.SpecialistID)
		}
	}
}

func TestAvailableSlotsSkipsPastSlots(t *testing.T) {
	fake := calendar.NewFake()
	sel := newTestSelector(fake)
	// Mid-day at 11:00 exactly. Slots must start strictly after now, so the
	// 11:00 slot is gone and 11:30 is the first offer.
	sel.now = func() time.Time { return time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC) }

	slots, err := sel.AvailableSlots(context.Background(), testSpecialist, fixedNow, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) == 0 {
		t.Fatal("expected afternoon slots")
	}
	if !slots[0].Start.Equal(time.Date(2026, 9, 1, 11, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected first slot at 11:30, got %v", slots[0].Start)
	}
}

func TestAvailableSlotsEmptyIsNotAnError(t *testing.T) {
	fake := calendar.NewFake()
	fake.SetBusy(testSpecialist.CalendarID, calendar.Interval{
		Start: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
	})

	sel := newTestSelector(fake)
	slots, err := sel.AvailableSlots(context.Background(), testSpecialist, fixedNow, 1)
	if err != nil {
		t.Fatalf("fully booked day must not be an error, got %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %v", slots)
	}
}

func TestAvailableSlotsQueryFailureIsAvailabilityUnknown(t *testing.T) {
	fake := calendar.NewFake()
	fake.FreeBusyErr = errors.New("network unreachable")

	sel := newTestSelector(fake)
	slots, err := sel.AvailableSlots(context.Background(), testSpecialist, fixedNow, 1)
	if !errors.Is(err, ErrAvailabilityUnknown) {
		t.Fatalf("expected ErrAvailabilityUnknown, got %v", err)
	}
	if slots != nil {
		t.Fatalf("failed query must not return slots, got %v", slots)
	}
}

func TestAvailableSlotsHonorsWeekdayRestriction(t *testing.T) {
	fake := calendar.NewFake()
	tpl := DefaultTemplate(time.UTC)
	tpl.Weekdays = []time.Weekday{time.Wednesday}
	sel := NewSelector(fake, tpl, nil, nil)
	sel.now = func() time.Time { return fixedNow }

	// Sep 1 2026 is a Tuesday, so only Sep 2 (Wednesday) qualifies.
	slots, err := sel.AvailableSlots(context.Background(), testSpecialist, fixedNow, 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, slot := range slots {
		if slot.Start.Weekday() != time.Wednesday {
			t.Fatalf("expected only Wednesday slots, got %v", slot.Start)
		}
	}
	if len(slots) != 16 {
		t.Fatalf("expected a full Wednesday of slots, got %d", len(slots))
	}
}
