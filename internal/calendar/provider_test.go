package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ts(hour, min int) time.Time {
	return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", Interval{ts(9, 0), ts(9, 30)}, Interval{ts(10, 0), ts(10, 30)}, false},
		{"adjacent", Interval{ts(9, 0), ts(9, 30)}, Interval{ts(9, 30), ts(10, 0)}, false},
		{"partial", Interval{ts(9, 0), ts(9, 30)}, Interval{ts(9, 15), ts(9, 45)}, true},
		{"contained", Interval{ts(9, 0), ts(10, 0)}, Interval{ts(9, 15), ts(9, 30)}, true},
		{"identical", Interval{ts(9, 0), ts(9, 30)}, Interval{ts(9, 0), ts(9, 30)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Fatalf("Overlaps() = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Fatalf("Overlaps() not symmetric: %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFakeCreateRejectsOverlap(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	id, err := fake.CreateEvent(ctx, "dr-a@x", Event{Start: ts(9, 0), End: ts(9, 30)})
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected event id")
	}

	_, err = fake.CreateEvent(ctx, "dr-a@x", Event{Start: ts(9, 0), End: ts(9, 30)})
	if !errors.Is(err, ErrEventConflict) {
		t.Fatalf("expected ErrEventConflict, got %v", err)
	}

	// Same time on a different calendar is fine.
	if _, err := fake.CreateEvent(ctx, "dr-b@x", Event{Start: ts(9, 0), End: ts(9, 30)}); err != nil {
		t.Fatalf("CreateEvent() on other calendar error = %v", err)
	}

	if got := len(fake.Events()); got != 2 {
		t.Fatalf("expected 2 recorded events, got %d", got)
	}
}

func TestFakeFreeBusyReflectsCreatedEvents(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	fake.SetBusy("dr-a@x", Interval{Start: ts(11, 0), End: ts(12, 0)})
	if _, err := fake.CreateEvent(ctx, "dr-a@x", Event{Start: ts(9, 0), End: ts(9, 30)}); err != nil {
		t.Fatal(err)
	}

	busy, err := fake.FreeBusy(ctx, "dr-a@x", ts(8, 0), ts(17, 0))
	if err != nil {
		t.Fatalf("FreeBusy() error = %v", err)
	}
	if len(busy) != 2 {
		t.Fatalf("expected 2 busy intervals, got %d", len(busy))
	}

	// Window clipping: only the seeded interval falls in the afternoon.
	busy, err = fake.FreeBusy(ctx, "dr-a@x", ts(10, 0), ts(17, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(busy) != 1 || !busy[0].Start.Equal(ts(11, 0)) {
		t.Fatalf("expected only the seeded interval, got %v", busy)
	}
}

func TestFakeForcedErrors(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	fake.FreeBusyErr = errors.New("boom")
	if _, err := fake.FreeBusy(ctx, "dr-a@x", ts(9, 0), ts(17, 0)); err == nil {
		t.Fatal("expected forced freebusy error")
	}
	// Forced error is one-shot.
	if _, err := fake.FreeBusy(ctx, "dr-a@x", ts(9, 0), ts(17, 0)); err != nil {
		t.Fatalf("expected recovery after forced error, got %v", err)
	}

	fake.CreateErr = errors.New("boom")
	if _, err := fake.CreateEvent(ctx, "dr-a@x", Event{Start: ts(9, 0), End: ts(9, 30)}); err == nil {
		t.Fatal("expected forced create error")
	}
}
