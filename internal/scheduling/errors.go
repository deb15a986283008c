package scheduling

import "errors"

var (
	// ErrAvailabilityUnknown means the calendar query failed. It is distinct
	// from an empty slot list, which means the query succeeded and nothing
	// is free.
	ErrAvailabilityUnknown = errors.New("scheduling: availability unknown")

	// ErrSlotConflict means the slot was taken between presentation and
	// booking. The caller should refresh the slot list.
	ErrSlotConflict = errors.New("scheduling: slot no longer available")

	// ErrBookingFailed means the calendar write failed for a reason other
	// than a conflict.
	ErrBookingFailed = errors.New("scheduling: booking failed")
)
