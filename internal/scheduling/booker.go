package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicflow/clinicflow/internal/calendar"
	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/internal/observability/metrics"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// ConfirmationSender delivers the appointment summary to the patient.
// Failures are logged and swallowed; they never roll back a booking.
type ConfirmationSender interface {
	SendAppointmentConfirmation(ctx context.Context, appt Appointment) error
}

// Booker creates calendar events with optimistic re-validation. The
// calendar provider is the sole source of truth, so the re-check plus the
// create call is the only concurrency control: losing the race surfaces as
// ErrSlotConflict.
type Booker struct {
	provider calendar.Provider
	notifier ConfirmationSender
	timezone string
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewBooker creates an appointment booker. notifier may be nil when email
// is not configured.
func NewBooker(provider calendar.Provider, notifier ConfirmationSender, timezone string, m *metrics.SchedulingMetrics, logger *logging.Logger) *Booker {
	if provider == nil {
		panic("scheduling: calendar provider required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Booker{
		provider: provider,
		notifier: notifier,
		timezone: timezone,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Book re-validates the slot against a fresh free/busy query and creates the
// event. Preconditions: the slot came from the selector, so its interval
// already fits the availability template.
func (b *Booker) Book(ctx context.Context, specialist directory.Specialist, slot TimeSlot, patient Patient) (Appointment, error) {
	queryStart := b.now()
	busy, err := b.provider.FreeBusy(ctx, specialist.CalendarID, slot.Start, slot.End)
	b.metrics.ObserveProviderLatency("freebusy", time.Since(queryStart).Seconds())
	if err != nil {
		b.metrics.ObserveBooking("availability_unknown")
		return Appointment{}, fmt.Errorf("%w: revalidation query: %w", ErrAvailabilityUnknown, err)
	}
	candidate := calendar.Interval{Start: slot.Start, End: slot.End}
	for _, iv := range busy {
		if candidate.Overlaps(iv) {
			b.metrics.ObserveBooking("conflict")
			return Appointment{}, ErrSlotConflict
		}
	}

	event := calendar.Event{
		Summary: fmt.Sprintf("Patient Appointment: %s", patient.Name),
		Description: fmt.Sprintf("Patient Details:\nName: %s\nEmail: %s\nPhone: %s\n\nSymptoms: %s",
			patient.Name, patient.Email, patient.Phone, patient.Symptoms),
		Start:         slot.Start,
		End:           slot.End,
		AttendeeEmail: patient.Email,
		Timezone:      b.timezone,
	}

	createStart := b.now()
	eventID, err := b.provider.CreateEvent(ctx, specialist.CalendarID, event)
	b.metrics.ObserveProviderLatency("create_event", time.Since(createStart).Seconds())
	if err != nil {
		// The create call is the atomic operation; a provider-side overlap
		// rejection is the race signal.
		if errors.Is(err, calendar.ErrEventConflict) {
			b.metrics.ObserveBooking("conflict")
			return Appointment{}, ErrSlotConflict
		}
		b.metrics.ObserveBooking("failed")
		return Appointment{}, fmt.Errorf("%w: %w", ErrBookingFailed, err)
	}

	appt := Appointment{
		EventID:    eventID,
		Specialist: specialist,
		Slot:       slot,
		Patient:    patient,
		BookedAt:   b.now().UTC(),
	}
	b.metrics.ObserveBooking("created")
	b.logger.Info("scheduling: appointment booked",
		"event_id", eventID,
		"specialist_id", specialist.ID,
		"slot_start", slot.Start,
	)

	if b.notifier != nil {
		if err := b.notifier.SendAppointmentConfirmation(ctx, appt); err != nil {
			// Best effort only. The booking stands.
			b.logger.Error("scheduling: confirmation email failed", "error", err, "event_id", eventID)
		}
	}
	return appt, nil
}
