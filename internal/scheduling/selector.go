// Package scheduling turns a static weekly availability template and a live
// calendar free/busy feed into bookable slots, and books them with
// optimistic re-validation.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicflow/clinicflow/internal/calendar"
	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/internal/observability/metrics"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// Selector computes available slots for a specialist.
type Selector struct {
	provider calendar.Provider
	template AvailabilityTemplate
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewSelector creates a slot selector.
func NewSelector(provider calendar.Provider, template AvailabilityTemplate, m *metrics.SchedulingMetrics, logger *logging.Logger) *Selector {
	if provider == nil {
		panic("scheduling: calendar provider required")
	}
	if template.Location == nil {
		template.Location = time.UTC
	}
	if template.SlotLength <= 0 {
		template.SlotLength = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Selector{
		provider: provider,
		template: template,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// AvailableSlots returns the specialist's free slots for the given number of
// days starting at from, ascending by start time. Past slots are skipped. A
// calendar failure is reported as ErrAvailabilityUnknown; an empty result
// with nil error means the calendar answered and nothing is free.
func (s *Selector) AvailableSlots(ctx context.Context, specialist directory.Specialist, from time.Time, days int) ([]TimeSlot, error) {
	if days <= 0 {
		days = 1
	}

	loc := s.template.Location
	firstDay := time.Date(from.In(loc).Year(), from.In(loc).Month(), from.In(loc).Day(), 0, 0, 0, 0, loc)
	rangeStart := firstDay.Add(time.Duration(s.template.OpenHour) * time.Hour)
	rangeEnd := firstDay.AddDate(0, 0, days-1).Add(time.Duration(s.template.CloseHour) * time.Hour)

	queryStart := s.now()
	busy, err := s.provider.FreeBusy(ctx, specialist.CalendarID, rangeStart, rangeEnd)
	s.metrics.ObserveProviderLatency("freebusy", time.Since(queryStart).Seconds())
	if err != nil {
		s.metrics.ObserveSlotQuery("error")
		return nil, fmt.Errorf("%w: %w", ErrAvailabilityUnknown, err)
	}
	s.metrics.ObserveSlotQuery("ok")

	now := s.now()
	slots := make([]TimeSlot, 0)
	for d := 0; d < days; d++ {
		day := firstDay.AddDate(0, 0, d)
		if !s.template.includesWeekday(day.Weekday()) {
			continue
		}
		open := day.Add(time.Duration(s.template.OpenHour) * time.Hour)
		close := day.Add(time.Duration(s.template.CloseHour) * time.Hour)

		for start := open; start.Add(s.template.SlotLength).Before(close) || start.Add(s.template.SlotLength).Equal(close); start = start.Add(s.template.SlotLength) {
			end := start.Add(s.template.SlotLength)
			if !start.After(now) {
				continue
			}
			candidate := calendar.Interval{Start: start, End: end}
			free := true
			for _, iv := range busy {
				if candidate.Overlaps(iv) {
					free = false
					break
				}
			}
			if free {
				slots = append(slots, TimeSlot{Start: start, End: end, SpecialistID: specialist.ID})
			}
		}
	}

	s.logger.Debug("scheduling: availability computed",
		"specialist_id", specialist.ID,
		"busy_intervals", len(busy),
		"free_slots", len(slots),
	)
	return slots, nil
}

// Location exposes the clinic timezone for display formatting.
func (s *Selector) Location() *time.Location {
	return s.template.Location
}
