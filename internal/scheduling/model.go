package scheduling

import (
	"fmt"
	"time"

	"github.com/clinicflow/clinicflow/internal/directory"
)

// TimeSlot is a bookable interval for a specialist.
type TimeSlot struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	SpecialistID string    `json:"specialist_id"`
}

// Label renders the slot in clinic-local time for chat display.
func (s TimeSlot) Label(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	start := s.Start.In(loc)
	end := s.End.In(loc)
	return fmt.Sprintf("%s %s–%s", start.Format("Mon Jan 2"), start.Format("3:04 PM"), end.Format("3:04 PM"))
}

// Equal reports whether two slots denote the same interval for the same
// specialist.
func (s TimeSlot) Equal(other TimeSlot) bool {
	return s.SpecialistID == other.SpecialistID && s.Start.Equal(other.Start) && s.End.Equal(other.End)
}

// Patient is the contact info collected during the chat.
type Patient struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Symptoms string `json:"symptoms,omitempty"`
}

// Appointment is the record of a successful booking. Its only durable home
// is the calendar provider; the app keeps no independent copy.
type Appointment struct {
	EventID    string               `json:"event_id"`
	Specialist directory.Specialist `json:"specialist"`
	Slot       TimeSlot             `json:"slot"`
	Patient    Patient              `json:"patient"`
	BookedAt   time.Time            `json:"booked_at"`
}

// AvailabilityTemplate is the static weekly availability pattern that gets
// intersected with live free/busy data.
type AvailabilityTemplate struct {
	OpenHour   int
	CloseHour  int
	SlotLength time.Duration
	Location   *time.Location
	// Weekdays limits availability to the listed days. Empty means every day.
	Weekdays []time.Weekday
}

// DefaultTemplate mirrors the clinic's 9-to-5, 30-minute pattern.
func DefaultTemplate(loc *time.Location) AvailabilityTemplate {
	return AvailabilityTemplate{
		OpenHour:   9,
		CloseHour:  17,
		SlotLength: 30 * time.Minute,
		Location:   loc,
	}
}

func (t AvailabilityTemplate) includesWeekday(d time.Weekday) bool {
	if len(t.Weekdays) == 0 {
		return true
	}
	for _, wd := range t.Weekdays {
		if wd == d {
			return true
		}
	}
	return false
}
