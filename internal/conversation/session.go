// Package conversation drives the symptom-to-appointment chat flow as an
// explicit state machine: collect symptoms, classify, pick a specialist,
// pick a slot, book. Each user action triggers exactly one transition, which
// completes (including outbound provider calls) before the next action is
// accepted.
package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/internal/scheduling"
)

// State names a position in the chat flow.
type State string

const (
	StateCollectingSymptoms State = "collecting_symptoms"
	StateAwaitingCategory   State = "awaiting_category_choice"
	StateAwaitingSpecialist State = "awaiting_specialist_choice"
	StateAwaitingSlot       State = "awaiting_slot_choice"
	StateConfirmed          State = "confirmed"
	// StateFailed is entered when a collaborator call fails. The Failure
	// record names what failed and where a retry resumes.
	StateFailed State = "failed"
)

// FailureKind classifies a collaborator failure for the retry affordance.
type FailureKind string

const (
	FailureClassificationUnavailable FailureKind = "classification_unavailable"
	FailureAvailabilityUnknown       FailureKind = "availability_unknown"
	FailureBookingFailed             FailureKind = "booking_failed"
)

// RetryAction names the collaborator call a retry re-runs.
type RetryAction string

const (
	RetryClassify   RetryAction = "classify"
	RetryFetchSlots RetryAction = "fetch_slots"
	RetryBook       RetryAction = "book"
)

// Failure captures a failed transition so a retry can re-run it.
type Failure struct {
	Kind   FailureKind `json:"kind"`
	Resume RetryAction `json:"resume"`
}

// Session is the per-chat context. One instance per chat session, mutated
// only by the controller, discarded at session end.
type Session struct {
	ID      string             `json:"id"`
	Patient scheduling.Patient `json:"patient"`

	Symptoms []string           `json:"symptoms"`
	Category directory.Category `json:"category,omitempty"`
	// Advice and Explanation carry the AI assessment shown alongside the
	// specialist recommendation.
	Advice      string `json:"advice,omitempty"`
	Explanation string `json:"explanation,omitempty"`

	SpecialistID string               `json:"specialist_id,omitempty"`
	Slot         *scheduling.TimeSlot `json:"slot,omitempty"`

	// Presented* hold the last enumerated list shown to the user, so a
	// 1-based choice can be resolved on the next turn.
	PresentedCategories  []directory.Category   `json:"presented_categories,omitempty"`
	PresentedSpecialists []string               `json:"presented_specialists,omitempty"`
	PresentedSlots       []scheduling.TimeSlot  `json:"presented_slots,omitempty"`
	// ExcludedSlots are slots that lost a booking race; they are filtered
	// out of refreshed availability.
	ExcludedSlots []scheduling.TimeSlot `json:"excluded_slots,omitempty"`

	State       State    `json:"state"`
	Failure     *Failure `json:"failure,omitempty"`
	Appointment *scheduling.Appointment `json:"appointment,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session in the symptom-collection state.
func NewSession(patient scheduling.Patient) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Patient:   patient,
		State:     StateCollectingSymptoms,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SymptomBuffer joins the collected symptom turns for classification.
func (s *Session) SymptomBuffer() string {
	out := ""
	for i, line := range s.Symptoms {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}

func (s *Session) clearPresented() {
	s.PresentedCategories = nil
	s.PresentedSpecialists = nil
	s.PresentedSlots = nil
}

func (s *Session) isExcluded(slot scheduling.TimeSlot) bool {
	for _, ex := range s.ExcludedSlots {
		if ex.Equal(slot) {
			return true
		}
	}
	return false
}

// reset returns the session to a fresh symptom-collection state, keeping
// the patient contact info.
func (s *Session) reset() {
	s.Symptoms = nil
	s.Category = ""
	s.Advice = ""
	s.Explanation = ""
	s.SpecialistID = ""
	s.Slot = nil
	s.ExcludedSlots = nil
	s.Failure = nil
	s.Appointment = nil
	s.clearPresented()
	s.State = StateCollectingSymptoms
}
