package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/clinicflow/clinicflow/internal/directory"
	"github.com/clinicflow/clinicflow/internal/observability/metrics"
	"github.com/clinicflow/clinicflow/internal/scheduling"
	"github.com/clinicflow/clinicflow/internal/triage"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// InputType is the discrete user action driving a transition.
type InputType string

const (
	InputMessage InputType = "message"
	InputDone    InputType = "done"
	InputChoice  InputType = "choice"
	InputRetry   InputType = "retry"
	InputReset   InputType = "reset"
)

// Input is one user action. Choice is 1-based into the last presented list.
type Input struct {
	Type   InputType `json:"type"`
	Text   string    `json:"text,omitempty"`
	Choice int       `json:"choice,omitempty"`
}

// ChoiceKind tells the chat surface what the presented list enumerates.
type ChoiceKind string

const (
	ChoiceCategories  ChoiceKind = "categories"
	ChoiceSpecialists ChoiceKind = "specialists"
	ChoiceSlots       ChoiceKind = "slots"
)

// Reply is what the controller hands back to the chat surface after a
// transition.
type Reply struct {
	SessionID   string                  `json:"session_id"`
	State       State                   `json:"state"`
	Messages    []string                `json:"messages"`
	ChoiceKind  ChoiceKind              `json:"choice_kind,omitempty"`
	Choices     []string                `json:"choices,omitempty"`
	Appointment *scheduling.Appointment `json:"appointment,omitempty"`
}

// SymptomClassifier is the triage capability the controller consumes.
type SymptomClassifier interface {
	Classify(ctx context.Context, symptoms string, categories []directory.Category) (triage.Assessment, error)
}

// SlotFinder is the availability capability the controller consumes.
type SlotFinder interface {
	AvailableSlots(ctx context.Context, specialist directory.Specialist, from time.Time, days int) ([]scheduling.TimeSlot, error)
	Location() *time.Location
}

// AppointmentBooker is the booking capability the controller consumes.
type AppointmentBooker interface {
	Book(ctx context.Context, specialist directory.Specialist, slot scheduling.TimeSlot, patient scheduling.Patient) (scheduling.Appointment, error)
}

// maxSlotsToPresent caps the slot list shown in one chat turn.
const maxSlotsToPresent = 6

// maxSymptomTurns forces classification after this many symptom messages,
// so the collection phase cannot run forever without a done signal.
const maxSymptomTurns = 5

// Controller orchestrates classifier, directory, selector, and booker in
// sequence. It holds no state of its own; everything per-chat lives in the
// Session.
type Controller struct {
	classifier SymptomClassifier
	directory  *directory.Directory
	selector   SlotFinder
	booker     AppointmentBooker
	store      SessionStore

	providerTimeout time.Duration
	windowDays      int
	metrics         *metrics.SchedulingMetrics
	logger          *logging.Logger
	now             func() time.Time
}

// ControllerConfig wires the controller's collaborators.
type ControllerConfig struct {
	Classifier      SymptomClassifier
	Directory       *directory.Directory
	Selector        SlotFinder
	Booker          AppointmentBooker
	Store           SessionStore
	ProviderTimeout time.Duration
	WindowDays      int
	Metrics         *metrics.SchedulingMetrics
	Logger          *logging.Logger
}

// NewController creates a conversation controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Classifier == nil || cfg.Directory == nil || cfg.Selector == nil || cfg.Booker == nil {
		panic("conversation: classifier, directory, selector, and booker are required")
	}
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore()
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	days := cfg.WindowDays
	if days <= 0 {
		days = 7
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Controller{
		classifier:      cfg.Classifier,
		directory:       cfg.Directory,
		selector:        cfg.Selector,
		booker:          cfg.Booker,
		store:           store,
		providerTimeout: timeout,
		windowDays:      days,
		metrics:         cfg.Metrics,
		logger:          logger,
		now:             time.Now,
	}
}

// Start opens a new session for a patient and returns the greeting.
func (c *Controller) Start(ctx context.Context, patient scheduling.Patient) (Reply, error) {
	sess := NewSession(patient)
	if err := c.store.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("conversation: save new session: %w", err)
	}

	name := strings.TrimSpace(patient.Name)
	greeting := "Hello! I'm your medical scheduling assistant. Please describe your symptoms or health concerns."
	if name != "" {
		greeting = fmt.Sprintf("Hello %s! I'm your medical scheduling assistant. Please describe your symptoms or health concerns.", name)
	}
	return c.reply(sess, greeting), nil
}

// Handle applies one user action to the session and returns the next
// prompt. The transition, including any outbound provider calls, completes
// before Handle returns.
func (c *Controller) Handle(ctx context.Context, sessionID string, input Input) (Reply, error) {
	sess, err := c.store.Load(ctx, sessionID)
	if err != nil {
		return Reply{}, err
	}

	var out Reply
	switch input.Type {
	case InputReset:
		sess.reset()
		out = c.reply(sess, "Starting over. Please describe your symptoms or health concerns.")
	case InputRetry:
		out = c.handleRetry(ctx, sess)
	case InputDone:
		out = c.handleDone(ctx, sess)
	case InputChoice:
		out = c.handleChoice(ctx, sess, input.Choice)
	case InputMessage:
		out = c.handleMessage(ctx, sess, input.Text)
	default:
		out = c.reply(sess, "Sorry, I didn't understand that.")
	}

	sess.UpdatedAt = c.now().UTC()
	if err := c.store.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("conversation: save session: %w", err)
	}
	return out, nil
}

func (c *Controller) handleMessage(ctx context.Context, sess *Session, text string) Reply {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.reprompt(sess)
	}

	switch sess.State {
	case StateCollectingSymptoms:
		// A direct ask for a specialty skips classification.
		if category, ok := c.directory.Normalize(text); ok {
			sess.Symptoms = append(sess.Symptoms, text)
			sess.Category = category
			return c.presentSpecialists(sess, category, fmt.Sprintf("You asked for a %s.", category))
		}
		sess.Symptoms = append(sess.Symptoms, text)
		if len(sess.Symptoms) >= maxSymptomTurns {
			return c.classify(ctx, sess)
		}
		return c.reply(sess, "Noted. Anything else I should know? Say \"done\" when you've described everything.")

	case StateAwaitingCategory, StateAwaitingSpecialist, StateAwaitingSlot:
		// Accept a typed number in place of a button press.
		if n, err := strconv.Atoi(text); err == nil {
			return c.handleChoice(ctx, sess, n)
		}
		return c.reprompt(sess)

	case StateConfirmed:
		return c.reply(sess, "Your appointment is already confirmed. Say \"reset\" to book another one.")

	case StateFailed:
		return c.reprompt(sess)

	default:
		return c.reprompt(sess)
	}
}

func (c *Controller) handleDone(ctx context.Context, sess *Session) Reply {
	if sess.State != StateCollectingSymptoms {
		return c.reprompt(sess)
	}
	if len(sess.Symptoms) == 0 {
		return c.reply(sess, "Please describe your symptoms first.")
	}
	return c.classify(ctx, sess)
}

func (c *Controller) handleRetry(ctx context.Context, sess *Session) Reply {
	if sess.State != StateFailed || sess.Failure == nil {
		return c.reprompt(sess)
	}
	action := sess.Failure.Resume
	sess.Failure = nil
	switch action {
	case RetryClassify:
		return c.classify(ctx, sess)
	case RetryFetchSlots:
		return c.fetchSlots(ctx, sess, "")
	case RetryBook:
		sess.State = StateAwaitingSlot
		return c.book(ctx, sess)
	default:
		return c.reprompt(sess)
	}
}

func (c *Controller) handleChoice(ctx context.Context, sess *Session, choice int) Reply {
	switch {
	case sess.State == StateAwaitingCategory,
		sess.State == StateFailed && len(sess.PresentedCategories) > 0:
		if choice < 1 || choice > len(sess.PresentedCategories) {
			return c.reprompt(sess)
		}
		category := sess.PresentedCategories[choice-1]
		sess.Failure = nil
		sess.Category = category
		return c.presentSpecialists(sess, category, "")

	case sess.State == StateAwaitingSpecialist:
		if choice < 1 || choice > len(sess.PresentedSpecialists) {
			return c.reprompt(sess)
		}
		sess.SpecialistID = sess.PresentedSpecialists[choice-1]
		specialist, _ := c.directory.ByID(sess.SpecialistID)
		return c.fetchSlots(ctx, sess, fmt.Sprintf("You've selected %s. Let me check their availability.", specialist.Name))

	case sess.State == StateAwaitingSlot:
		if choice < 1 || choice > len(sess.PresentedSlots) {
			return c.reprompt(sess)
		}
		// The ordering invariant: a slot is only selectable after a
		// specialist is, which the state machine guarantees.
		slot := sess.PresentedSlots[choice-1]
		sess.Slot = &slot
		return c.book(ctx, sess)

	default:
		return c.reprompt(sess)
	}
}

func (c *Controller) classify(ctx context.Context, sess *Session) Reply {
	callCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	assessment, err := c.classifier.Classify(callCtx, sess.SymptomBuffer(), c.directory.Categories())
	if err != nil {
		c.metrics.ObserveClassification("unavailable")
		c.logger.Error("conversation: classification failed", "error", err, "session_id", sess.ID)
		return c.fail(sess, FailureClassificationUnavailable, RetryClassify,
			"I couldn't analyze your symptoms right now. You can retry, or pick a specialty yourself:")
	}

	if assessment.Emergency {
		c.metrics.ObserveClassification("emergency")
		msg := "This sounds like a medical emergency. Please seek immediate medical attention or call emergency services."
		if assessment.Explanation != "" {
			msg = fmt.Sprintf("EMERGENCY: %s\n\nPlease seek immediate medical attention or call emergency services.", assessment.Explanation)
		}
		return c.reply(sess, msg)
	}

	if assessment.Unclear {
		c.metrics.ObserveClassification("unclear")
		sess.State = StateAwaitingCategory
		sess.PresentedCategories = c.directory.Categories()
		return Reply{
			SessionID:  sess.ID,
			State:      sess.State,
			Messages:   []string{"I couldn't confidently match your symptoms to one of our specialties. Please pick the closest one:"},
			ChoiceKind: ChoiceCategories,
			Choices:    categoryLabels(sess.PresentedCategories),
		}
	}

	c.metrics.ObserveClassification("matched")
	sess.Category = assessment.Category
	sess.Advice = assessment.Advice
	sess.Explanation = assessment.Explanation
	sess.Patient.Symptoms = sess.SymptomBuffer()

	intro := fmt.Sprintf("I recommend seeing a %s.", assessment.Category)
	if assessment.Explanation != "" {
		intro = fmt.Sprintf("%s\n\nI recommend seeing a %s.", assessment.Explanation, assessment.Category)
	}
	if assessment.Advice != "" {
		intro = fmt.Sprintf("%s\nIn the meantime: %s", intro, assessment.Advice)
	}
	return c.presentSpecialists(sess, assessment.Category, intro)
}

func (c *Controller) presentSpecialists(sess *Session, category directory.Category, intro string) Reply {
	specialists := c.directory.Lookup(category)
	var messages []string
	if intro != "" {
		messages = append(messages, intro)
	}

	if len(specialists) == 0 {
		// Recognized category without a roster entry: fall back to general
		// practice rather than dead-ending the chat.
		fallback := c.directory.Fallback()
		messages = append(messages, fmt.Sprintf("We don't have a %s on staff, so I'll show you our %s team instead.", category, fallback))
		category = fallback
		sess.Category = fallback
		specialists = c.directory.Lookup(fallback)
	}

	sess.clearPresented()
	sess.State = StateAwaitingSpecialist
	labels := make([]string, 0, len(specialists))
	for _, s := range specialists {
		sess.PresentedSpecialists = append(sess.PresentedSpecialists, s.ID)
		label := s.Name
		if s.Experience != "" || s.Expertise != "" {
			label = fmt.Sprintf("%s — %s — %s", s.Name, s.Experience, s.Expertise)
		}
		labels = append(labels, label)
	}
	messages = append(messages, "Here are the available specialists. Please pick one:")

	return Reply{
		SessionID:  sess.ID,
		State:      sess.State,
		Messages:   messages,
		ChoiceKind: ChoiceSpecialists,
		Choices:    labels,
	}
}

func (c *Controller) fetchSlots(ctx context.Context, sess *Session, intro string) Reply {
	specialist, ok := c.directory.ByID(sess.SpecialistID)
	if !ok {
		sess.State = StateAwaitingSpecialist
		return c.presentSpecialists(sess, sess.Category, "That specialist is no longer listed. Please pick again.")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	slots, err := c.selector.AvailableSlots(callCtx, specialist, c.now(), c.windowDays)
	if err != nil {
		c.logger.Error("conversation: availability query failed", "error", err, "session_id", sess.ID, "specialist_id", specialist.ID)
		return c.fail(sess, FailureAvailabilityUnknown, RetryFetchSlots,
			fmt.Sprintf("I couldn't reach %s's calendar, so availability is unknown right now. Retry?", specialist.Name))
	}

	kept := slots[:0]
	for _, slot := range slots {
		if !sess.isExcluded(slot) {
			kept = append(kept, slot)
		}
	}
	if len(kept) > maxSlotsToPresent {
		kept = kept[:maxSlotsToPresent]
	}

	if len(kept) == 0 {
		return c.presentSpecialists(sess, sess.Category,
			fmt.Sprintf("%s has no free slots in the next %d days. Would you like to pick another specialist?", specialist.Name, c.windowDays))
	}

	sess.clearPresented()
	sess.State = StateAwaitingSlot
	loc := c.selector.Location()
	labels := make([]string, 0, len(kept))
	for _, slot := range kept {
		sess.PresentedSlots = append(sess.PresentedSlots, slot)
		labels = append(labels, slot.Label(loc))
	}

	var messages []string
	if intro != "" {
		messages = append(messages, intro)
	}
	messages = append(messages, fmt.Sprintf("Here are %s's next available slots. Please pick one:", specialist.Name))

	return Reply{
		SessionID:  sess.ID,
		State:      sess.State,
		Messages:   messages,
		ChoiceKind: ChoiceSlots,
		Choices:    labels,
	}
}

func (c *Controller) book(ctx context.Context, sess *Session) Reply {
	// Invariant check rather than trust: booking requires a chosen slot and
	// specialist.
	if sess.Slot == nil || sess.SpecialistID == "" {
		return c.reprompt(sess)
	}
	specialist, ok := c.directory.ByID(sess.SpecialistID)
	if !ok {
		sess.Slot = nil
		return c.presentSpecialists(sess, sess.Category, "That specialist is no longer listed. Please pick again.")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.providerTimeout)
	defer cancel()

	appt, err := c.booker.Book(callCtx, specialist, *sess.Slot, sess.Patient)
	switch {
	case errors.Is(err, scheduling.ErrSlotConflict):
		// Lost the cross-session race: exclude the slot and refresh.
		sess.ExcludedSlots = append(sess.ExcludedSlots, *sess.Slot)
		sess.Slot = nil
		return c.fetchSlots(ctx, sess, "Sorry, that slot was just taken by someone else. Here is the updated availability.")
	case errors.Is(err, scheduling.ErrAvailabilityUnknown):
		// The re-validation query failed, not the booking itself.
		c.logger.Error("conversation: booking revalidation failed", "error", err, "session_id", sess.ID)
		return c.fail(sess, FailureAvailabilityUnknown, RetryBook,
			fmt.Sprintf("I couldn't reach %s's calendar, so availability is unknown right now. Retry?", specialist.Name))
	case err != nil:
		c.logger.Error("conversation: booking failed", "error", err, "session_id", sess.ID)
		return c.fail(sess, FailureBookingFailed, RetryBook,
			"The booking didn't go through. Retry?")
	}

	sess.State = StateConfirmed
	sess.Appointment = &appt
	loc := c.selector.Location()
	msg := fmt.Sprintf("Your appointment with %s is confirmed for %s. Booking reference: %s.",
		specialist.Name, appt.Slot.Label(loc), appt.EventID)
	if sess.Patient.Email != "" {
		msg += " A confirmation email is on its way."
	}
	return Reply{
		SessionID:   sess.ID,
		State:       sess.State,
		Messages:    []string{msg},
		Appointment: &appt,
	}
}

// fail parks the session in the failed state with a retry affordance. For
// classification failures the category list doubles as the manual path.
func (c *Controller) fail(sess *Session, kind FailureKind, resume RetryAction, message string) Reply {
	sess.State = StateFailed
	sess.Failure = &Failure{Kind: kind, Resume: resume}

	reply := Reply{
		SessionID: sess.ID,
		State:     sess.State,
		Messages:  []string{message},
	}
	if kind == FailureClassificationUnavailable {
		sess.PresentedCategories = c.directory.Categories()
		reply.ChoiceKind = ChoiceCategories
		reply.Choices = categoryLabels(sess.PresentedCategories)
	}
	return reply
}

// reprompt repeats the current prompt without changing state.
func (c *Controller) reprompt(sess *Session) Reply {
	switch sess.State {
	case StateCollectingSymptoms:
		return c.reply(sess, "Please describe your symptoms, or say \"done\" when finished.")
	case StateAwaitingCategory:
		return Reply{
			SessionID:  sess.ID,
			State:      sess.State,
			Messages:   []string{"Please pick a specialty from the list:"},
			ChoiceKind: ChoiceCategories,
			Choices:    categoryLabels(sess.PresentedCategories),
		}
	case StateAwaitingSpecialist:
		return Reply{
			SessionID:  sess.ID,
			State:      sess.State,
			Messages:   []string{"Please pick a specialist from the list."},
			ChoiceKind: ChoiceSpecialists,
			Choices:    c.specialistLabels(sess.PresentedSpecialists),
		}
	case StateAwaitingSlot:
		loc := c.selector.Location()
		labels := make([]string, 0, len(sess.PresentedSlots))
		for _, slot := range sess.PresentedSlots {
			labels = append(labels, slot.Label(loc))
		}
		return Reply{
			SessionID:  sess.ID,
			State:      sess.State,
			Messages:   []string{"Please pick a time slot from the list."},
			ChoiceKind: ChoiceSlots,
			Choices:    labels,
		}
	case StateFailed:
		reply := Reply{
			SessionID: sess.ID,
			State:     sess.State,
			Messages:  []string{"Something went wrong on the last step. Say \"retry\" to try again."},
		}
		if len(sess.PresentedCategories) > 0 {
			reply.Messages = []string{"Something went wrong on the last step. Say \"retry\", or pick a specialty:"}
			reply.ChoiceKind = ChoiceCategories
			reply.Choices = categoryLabels(sess.PresentedCategories)
		}
		return reply
	case StateConfirmed:
		return c.reply(sess, "Your appointment is confirmed. Say \"reset\" to book another one.")
	default:
		return c.reply(sess, "Sorry, I didn't understand that.")
	}
}

func (c *Controller) reply(sess *Session, messages ...string) Reply {
	return Reply{SessionID: sess.ID, State: sess.State, Messages: messages}
}

func (c *Controller) specialistLabels(ids []string) []string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if s, ok := c.directory.ByID(id); ok {
			labels = append(labels, s.Name)
		}
	}
	return labels
}

func categoryLabels(categories []directory.Category) []string {
	labels := make([]string, 0, len(categories))
	for _, c := range categories {
		labels = append(labels, string(c))
	}
	return labels
}
