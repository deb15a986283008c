package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/clinicflow/clinicflow/internal/scheduling"
	"github.com/clinicflow/clinicflow/pkg/logging"
)

// Service sends appointment confirmations to patients. Delivery is best
// effort: the booker logs and swallows failures.
type Service struct {
	email    EmailSender
	location *time.Location
	logger   *logging.Logger
}

// NewService creates a notification service. location is the clinic
// timezone used to render appointment times.
func NewService(email EmailSender, location *time.Location, logger *logging.Logger) *Service {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, location: location, logger: logger}
}

// SendAppointmentConfirmation emails the booked appointment summary to the
// patient.
func (s *Service) SendAppointmentConfirmation(ctx context.Context, appt scheduling.Appointment) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping confirmation")
		return nil
	}
	if appt.Patient.Email == "" {
		s.logger.Debug("notify: patient has no email address, skipping confirmation")
		return nil
	}

	start := appt.Slot.Start.In(s.location)
	when := start.Format("Monday, January 2 at 3:04 PM")

	subject := fmt.Sprintf("Appointment confirmed with %s", appt.Specialist.Name)
	body := fmt.Sprintf(`Hi %s,

Your appointment is confirmed.

Specialist: %s (%s)
When: %s
Booking reference: %s

If you need to reschedule, reply to this email or contact the clinic.

— ClinicFlow`, appt.Patient.Name, appt.Specialist.Name, appt.Specialist.Category, when, appt.EventID)

	html := fmt.Sprintf(`<div style="font-family: sans-serif; max-width: 600px;">
<h2>Appointment confirmed</h2>
<p>Hi %s, your appointment is booked.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Specialist:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s (%s)</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>When:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Reference:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">%s</td></tr>
</table>
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">— ClinicFlow</p>
</div>`, appt.Patient.Name, appt.Specialist.Name, appt.Specialist.Category, when, appt.EventID)

	msg := EmailMessage{
		To:      appt.Patient.Email,
		ToName:  appt.Patient.Name,
		Subject: subject,
		Body:    body,
		HTML:    html,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: confirmation email: %w", err)
	}
	s.logger.Info("notify: confirmation email sent", "to", appt.Patient.Email, "event_id", appt.EventID)
	return nil
}

var _ scheduling.ConfirmationSender = (*Service)(nil)
