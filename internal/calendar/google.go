package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/clinicflow/clinicflow/pkg/logging"
)

// GoogleProvider implements Provider on the Google Calendar v3 API.
type GoogleProvider struct {
	service  *gcal.Service
	timezone string
	logger   *logging.Logger
}

// NewGoogleProvider creates a provider authenticated with a service-account
// credentials file.
func NewGoogleProvider(ctx context.Context, credentialsFile, timezone string, logger *logging.Logger) (*GoogleProvider, error) {
	if strings.TrimSpace(credentialsFile) == "" {
		return nil, errors.New("calendar: google credentials file is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	service, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope, gcal.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: failed to create google calendar service: %w", err)
	}

	return &GoogleProvider{
		service:  service,
		timezone: timezone,
		logger:   logger,
	}, nil
}

// FreeBusy queries busy intervals for one calendar.
func (p *GoogleProvider) FreeBusy(ctx context.Context, calendarID string, from, to time.Time) ([]Interval, error) {
	req := &gcal.FreeBusyRequest{
		TimeMin:  from.Format(time.RFC3339),
		TimeMax:  to.Format(time.RFC3339),
		TimeZone: p.timezone,
		Items:    []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}

	resp, err := p.service.Freebusy.Query(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: freebusy query failed: %w", err)
	}

	cal, ok := resp.Calendars[calendarID]
	if !ok {
		return nil, fmt.Errorf("calendar: freebusy response missing calendar %s", calendarID)
	}
	for _, calErr := range cal.Errors {
		return nil, fmt.Errorf("calendar: freebusy error for %s: %s", calendarID, calErr.Reason)
	}

	intervals := make([]Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("calendar: bad busy start %q: %w", period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("calendar: bad busy end %q: %w", period.End, err)
		}
		intervals = append(intervals, Interval{Start: start, End: end})
	}

	p.logger.Debug("calendar: freebusy query complete", "calendar_id", calendarID, "busy_count", len(intervals))
	return intervals, nil
}

// CreateEvent inserts one event with an email invitation to the attendee.
func (p *GoogleProvider) CreateEvent(ctx context.Context, calendarID string, event Event) (string, error) {
	tz := event.Timezone
	if tz == "" {
		tz = p.timezone
	}

	payload := &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: tz,
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: tz,
		},
		Reminders: &gcal.EventReminders{
			UseDefault: false,
			Overrides: []*gcal.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if event.AttendeeEmail != "" {
		payload.Attendees = []*gcal.EventAttendee{{Email: event.AttendeeEmail}}
	}

	created, err := p.service.Events.Insert(calendarID, payload).SendUpdates("all").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: event insert failed: %w", err)
	}

	p.logger.Info("calendar: event created", "calendar_id", calendarID, "event_id", created.Id)
	return created.Id, nil
}
