package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/aayra/internal/spaced_repetition"
	"github.com/example/aayra/pkg/models"
)

// Event is a user or timer occurrence that drives a session forward
type Event string

const (
	// EventStartFocus starts the focus countdown of a focus_pending session
	EventStartFocus Event = "start_focus"
	// EventFocusTimerFinished fires when the focus countdown reaches zero
	EventFocusTimerFinished Event = "focus_timer_finished"
	// EventMaterialsSubmitted fires when the user uploads study materials
	EventMaterialsSubmitted Event = "materials_submitted"
	// EventValidationFinished fires when content generation has settled
	EventValidationFinished Event = "validation_finished"
	// EventBreakFinished fires on break timer expiry or an explicit skip
	EventBreakFinished Event = "break_finished"
	// EventAbandon marks an in-flight session incomplete
	EventAbandon Event = "abandon"
	// EventResume takes an incomplete session straight back to validating;
	// the focus interval was already served before it became incomplete
	EventResume Event = "resume"
	// EventRestart re-enters focus from an incomplete session
	EventRestart Event = "restart"
)

// eventTargets maps events to target statuses. Whether the edge is legal
// from the session's current status is decided by the transition graph.
var eventTargets = map[Event]models.SessionStatus{
	EventStartFocus:         models.StatusFocusInProgress,
	EventFocusTimerFinished: models.StatusUploadPending,
	EventMaterialsSubmitted: models.StatusValidating,
	EventValidationFinished: models.StatusBreakPending,
	EventBreakFinished:      models.StatusCompleted,
	EventAbandon:            models.StatusIncomplete,
	EventResume:             models.StatusValidating,
	EventRestart:            models.StatusFocusInProgress,
}

// SessionStore is the persistence needed by the lifecycle controller
type SessionStore interface {
	Create(ctx context.Context, session *models.StudySession) error
	GetByID(ctx context.Context, id string) (*models.StudySession, error)
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
	Delete(ctx context.Context, id string) error
}

// ReviewSeeder creates the stage-1 review entry when a session completes
type ReviewSeeder interface {
	Create(ctx context.Context, entry *models.ReviewCycleEntry) error
}

// ContentGenerator produces study content from uploaded materials
type ContentGenerator interface {
	Generate(ctx context.Context, subject, topic string, materials []string) (*models.GeneratedContent, error)
	Fallback(subject, topic string) *models.GeneratedContent
}

// ContentStore persists generated content per session and stage
type ContentStore interface {
	Save(ctx context.Context, sessionID string, stage int, content *models.GeneratedContent) error
}

// StatusListener is notified after a status change has been persisted
type StatusListener func(sessionID string, from, to models.SessionStatus)

// Controller drives sessions through the focus/upload/validate/break flow
type Controller struct {
	sessions  SessionStore
	reviews   ReviewSeeder
	contents  ContentStore
	generator ContentGenerator

	now             func() time.Time
	onStatusChanged StatusListener
}

// New creates a lifecycle controller
func New(sessions SessionStore, reviews ReviewSeeder, contents ContentStore, generator ContentGenerator) *Controller {
	return &Controller{
		sessions:  sessions,
		reviews:   reviews,
		contents:  contents,
		generator: generator,
		now:       time.Now,
	}
}

// SetClock overrides the time source
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// SetStatusListener registers a status-change subscriber
func (c *Controller) SetStatusListener(fn StatusListener) {
	c.onStatusChanged = fn
}

// CreateSession persists a new session. The sequence number and composed
// name are assigned by the store. startImmediately picks focus_inprogress
// over focus_pending as the entry status.
func (c *Controller) CreateSession(ctx context.Context, userID int64, subject, topic string, focusMinutes, breakMinutes int, startImmediately bool) (*models.StudySession, error) {
	if subject == "" || topic == "" {
		return nil, fmt.Errorf("subject and topic are required")
	}
	if focusMinutes <= 0 || breakMinutes < 0 {
		return nil, fmt.Errorf("invalid durations: focus %d, break %d", focusMinutes, breakMinutes)
	}

	status := models.StatusFocusPending
	if startImmediately {
		status = models.StatusFocusInProgress
	}
	session := &models.StudySession{
		UserID:               userID,
		SubjectName:          subject,
		TopicName:            topic,
		FocusDurationMinutes: focusMinutes,
		BreakDurationMinutes: breakMinutes,
		Status:               status,
	}
	if err := c.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Advance applies an event to a session. The target status is taken from
// the event mapping; the transition graph decides whether the edge is legal
// from the current status. The status change is persisted immediately, and
// on reaching completed the stage-1 review entry is seeded.
func (c *Controller) Advance(ctx context.Context, sessionID string, event Event) (*models.StudySession, error) {
	target, ok := eventTargets[event]
	if !ok {
		return nil, fmt.Errorf("unknown session event %q", event)
	}

	session, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	from := session.Status
	if err := session.Transition(target); err != nil {
		return nil, err
	}
	if err := c.sessions.UpdateStatus(ctx, session.ID, session.Status); err != nil {
		return nil, err
	}
	if c.onStatusChanged != nil {
		c.onStatusChanged(session.ID, from, session.Status)
	}

	if session.Status == models.StatusCompleted {
		if err := c.seedFirstReview(ctx, session); err != nil {
			return session, err
		}
	}
	return session, nil
}

// SubmitMaterials advances an upload_pending session into validating and
// generates its study content. Generation failures do not break the status
// machine: deterministic fallback content is stored instead and the failure
// is logged as a soft warning.
func (c *Controller) SubmitMaterials(ctx context.Context, sessionID string, materials []string) (*models.StudySession, *models.GeneratedContent, error) {
	session, err := c.Advance(ctx, sessionID, EventMaterialsSubmitted)
	if err != nil {
		return nil, nil, err
	}

	content, genErr := c.generator.Generate(ctx, session.SubjectName, session.TopicName, materials)
	if genErr != nil {
		log.Printf("Content generation failed for session %s, using fallback: %v", session.ID, genErr)
		content = c.generator.Fallback(session.SubjectName, session.TopicName)
	}
	if err := c.contents.Save(ctx, session.ID, 0, content); err != nil {
		return session, content, err
	}
	return session, content, nil
}

// Resume takes an incomplete session back into validating
func (c *Controller) Resume(ctx context.Context, sessionID string) (*models.StudySession, error) {
	return c.Advance(ctx, sessionID, EventResume)
}

// Discard abandons a session. What that means depends on where it is:
// before materials are validated the row is deleted outright, during
// validating the session becomes resumable incomplete, and from
// break_pending the session is credited as completed since the break
// is skippable.
func (c *Controller) Discard(ctx context.Context, sessionID string) error {
	session, err := c.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}

	switch session.Status {
	case models.StatusFocusPending, models.StatusFocusInProgress, models.StatusUploadPending:
		return c.sessions.Delete(ctx, sessionID)
	case models.StatusValidating:
		_, err := c.Advance(ctx, sessionID, EventAbandon)
		return err
	case models.StatusBreakPending:
		_, err := c.Advance(ctx, sessionID, EventBreakFinished)
		return err
	default:
		return &models.InvalidTransitionError{From: session.Status, To: models.StatusIncomplete}
	}
}

// seedFirstReview creates the stage-1 review entry for a session that just
// completed. This is the only place review cycles start; completed is
// terminal, so the seed cannot fire twice for one session.
func (c *Controller) seedFirstReview(ctx context.Context, session *models.StudySession) error {
	today := c.now()
	entry, err := models.NewReviewCycleEntry(
		session.ID,
		session.UserID,
		1,
		today.Format(models.DateLayout),
		spaced_repetition.ComputeDueDate(1, today).Format(models.DateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to build first review entry: %w", err)
	}
	if err := c.reviews.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to seed review cycle for session %s: %w", session.ID, err)
	}
	return nil
}
