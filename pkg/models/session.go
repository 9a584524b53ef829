package models

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a study session
type SessionStatus string

const (
	// StatusFocusPending means the session was created but the focus timer has not started
	StatusFocusPending SessionStatus = "focus_pending"
	// StatusFocusInProgress means the focus countdown is running
	StatusFocusInProgress SessionStatus = "focus_inprogress"
	// StatusUploadPending means the focus interval finished and the user must upload materials
	StatusUploadPending SessionStatus = "upload_pending"
	// StatusValidating means uploaded materials are being turned into study content
	StatusValidating SessionStatus = "validating"
	// StatusBreakPending means validation finished and the break countdown may run
	StatusBreakPending SessionStatus = "break_pending"
	// StatusCompleted is terminal; the session enters the review cycle
	StatusCompleted SessionStatus = "completed"
	// StatusIncomplete means the session was abandoned mid-flow and can be resumed
	StatusIncomplete SessionStatus = "incomplete"
)

// sessionTransitions is the directed edge set of allowed status changes.
// break_pending has no edge to incomplete: skipping the break still counts
// as a completed session.
var sessionTransitions = map[SessionStatus][]SessionStatus{
	StatusFocusPending:    {StatusFocusInProgress},
	StatusFocusInProgress: {StatusUploadPending, StatusIncomplete},
	StatusUploadPending:   {StatusValidating, StatusIncomplete},
	StatusValidating:      {StatusBreakPending, StatusIncomplete},
	StatusBreakPending:    {StatusCompleted},
	StatusIncomplete:      {StatusFocusInProgress, StatusValidating},
	StatusCompleted:       {},
}

// InvalidTransitionError reports a status change that is not in the edge set
type InvalidTransitionError struct {
	From SessionStatus
	To   SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid session transition from %q to %q", e.From, e.To)
}

// CanTransitionTo reports whether target is directly reachable from s
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	for _, t := range sessionTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status allows no further transitions
func (s SessionStatus) IsTerminal() bool {
	return len(sessionTransitions[s]) == 0
}

// StudySession represents one timed focus/break study session
type StudySession struct {
	ID                   string        `json:"id" db:"id"`
	UserID               int64         `json:"user_id" db:"user_id"`
	SessionName          string        `json:"session_name" db:"session_name"`
	SubjectName          string        `json:"subject_name" db:"subject_name"`
	TopicName            string        `json:"topic_name" db:"topic_name"`
	SequenceNumber       int           `json:"sequence_number" db:"sequence_number"`
	FocusDurationMinutes int           `json:"focus_duration_minutes" db:"focus_duration_minutes"`
	BreakDurationMinutes int           `json:"break_duration_minutes" db:"break_duration_minutes"`
	Status               SessionStatus `json:"status" db:"status"`
	IsFavorite           bool          `json:"is_favorite" db:"is_favorite"`
	LastReviewedAt       *time.Time    `json:"last_reviewed_at" db:"last_reviewed_at"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// Transition moves the session to target if the edge exists,
// otherwise returns *InvalidTransitionError and leaves the session unchanged
func (s *StudySession) Transition(target SessionStatus) error {
	if !s.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{From: s.Status, To: target}
	}
	s.Status = target
	return nil
}

// ComposeSessionName builds the display name for a session
func ComposeSessionName(subject, topic string, sequence int) string {
	return fmt.Sprintf("%s - %s - %d", subject, topic, sequence)
}
