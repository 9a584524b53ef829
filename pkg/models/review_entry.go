package models

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for review due dates.
// Due dates carry no time component.
const DateLayout = "2006-01-02"

// ReviewStatus is the state of one review cycle entry
type ReviewStatus string

const (
	// ReviewPending means the review has not been done yet
	ReviewPending ReviewStatus = "pending"
	// ReviewCompleted means the user finished this review stage
	ReviewCompleted ReviewStatus = "completed"
	// ReviewMissedRescheduled means the entry was overdue and replaced by
	// a rescheduled entry at the same stage
	ReviewMissedRescheduled ReviewStatus = "missed_rescheduled"
)

// ErrAlreadyCompleted is returned when completing an entry that is not pending
var ErrAlreadyCompleted = errors.New("review entry already completed")

// ErrEntryNotPending is returned when a review completion targets an entry
// that is no longer pending. It doubles as the optimistic-concurrency guard:
// of two concurrent completion attempts exactly one sees a pending row.
var ErrEntryNotPending = errors.New("review entry is not pending")

// ReviewCycleEntry represents one scheduled review obligation for a session.
// SessionName, SubjectName and TopicName are display fields materialized by
// the pending-review join; they are not stored on the entry row.
type ReviewCycleEntry struct {
	ID                  string       `json:"id" db:"id"`
	SessionID           string       `json:"session_id" db:"session_id"`
	UserID              int64        `json:"user_id" db:"user_id"`
	ReviewStage         int          `json:"review_stage" db:"review_stage"`
	FirstAppearanceDate string       `json:"first_appearance_date" db:"first_appearance_date"`
	DueDate             string       `json:"due_date" db:"due_date"`
	Status              ReviewStatus `json:"status" db:"status"`
	CreatedAt           time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at" db:"updated_at"`

	SessionName string `json:"session_name,omitempty" db:"session_name"`
	SubjectName string `json:"subject_name,omitempty" db:"subject_name"`
	TopicName   string `json:"topic_name,omitempty" db:"topic_name"`
}

// NewReviewCycleEntry validates and builds a pending entry. The due date may
// not precede the first appearance date (same day is allowed).
func NewReviewCycleEntry(sessionID string, userID int64, stage int, firstAppearance, dueDate string) (*ReviewCycleEntry, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}
	if stage < 1 {
		return nil, fmt.Errorf("review stage must be >= 1, got %d", stage)
	}
	if _, err := time.Parse(DateLayout, dueDate); err != nil {
		return nil, fmt.Errorf("invalid due date %q: %w", dueDate, err)
	}
	if _, err := time.Parse(DateLayout, firstAppearance); err != nil {
		return nil, fmt.Errorf("invalid first appearance date %q: %w", firstAppearance, err)
	}
	// ISO dates compare correctly as strings
	if dueDate < firstAppearance {
		return nil, fmt.Errorf("due date %s precedes first appearance date %s", dueDate, firstAppearance)
	}
	return &ReviewCycleEntry{
		SessionID:           sessionID,
		UserID:              userID,
		ReviewStage:         stage,
		FirstAppearanceDate: firstAppearance,
		DueDate:             dueDate,
		Status:              ReviewPending,
	}, nil
}

// MarkCompleted flips a pending entry to completed
func (e *ReviewCycleEntry) MarkCompleted() error {
	if e.Status != ReviewPending {
		return ErrAlreadyCompleted
	}
	e.Status = ReviewCompleted
	return nil
}
