package review

import (
	"context"
	"fmt"
	"time"

	"github.com/example/aayra/internal/spaced_repetition"
	"github.com/example/aayra/pkg/models"
)

// EntryStore is the persistence needed by the review controller
type EntryStore interface {
	GetByID(ctx context.Context, id string, userID int64) (*models.ReviewCycleEntry, error)
	ListDue(ctx context.Context, userID int64, dueOnOrBefore string) ([]models.ReviewCycleEntry, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.ReviewCycleEntry, error)
	CompleteAndScheduleNext(ctx context.Context, entryID string, userID int64, next *models.ReviewCycleEntry, reviewedAt time.Time) error
	Reschedule(ctx context.Context, entryID string, userID int64, replacement *models.ReviewCycleEntry) error
}

// ContentStore persists the content served during a review
type ContentStore interface {
	Save(ctx context.Context, sessionID string, stage int, content *models.GeneratedContent) error
}

// CompletionListener is notified after a review completes. nextDueDate is
// empty when the spaced-repetition cycle has terminated.
type CompletionListener func(sessionID string, stage int, nextDueDate string)

// PendingReview is one due review enriched with session display fields
type PendingReview struct {
	EntryID     string `json:"entry_id"`
	SessionID   string `json:"session_id"`
	SessionName string `json:"session_name"`
	SubjectName string `json:"subject_name"`
	TopicName   string `json:"topic_name"`
	ReviewStage int    `json:"review_stage"`
	DueDate     string `json:"due_date"`
}

// Controller closes out pending reviews and schedules the next stage
type Controller struct {
	entries  EntryStore
	contents ContentStore

	now         func() time.Time
	onCompleted CompletionListener
}

// New creates a review controller
func New(entries EntryStore, contents ContentStore) *Controller {
	return &Controller{
		entries:  entries,
		contents: contents,
		now:      time.Now,
	}
}

// SetClock overrides the time source
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// SetCompletionListener registers a review-completed subscriber
func (c *Controller) SetCompletionListener(fn CompletionListener) {
	c.onCompleted = fn
}

// CompleteReview marks a pending entry completed and, below the terminal
// stage, schedules the next one. Both writes and the session's
// last-reviewed stamp land in one transaction, so a crash cannot leave the
// cycle half-advanced. A second completion of the same entry is rejected
// with ErrEntryNotPending. Returns the next entry, or nil when the cycle
// has terminated. content, when non-nil, is stored for the completed stage.
func (c *Controller) CompleteReview(ctx context.Context, entryID string, userID int64, content *models.GeneratedContent) (*models.ReviewCycleEntry, error) {
	entry, err := c.entries.GetByID(ctx, entryID, userID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.ReviewPending {
		return nil, models.ErrEntryNotPending
	}

	now := c.now()
	var next *models.ReviewCycleEntry
	if !spaced_repetition.IsTerminalStage(entry.ReviewStage) {
		nextStage := entry.ReviewStage + 1
		next, err = models.NewReviewCycleEntry(
			entry.SessionID,
			entry.UserID,
			nextStage,
			entry.FirstAppearanceDate,
			spaced_repetition.ComputeDueDate(nextStage, now).Format(models.DateLayout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build next review entry: %w", err)
		}
	}

	if err := c.entries.CompleteAndScheduleNext(ctx, entry.ID, userID, next, now); err != nil {
		return nil, err
	}

	if content != nil {
		if err := c.contents.Save(ctx, entry.SessionID, entry.ReviewStage, content); err != nil {
			return next, err
		}
	}

	if c.onCompleted != nil {
		nextDue := ""
		if next != nil {
			nextDue = next.DueDate
		}
		c.onCompleted(entry.SessionID, entry.ReviewStage, nextDue)
	}
	return next, nil
}

// PendingReviews returns the reviews due on or before asOf, most overdue
// first, ties broken by session creation order. Entries whose session has
// been deleted are dropped by the store's join.
func (c *Controller) PendingReviews(ctx context.Context, userID int64, asOf time.Time) ([]PendingReview, error) {
	entries, err := c.entries.ListDue(ctx, userID, asOf.Format(models.DateLayout))
	if err != nil {
		return nil, err
	}
	reviews := make([]PendingReview, 0, len(entries))
	for _, e := range entries {
		reviews = append(reviews, PendingReview{
			EntryID:     e.ID,
			SessionID:   e.SessionID,
			SessionName: e.SessionName,
			SubjectName: e.SubjectName,
			TopicName:   e.TopicName,
			ReviewStage: e.ReviewStage,
			DueDate:     e.DueDate,
		})
	}
	return reviews, nil
}

// SessionHistory returns every entry of one session's review cycle in stage
// order
func (c *Controller) SessionHistory(ctx context.Context, sessionID string) ([]models.ReviewCycleEntry, error) {
	return c.entries.ListBySession(ctx, sessionID)
}

// RescheduleMissed rolls pending entries overdue by more than graceDays
// forward to be due today: the stale entry becomes missed_rescheduled and a
// fresh pending entry at the same stage replaces it, keeping the first
// appearance date. Returns the number of rescheduled entries.
func (c *Controller) RescheduleMissed(ctx context.Context, userID int64, graceDays int) (int, error) {
	if graceDays < 0 {
		return 0, fmt.Errorf("grace days must be >= 0, got %d", graceDays)
	}
	now := c.now()
	cutoff := now.AddDate(0, 0, -graceDays)

	stale, err := c.entries.ListDue(ctx, userID, cutoff.Format(models.DateLayout))
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range stale {
		replacement, err := models.NewReviewCycleEntry(
			e.SessionID,
			e.UserID,
			e.ReviewStage,
			e.FirstAppearanceDate,
			now.Format(models.DateLayout),
		)
		if err != nil {
			return count, fmt.Errorf("failed to build rescheduled entry: %w", err)
		}
		if err := c.entries.Reschedule(ctx, e.ID, userID, replacement); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}
