package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/aayra/pkg/models"
)

// ReviewRepository handles database operations for review cycle entries
type ReviewRepository struct{}

// NewReviewRepository creates a new repository instance
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{}
}

// Create inserts a new review cycle entry
func (r *ReviewRepository) Create(ctx context.Context, entry *models.ReviewCycleEntry) error {
	entry.ID = uuid.NewString()
	query := DB.Rebind(`
        INSERT INTO review_cycle_entries (
            id, session_id, user_id, review_stage,
            first_appearance_date, due_date, status
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	_, err := DB.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.UserID,
		entry.ReviewStage,
		entry.FirstAppearanceDate,
		entry.DueDate,
		entry.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create review entry: %w", err)
	}
	return nil
}

// GetByID returns an entry by id, scoped to its owner
func (r *ReviewRepository) GetByID(ctx context.Context, id string, userID int64) (*models.ReviewCycleEntry, error) {
	var entry models.ReviewCycleEntry
	query := DB.Rebind(`
        SELECT id, session_id, user_id, review_stage, first_appearance_date,
               due_date, status, created_at, updated_at
        FROM review_cycle_entries
        WHERE id = ? AND user_id = ?
    `)
	if err := DB.GetContext(ctx, &entry, query, id, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("review entry %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get review entry: %w", err)
	}
	return &entry, nil
}

// ListDue returns pending entries due on or before the given date, most
// overdue first, joined with the owning session's display fields. The inner
// join silently drops entries whose session has been deleted.
func (r *ReviewRepository) ListDue(ctx context.Context, userID int64, dueOnOrBefore string) ([]models.ReviewCycleEntry, error) {
	query := DB.Rebind(`
        SELECT e.id, e.session_id, e.user_id, e.review_stage,
               e.first_appearance_date, e.due_date, e.status,
               e.created_at, e.updated_at,
               s.session_name, s.subject_name, s.topic_name
        FROM review_cycle_entries e
        JOIN study_sessions s ON e.session_id = s.id
        WHERE e.user_id = ? AND e.status = 'pending' AND e.due_date <= ?
        ORDER BY e.due_date ASC, s.created_at ASC
    `)
	var entries []models.ReviewCycleEntry
	if err := DB.SelectContext(ctx, &entries, query, userID, dueOnOrBefore); err != nil {
		return nil, fmt.Errorf("failed to list due reviews: %w", err)
	}
	return entries, nil
}

// ListBySession returns every entry of one session's review cycle in stage order
func (r *ReviewRepository) ListBySession(ctx context.Context, sessionID string) ([]models.ReviewCycleEntry, error) {
	query := DB.Rebind(`
        SELECT id, session_id, user_id, review_stage, first_appearance_date,
               due_date, status, created_at, updated_at
        FROM review_cycle_entries
        WHERE session_id = ?
        ORDER BY review_stage ASC
    `)
	var entries []models.ReviewCycleEntry
	if err := DB.SelectContext(ctx, &entries, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list session reviews: %w", err)
	}
	return entries, nil
}

// ListAllByUser returns a user's full review history joined with session names
func (r *ReviewRepository) ListAllByUser(ctx context.Context, userID int64) ([]models.ReviewCycleEntry, error) {
	query := DB.Rebind(`
        SELECT e.id, e.session_id, e.user_id, e.review_stage,
               e.first_appearance_date, e.due_date, e.status,
               e.created_at, e.updated_at,
               s.session_name, s.subject_name, s.topic_name
        FROM review_cycle_entries e
        JOIN study_sessions s ON e.session_id = s.id
        WHERE e.user_id = ?
        ORDER BY e.due_date ASC, e.review_stage ASC
    `)
	var entries []models.ReviewCycleEntry
	if err := DB.SelectContext(ctx, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list review history: %w", err)
	}
	return entries, nil
}

// markPending flips an entry out of pending inside tx. The status guard in
// the WHERE clause makes concurrent completions race safely: the loser sees
// zero rows and gets ErrEntryNotPending.
func markPending(ctx context.Context, tx *sqlx.Tx, entryID string, userID int64, to models.ReviewStatus) error {
	query := DB.Rebind(`
        UPDATE review_cycle_entries
        SET status = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND user_id = ? AND status = 'pending'
    `)
	result, err := tx.ExecContext(ctx, query, to, entryID, userID)
	if err != nil {
		return fmt.Errorf("failed to update review entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return models.ErrEntryNotPending
	}
	return nil
}

// CompleteAndScheduleNext marks an entry completed, inserts the next-stage
// entry (nil when the cycle terminates) and stamps the session's
// last-reviewed time, all in one transaction.
func (r *ReviewRepository) CompleteAndScheduleNext(ctx context.Context, entryID string, userID int64, next *models.ReviewCycleEntry, reviewedAt time.Time) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := markPending(ctx, tx, entryID, userID, models.ReviewCompleted); err != nil {
		return err
	}

	var sessionID string
	err = tx.GetContext(ctx, &sessionID,
		DB.Rebind(`SELECT session_id FROM review_cycle_entries WHERE id = ?`), entryID)
	if err != nil {
		return fmt.Errorf("failed to read review entry session: %w", err)
	}

	if next != nil {
		next.ID = uuid.NewString()
		insert := DB.Rebind(`
            INSERT INTO review_cycle_entries (
                id, session_id, user_id, review_stage,
                first_appearance_date, due_date, status
            ) VALUES (?, ?, ?, ?, ?, ?, ?)
        `)
		_, err = tx.ExecContext(ctx, insert,
			next.ID,
			next.SessionID,
			next.UserID,
			next.ReviewStage,
			next.FirstAppearanceDate,
			next.DueDate,
			next.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to create next review entry: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, DB.Rebind(`
        UPDATE study_sessions
        SET last_reviewed_at = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?
    `), reviewedAt, sessionID)
	if err != nil {
		return fmt.Errorf("failed to update last reviewed date: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review completion: %w", err)
	}
	return nil
}

// Reschedule replaces an overdue pending entry with a new pending entry at
// the same stage, marking the old one missed_rescheduled
func (r *ReviewRepository) Reschedule(ctx context.Context, entryID string, userID int64, replacement *models.ReviewCycleEntry) error {
	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := markPending(ctx, tx, entryID, userID, models.ReviewMissedRescheduled); err != nil {
		return err
	}

	replacement.ID = uuid.NewString()
	insert := DB.Rebind(`
        INSERT INTO review_cycle_entries (
            id, session_id, user_id, review_stage,
            first_appearance_date, due_date, status
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	_, err = tx.ExecContext(ctx, insert,
		replacement.ID,
		replacement.SessionID,
		replacement.UserID,
		replacement.ReviewStage,
		replacement.FirstAppearanceDate,
		replacement.DueDate,
		replacement.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create rescheduled entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reschedule: %w", err)
	}
	return nil
}
