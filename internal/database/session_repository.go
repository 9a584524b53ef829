package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/example/aayra/pkg/models"
)

// SessionRepository handles database operations for study sessions
type SessionRepository struct{}

// NewSessionRepository creates a new repository instance
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{}
}

// Create inserts a new session, assigning its id, sequence number and
// composed name. The sequence number is computed inside the INSERT as
// MAX(existing)+1 so there is no read-then-write window; the UNIQUE
// constraint on (user, subject, topic, sequence) is the backstop.
func (r *SessionRepository) Create(ctx context.Context, session *models.StudySession) error {
	session.ID = uuid.NewString()

	tx, err := DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := DB.Rebind(`
        INSERT INTO study_sessions (
            id, user_id, session_name, subject_name, topic_name,
            sequence_number, focus_duration_minutes, break_duration_minutes, status
        ) VALUES (?, ?, '', ?, ?,
            (SELECT COALESCE(MAX(s.sequence_number), 0) + 1
             FROM study_sessions s
             WHERE s.user_id = ? AND s.subject_name = ? AND s.topic_name = ?),
            ?, ?, ?)
    `)
	_, err = tx.ExecContext(ctx, insert,
		session.ID,
		session.UserID,
		session.SubjectName,
		session.TopicName,
		session.UserID,
		session.SubjectName,
		session.TopicName,
		session.FocusDurationMinutes,
		session.BreakDurationMinutes,
		session.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	// Read the assigned sequence back and compose the session name from it
	var sequence int
	err = tx.GetContext(ctx, &sequence,
		DB.Rebind(`SELECT sequence_number FROM study_sessions WHERE id = ?`), session.ID)
	if err != nil {
		return fmt.Errorf("failed to read sequence number: %w", err)
	}
	session.SequenceNumber = sequence
	session.SessionName = models.ComposeSessionName(session.SubjectName, session.TopicName, sequence)

	_, err = tx.ExecContext(ctx,
		DB.Rebind(`UPDATE study_sessions SET session_name = ? WHERE id = ?`),
		session.SessionName, session.ID)
	if err != nil {
		return fmt.Errorf("failed to set session name: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session creation: %w", err)
	}

	var created models.StudySession
	if err := DB.GetContext(ctx, &created,
		DB.Rebind(`SELECT created_at, updated_at FROM study_sessions WHERE id = ?`), session.ID); err == nil {
		session.CreatedAt = created.CreatedAt
		session.UpdatedAt = created.UpdatedAt
	}

	return nil
}

// GetByID returns a session by id
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.StudySession, error) {
	var session models.StudySession
	query := DB.Rebind(`SELECT * FROM study_sessions WHERE id = ?`)
	if err := DB.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session %s not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// UpdateStatus persists a status change immediately
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	query := DB.Rebind(`
        UPDATE study_sessions
        SET status = ?, updated_at = CURRENT_TIMESTAMP
        WHERE id = ?
    `)
	result, err := DB.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// Delete removes a session row entirely
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	query := DB.Rebind(`DELETE FROM study_sessions WHERE id = ?`)
	result, err := DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// ListByStatus returns a user's sessions with the given status, newest first
func (r *SessionRepository) ListByStatus(ctx context.Context, userID int64, status models.SessionStatus) ([]models.StudySession, error) {
	query := DB.Rebind(`
        SELECT * FROM study_sessions
        WHERE user_id = ? AND status = ?
        ORDER BY created_at DESC
    `)
	var sessions []models.StudySession
	if err := DB.SelectContext(ctx, &sessions, query, userID, status); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ToggleFavorite flips the favorite flag and returns the new value
func (r *SessionRepository) ToggleFavorite(ctx context.Context, id string, userID int64) (bool, error) {
	query := DB.Rebind(`
        UPDATE study_sessions
        SET is_favorite = NOT is_favorite, updated_at = CURRENT_TIMESTAMP
        WHERE id = ? AND user_id = ?
    `)
	result, err := DB.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, fmt.Errorf("session not found or user doesn't have permission")
	}

	var favorite bool
	if err := DB.GetContext(ctx, &favorite,
		DB.Rebind(`SELECT is_favorite FROM study_sessions WHERE id = ?`), id); err != nil {
		return false, fmt.Errorf("failed to read favorite flag: %w", err)
	}
	return favorite, nil
}
