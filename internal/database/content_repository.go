package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/aayra/pkg/models"
)

// ContentRepository stores generated study content per session and review stage
type ContentRepository struct{}

// NewContentRepository creates a new repository instance
func NewContentRepository() *ContentRepository {
	return &ContentRepository{}
}

// Save stores (or replaces) the content generated for a session at a stage.
// Stage 0 holds the content from the original session run.
func (r *ContentRepository) Save(ctx context.Context, sessionID string, stage int, content *models.GeneratedContent) error {
	payload, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to encode content: %w", err)
	}
	query := DB.Rebind(`
        INSERT INTO session_content (session_id, review_stage, content)
        VALUES (?, ?, ?)
        ON CONFLICT (session_id, review_stage) DO UPDATE SET
            content = EXCLUDED.content
    `)
	if _, err := DB.ExecContext(ctx, query, sessionID, stage, string(payload)); err != nil {
		return fmt.Errorf("failed to save session content: %w", err)
	}
	return nil
}

// Get loads the content stored for a session at a stage
func (r *ContentRepository) Get(ctx context.Context, sessionID string, stage int) (*models.GeneratedContent, error) {
	var payload string
	query := DB.Rebind(`
        SELECT content FROM session_content
        WHERE session_id = ? AND review_stage = ?
    `)
	if err := DB.GetContext(ctx, &payload, query, sessionID, stage); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no content for session %s stage %d: %w", sessionID, stage, err)
		}
		return nil, fmt.Errorf("failed to get session content: %w", err)
	}
	var content models.GeneratedContent
	if err := json.Unmarshal([]byte(payload), &content); err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	return &content, nil
}
