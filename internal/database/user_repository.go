package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/aayra/pkg/models"
)

// UserRepository handles database operations for users
type UserRepository struct{}

// NewUserRepository creates a new repository instance
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByID returns a user by Telegram ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	query := DB.Rebind(`
        SELECT telegram_id, username, first_name, notification_enabled,
               notification_hour, created_at, updated_at
        FROM users WHERE telegram_id = ?
    `)
	if err := DB.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user %d not found: %w", id, err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Upsert registers a user or refreshes their profile fields
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) error {
	query := DB.Rebind(`
        INSERT INTO users (telegram_id, username, first_name)
        VALUES (?, ?, ?)
        ON CONFLICT (telegram_id) DO UPDATE SET
            username = EXCLUDED.username,
            first_name = EXCLUDED.first_name,
            updated_at = CURRENT_TIMESTAMP
    `)
	if _, err := DB.ExecContext(ctx, query, user.ID, user.Username, user.FirstName); err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetNotificationPrefs updates a user's reminder settings
func (r *UserRepository) SetNotificationPrefs(ctx context.Context, id int64, enabled bool, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("notification hour must be 0-23, got %d", hour)
	}
	query := DB.Rebind(`
        UPDATE users
        SET notification_enabled = ?, notification_hour = ?, updated_at = CURRENT_TIMESTAMP
        WHERE telegram_id = ?
    `)
	result, err := DB.ExecContext(ctx, query, enabled, hour, id)
	if err != nil {
		return fmt.Errorf("failed to update notification prefs: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d not found", id)
	}
	return nil
}

// GetUsersForNotification returns users who want reminders at the given hour
func (r *UserRepository) GetUsersForNotification(ctx context.Context, hour int) ([]models.User, error) {
	query := DB.Rebind(`
        SELECT telegram_id, username, first_name, notification_enabled,
               notification_hour, created_at, updated_at
        FROM users
        WHERE notification_enabled = true AND notification_hour = ?
    `)
	var users []models.User
	if err := DB.SelectContext(ctx, &users, query, hour); err != nil {
		return nil, fmt.Errorf("failed to get users for notification: %w", err)
	}
	return users, nil
}
