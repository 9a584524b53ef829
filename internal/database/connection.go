package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DB is the global database connection
var DB *sqlx.DB

// Connect establishes a connection to the database. When DATABASE_URL points
// at a Postgres instance that driver is used; otherwise a local SQLite file.
func Connect() error {
	if url := os.Getenv("DATABASE_URL"); strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		db, err := sqlx.Connect("postgres", url)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		DB = db
		return initializeSchema()
	}

	// Create data directory if it doesn't exist
	dataDir := "data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "aayra.db")
	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	DB = db

	return initializeSchema()
}

// Close closes the database connection
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// initializeSchema creates necessary tables if they don't exist. The DDL is
// kept portable between SQLite and Postgres: TEXT/UUID keys, no autoincrement.
func initializeSchema() error {
	// Create users table
	_, err := DB.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT,
			notification_enabled BOOLEAN DEFAULT true,
			notification_hour INTEGER DEFAULT 9,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	// Create study_sessions table. The UNIQUE constraint backs the
	// per-(user, subject, topic) sequence numbering: concurrent creations
	// surface as a constraint violation instead of a duplicate.
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS study_sessions (
			id TEXT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			session_name TEXT NOT NULL,
			subject_name TEXT NOT NULL,
			topic_name TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			focus_duration_minutes INTEGER NOT NULL,
			break_duration_minutes INTEGER NOT NULL,
			status TEXT NOT NULL,
			is_favorite BOOLEAN DEFAULT false,
			last_reviewed_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(telegram_id),
			UNIQUE(user_id, subject_name, topic_name, sequence_number)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create study_sessions table: %w", err)
	}

	// Create review_cycle_entries table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS review_cycle_entries (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			user_id BIGINT NOT NULL,
			review_stage INTEGER NOT NULL,
			first_appearance_date TEXT NOT NULL,
			due_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES study_sessions(id),
			FOREIGN KEY (user_id) REFERENCES users(telegram_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create review_cycle_entries table: %w", err)
	}

	// Create session_content table
	_, err = DB.Exec(`
		CREATE TABLE IF NOT EXISTS session_content (
			session_id TEXT NOT NULL,
			review_stage INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, review_stage),
			FOREIGN KEY (session_id) REFERENCES study_sessions(id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create session_content table: %w", err)
	}

	return nil
}
