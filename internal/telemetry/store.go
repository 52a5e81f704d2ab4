package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists interaction logs and survey responses in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the telemetry database and applies
// migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) applyMigrations(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS action_logs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user TEXT NOT NULL,
            action TEXT NOT NULL,
            category TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_action_logs_user ON action_logs(user)`,
		`CREATE TABLE IF NOT EXISTS survey_responses (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user TEXT NOT NULL,
            question_id TEXT NOT NULL,
            question TEXT NOT NULL,
            response INTEGER NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_survey_responses_user ON survey_responses(user)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertAction records one control interaction.
func (s *Store) InsertAction(ctx context.Context, user, action, category string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO action_logs (user, action, category, created_at) VALUES (?, ?, ?, ?)`,
		user, action, category, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert action log: %w", err)
	}
	return nil
}

// InsertSurveyResponse records one survey rating (1-5).
func (s *Store) InsertSurveyResponse(ctx context.Context, user, questionID, question string, response int) error {
	if response < 1 || response > 5 {
		return fmt.Errorf("survey response %d out of range", response)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO survey_responses (user, question_id, question, response, created_at) VALUES (?, ?, ?, ?, ?)`,
		user, questionID, question, response, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert survey response: %w", err)
	}
	return nil
}

// CountActions returns the number of stored actions for user. Used by tests
// and the admin surface.
func (s *Store) CountActions(ctx context.Context, user string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM action_logs WHERE user = ?`, user).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count action logs: %w", err)
	}
	return n, nil
}
