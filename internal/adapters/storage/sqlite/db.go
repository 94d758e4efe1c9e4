package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// Open abre (o crea) la base sqlite y asegura el esquema. Pensado para
// deployments locales de un solo dispositivo, sin servidor de base de datos.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite maneja un solo writer; evitamos "database is locked".
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS medicines (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			dosage TEXT NOT NULL,
			form TEXT NOT NULL DEFAULT '',
			instructions TEXT NOT NULL DEFAULT '',
			food_instructions TEXT NOT NULL DEFAULT '',
			times TEXT NOT NULL DEFAULT '[]',
			start_date INTEGER NOT NULL,
			end_date INTEGER,
			snooze_minutes INTEGER NOT NULL DEFAULT 0,
			max_reminders INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			critical INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_medicines_user ON medicines(user_id)`,

		`CREATE TABLE IF NOT EXISTS scheduled_doses (
			medicine_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			scheduled_time INTEGER NOT NULL,
			status TEXT NOT NULL,
			reminders_sent INTEGER NOT NULL DEFAULT 0,
			last_reminder_time INTEGER,
			actual_time INTEGER,
			delay_minutes INTEGER NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			caregiver_notified INTEGER NOT NULL DEFAULT 0,
			caregiver_notified_at INTEGER,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (medicine_id, scheduled_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_doses_user_time ON scheduled_doses(user_id, scheduled_time)`,

		`CREATE TABLE IF NOT EXISTS caregivers (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			relationship TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			notify_by_email INTEGER NOT NULL DEFAULT 1,
			notify_by_sms INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_caregivers_user ON caregivers(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
