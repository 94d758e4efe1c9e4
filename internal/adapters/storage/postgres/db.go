package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	ErrNotFound = errors.New("not found")
)

// Open abre un pool a Postgres usando pgx (database/sql) y asegura el esquema.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS medicines (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			dosage TEXT NOT NULL,
			form TEXT NOT NULL DEFAULT '',
			instructions TEXT NOT NULL DEFAULT '',
			food_instructions TEXT NOT NULL DEFAULT '',
			times TEXT NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ,
			snooze_minutes INT NOT NULL DEFAULT 0,
			max_reminders INT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			critical BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_medicines_user ON medicines(user_id)`,

		// La PK compuesta hace idempotente la materialización de dosis:
		// un segundo INSERT del mismo horario choca con 23505.
		`CREATE TABLE IF NOT EXISTS scheduled_doses (
			medicine_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			scheduled_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL,
			reminders_sent INT NOT NULL DEFAULT 0,
			last_reminder_time TIMESTAMPTZ,
			actual_time TIMESTAMPTZ,
			delay_minutes INT NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			caregiver_notified BOOLEAN NOT NULL DEFAULT FALSE,
			caregiver_notified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (medicine_id, scheduled_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_doses_user_time ON scheduled_doses(user_id, scheduled_time)`,
		`CREATE INDEX IF NOT EXISTS idx_doses_status ON scheduled_doses(status)`,

		`CREATE TABLE IF NOT EXISTS caregivers (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			relationship TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			notify_by_email BOOLEAN NOT NULL DEFAULT FALSE,
			notify_by_sms BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_caregivers_user ON caregivers(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
