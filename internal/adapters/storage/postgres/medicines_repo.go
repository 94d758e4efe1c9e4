package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/medicines"
)

type MedicinesRepo struct {
	db *sql.DB
}

func NewMedicinesRepo(db *sql.DB) *MedicinesRepo {
	return &MedicinesRepo{db: db}
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	times, err := json.Marshal(m.Times)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medicines (
			id, user_id,
			name, dosage, form,
			instructions, food_instructions,
			times, start_date, end_date,
			snooze_minutes, max_reminders,
			active, critical,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		m.ID,
		m.UserID,
		m.Name,
		m.Dosage,
		m.Form,
		m.Instructions,
		m.FoodInstructions,
		string(times),
		m.StartDate,
		m.EndDate,
		m.SnoozeMinutes,
		m.MaxReminders,
		m.Active,
		m.Critical,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *MedicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	times, err := json.Marshal(m.Times)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medicines SET
			name = $2, dosage = $3, form = $4,
			instructions = $5, food_instructions = $6,
			times = $7, start_date = $8, end_date = $9,
			snooze_minutes = $10, max_reminders = $11,
			active = $12, critical = $13,
			updated_at = $14
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.Dosage,
		m.Form,
		m.Instructions,
		m.FoodInstructions,
		string(times),
		m.StartDate,
		m.EndDate,
		m.SnoozeMinutes,
		m.MaxReminders,
		m.Active,
		m.Critical,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

const medicineColumns = `
	id, user_id,
	name, dosage, form,
	instructions, food_instructions,
	times, start_date, end_date,
	snooze_minutes, max_reminders,
	active, critical,
	created_at, updated_at
`

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE id = $1`, id)

	m, err := scanMedicine(row)
	if err == sql.ErrNoRows {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, err
}

func (r *MedicinesRepo) ListByUser(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMedicines(rows)
}

func (r *MedicinesRepo) ListActive(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE active = TRUE`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMedicines(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (medicines.Medicine, error) {
	var m medicines.Medicine
	var times string
	var endDate sql.NullTime

	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Dosage,
		&m.Form,
		&m.Instructions,
		&m.FoodInstructions,
		&times,
		&m.StartDate,
		&endDate,
		&m.SnoozeMinutes,
		&m.MaxReminders,
		&m.Active,
		&m.Critical,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		return medicines.Medicine{}, err
	}

	if endDate.Valid {
		t := endDate.Time
		m.EndDate = &t
	}
	if err := json.Unmarshal([]byte(times), &m.Times); err != nil {
		// times corrupto: la medicina sigue siendo consultable, sin horarios.
		m.Times = nil
	}
	return m, nil
}

func collectMedicines(rows *sql.Rows) ([]medicines.Medicine, error) {
	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// nullableTime ayuda con columnas timestamp NULL.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
