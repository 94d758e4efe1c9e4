package sqlite

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

const medicineColumns = `
	id, user_id,
	name, dosage, form,
	instructions, food_instructions,
	times, start_date, end_date,
	snooze_minutes, max_reminders,
	active, critical,
	created_at, updated_at
`

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	times, err := json.Marshal(m.Times)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medicines (`+medicineColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		m.ID,
		m.UserID,
		m.Name,
		m.Dosage,
		m.Form,
		m.Instructions,
		m.FoodInstructions,
		string(times),
		m.StartDate.Unix(),
		unixOrNil(m.EndDate),
		m.SnoozeMinutes,
		m.MaxReminders,
		boolToInt(m.Active),
		boolToInt(m.Critical),
		m.CreatedAt.Unix(),
		m.UpdatedAt.Unix(),
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
			name = ?, dosage = ?, form = ?,
			instructions = ?, food_instructions = ?,
			times = ?, start_date = ?, end_date = ?,
			snooze_minutes = ?, max_reminders = ?,
			active = ?, critical = ?,
			updated_at = ?
		WHERE id = ?
	`,
		m.Name,
		m.Dosage,
		m.Form,
		m.Instructions,
		m.FoodInstructions,
		string(times),
		m.StartDate.Unix(),
		unixOrNil(m.EndDate),
		m.SnoozeMinutes,
		m.MaxReminders,
		boolToInt(m.Active),
		boolToInt(m.Critical),
		m.UpdatedAt.Unix(),
		m.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return medicines.ErrNotFound
	}
	return nil
}

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE id = ?`, id)

	m, err := scanMedicine(row)
	if err == sql.ErrNoRows {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, err
}

func (r *MedicinesRepo) ListByUser(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMedicines(rows)
}

func (r *MedicinesRepo) ListActive(ctx context.Context, userID string) ([]medicines.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE active = 1`
	args := []any{}
	if userID != "" {
		query += ` AND user_id = ?`
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
	var startDate, createdAt, updatedAt int64
	var endDate sql.NullInt64
	var active, critical int

	if err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.Name,
		&m.Dosage,
		&m.Form,
		&m.Instructions,
		&m.FoodInstructions,
		&times,
		&startDate,
		&endDate,
		&m.SnoozeMinutes,
		&m.MaxReminders,
		&active,
		&critical,
		&createdAt,
		&updatedAt,
	); err != nil {
		return medicines.Medicine{}, err
	}

	m.StartDate = time.Unix(startDate, 0)
	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	m.Active = active != 0
	m.Critical = critical != 0
	if endDate.Valid {
		t := time.Unix(endDate.Int64, 0)
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

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
