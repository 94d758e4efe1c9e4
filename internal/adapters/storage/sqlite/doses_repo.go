package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
)

// DosesRepo persiste el log de adherencia en sqlite. Los timestamps se
// guardan como segundos unix; la PK es (medicine_id, scheduled_time).
type DosesRepo struct {
	db *sql.DB
}

func NewDosesRepo(db *sql.DB) *DosesRepo {
	return &DosesRepo{db: db}
}

const doseColumns = `
	medicine_id, user_id, scheduled_time,
	status, reminders_sent, last_reminder_time,
	actual_time, delay_minutes, notes,
	caregiver_notified, caregiver_notified_at,
	created_at, updated_at
`

func (r *DosesRepo) Create(ctx context.Context, d doses.ScheduledDose) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_doses (`+doseColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`,
		d.MedicineID,
		d.UserID,
		d.ScheduledTime.Unix(),
		string(d.Status),
		d.RemindersSent,
		unixOrNil(d.LastReminderTime),
		unixOrNil(d.ActualTime),
		d.DelayMinutes,
		d.Notes,
		boolToInt(d.CaregiverNotified),
		unixOrNil(d.CaregiverNotifiedAt),
		d.CreatedAt.Unix(),
		d.UpdatedAt.Unix(),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return doses.ErrAlreadyExists
	}
	return err
}

func (r *DosesRepo) Get(ctx context.Context, key doses.Key) (doses.ScheduledDose, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+doseColumns+`
		FROM scheduled_doses
		WHERE medicine_id = ? AND scheduled_time = ?
	`, key.MedicineID, key.ScheduledTime().Unix())

	d, err := scanDose(row)
	if err == sql.ErrNoRows {
		return doses.ScheduledDose{}, doses.ErrNotFound
	}
	return d, err
}

func (r *DosesRepo) Update(ctx context.Context, d doses.ScheduledDose) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_doses SET
			status = ?, reminders_sent = ?, last_reminder_time = ?,
			actual_time = ?, delay_minutes = ?, notes = ?,
			caregiver_notified = ?, caregiver_notified_at = ?,
			updated_at = ?
		WHERE medicine_id = ? AND scheduled_time = ?
	`,
		string(d.Status),
		d.RemindersSent,
		unixOrNil(d.LastReminderTime),
		unixOrNil(d.ActualTime),
		d.DelayMinutes,
		d.Notes,
		boolToInt(d.CaregiverNotified),
		unixOrNil(d.CaregiverNotifiedAt),
		d.UpdatedAt.Unix(),
		d.MedicineID,
		d.ScheduledTime.Unix(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return doses.ErrNotFound
	}
	return nil
}

func (r *DosesRepo) Query(ctx context.Context, filter doses.Filter) ([]doses.ScheduledDose, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT ` + doseColumns + ` FROM scheduled_doses WHERE 1=1`)

	args := []any{}
	if filter.UserID != "" {
		sb.WriteString(` AND user_id = ?`)
		args = append(args, filter.UserID)
	}
	if filter.MedicineID != "" {
		sb.WriteString(` AND medicine_id = ?`)
		args = append(args, filter.MedicineID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			placeholders = append(placeholders, "?")
			args = append(args, string(st))
		}
		sb.WriteString(` AND status IN (` + strings.Join(placeholders, ",") + `)`)
	}
	if filter.From != nil {
		sb.WriteString(` AND scheduled_time >= ?`)
		args = append(args, filter.From.Unix())
	}
	if filter.To != nil {
		sb.WriteString(` AND scheduled_time <= ?`)
		args = append(args, filter.To.Unix())
	}

	sb.WriteString(` ORDER BY scheduled_time DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]doses.ScheduledDose, 0)
	for rows.Next() {
		d, err := scanDose(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDose(row rowScanner) (doses.ScheduledDose, error) {
	var d doses.ScheduledDose
	var status string
	var scheduled, createdAt, updatedAt int64
	var lastReminder, actual, caregiverAt sql.NullInt64
	var caregiverNotified int

	if err := row.Scan(
		&d.MedicineID,
		&d.UserID,
		&scheduled,
		&status,
		&d.RemindersSent,
		&lastReminder,
		&actual,
		&d.DelayMinutes,
		&d.Notes,
		&caregiverNotified,
		&caregiverAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return doses.ScheduledDose{}, err
	}

	d.Status = doses.Status(status)
	d.ScheduledTime = time.Unix(scheduled, 0)
	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	d.CaregiverNotified = caregiverNotified != 0
	if lastReminder.Valid {
		t := time.Unix(lastReminder.Int64, 0)
		d.LastReminderTime = &t
	}
	if actual.Valid {
		t := time.Unix(actual.Int64, 0)
		d.ActualTime = &t
	}
	if caregiverAt.Valid {
		t := time.Unix(caregiverAt.Int64, 0)
		d.CaregiverNotifiedAt = &t
	}
	return d, nil
}
