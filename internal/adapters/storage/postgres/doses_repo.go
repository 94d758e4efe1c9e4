package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/doses"
	"github.com/jackc/pgx/v5/pgconn"
)

// DosesRepo persiste el log de adherencia. La PK es la clave compuesta
// (medicine_id, scheduled_time), igual que en el dominio.
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
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		d.MedicineID,
		d.UserID,
		d.ScheduledTime,
		string(d.Status),
		d.RemindersSent,
		nullableTime(d.LastReminderTime),
		nullableTime(d.ActualTime),
		d.DelayMinutes,
		d.Notes,
		d.CaregiverNotified,
		nullableTime(d.CaregiverNotifiedAt),
		d.CreatedAt,
		d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return doses.ErrAlreadyExists
	}
	return err
}

func (r *DosesRepo) Get(ctx context.Context, key doses.Key) (doses.ScheduledDose, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+doseColumns+`
		FROM scheduled_doses
		WHERE medicine_id = $1 AND scheduled_time = $2
	`, key.MedicineID, key.ScheduledTime())

	d, err := scanDose(row)
	if err == sql.ErrNoRows {
		return doses.ScheduledDose{}, doses.ErrNotFound
	}
	return d, err
}

func (r *DosesRepo) Update(ctx context.Context, d doses.ScheduledDose) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_doses SET
			status = $3, reminders_sent = $4, last_reminder_time = $5,
			actual_time = $6, delay_minutes = $7, notes = $8,
			caregiver_notified = $9, caregiver_notified_at = $10,
			updated_at = $11
		WHERE medicine_id = $1 AND scheduled_time = $2
	`,
		d.MedicineID,
		d.ScheduledTime,
		string(d.Status),
		d.RemindersSent,
		nullableTime(d.LastReminderTime),
		nullableTime(d.ActualTime),
		d.DelayMinutes,
		d.Notes,
		d.CaregiverNotified,
		nullableTime(d.CaregiverNotifiedAt),
		d.UpdatedAt,
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
	argN := 1
	next := func() string {
		p := "$" + strconv.Itoa(argN)
		argN++
		return p
	}

	if filter.UserID != "" {
		sb.WriteString(` AND user_id = ` + next())
		args = append(args, filter.UserID)
	}
	if filter.MedicineID != "" {
		sb.WriteString(` AND medicine_id = ` + next())
		args = append(args, filter.MedicineID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			placeholders = append(placeholders, next())
			args = append(args, string(st))
		}
		sb.WriteString(` AND status IN (` + strings.Join(placeholders, ",") + `)`)
	}
	if filter.From != nil {
		sb.WriteString(` AND scheduled_time >= ` + next())
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		sb.WriteString(` AND scheduled_time <= ` + next())
		args = append(args, *filter.To)
	}

	sb.WriteString(` ORDER BY scheduled_time DESC`)
	if filter.Limit > 0 {
		sb.WriteString(` LIMIT ` + next())
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
	var lastReminder, actual, caregiverAt sql.NullTime

	if err := row.Scan(
		&d.MedicineID,
		&d.UserID,
		&d.ScheduledTime,
		&status,
		&d.RemindersSent,
		&lastReminder,
		&actual,
		&d.DelayMinutes,
		&d.Notes,
		&d.CaregiverNotified,
		&caregiverAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return doses.ScheduledDose{}, err
	}

	d.Status = doses.Status(status)
	if lastReminder.Valid {
		t := lastReminder.Time
		d.LastReminderTime = &t
	}
	if actual.Valid {
		t := actual.Time
		d.ActualTime = &t
	}
	if caregiverAt.Valid {
		t := caregiverAt.Time
		d.CaregiverNotifiedAt = &t
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
