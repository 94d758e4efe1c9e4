package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Raghucharan16/Voice-Based-Medicine-Reminder/internal/domain/caregivers"
)

type CaregiversRepo struct {
	db *sql.DB
}

func NewCaregiversRepo(db *sql.DB) *CaregiversRepo {
	return &CaregiversRepo{db: db}
}

const caregiverColumns = `
	id, user_id, name, relationship,
	email, phone,
	notify_by_email, notify_by_sms,
	created_at
`

func (r *CaregiversRepo) Create(ctx context.Context, c caregivers.Caregiver) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO caregivers (`+caregiverColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)
	`,
		c.ID,
		c.UserID,
		c.Name,
		c.Relationship,
		c.Email,
		c.Phone,
		boolToInt(c.NotifyByEmail),
		boolToInt(c.NotifyBySMS),
		c.CreatedAt.Unix(),
	)
	return err
}

func (r *CaregiversRepo) GetByID(ctx context.Context, id string) (caregivers.Caregiver, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return caregivers.Caregiver{}, caregivers.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT `+caregiverColumns+` FROM caregivers WHERE id = ?`, id)

	c, err := scanCaregiver(row)
	if err == sql.ErrNoRows {
		return caregivers.Caregiver{}, caregivers.ErrNotFound
	}
	return c, err
}

func (r *CaregiversRepo) ListByUser(ctx context.Context, userID string) ([]caregivers.Caregiver, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+caregiverColumns+` FROM caregivers WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]caregivers.Caregiver, 0)
	for rows.Next() {
		c, err := scanCaregiver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CaregiversRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM caregivers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return caregivers.ErrNotFound
	}
	return nil
}

func scanCaregiver(row rowScanner) (caregivers.Caregiver, error) {
	var c caregivers.Caregiver
	var createdAt int64
	var byEmail, bySMS int

	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Name,
		&c.Relationship,
		&c.Email,
		&c.Phone,
		&byEmail,
		&bySMS,
		&createdAt,
	); err != nil {
		return caregivers.Caregiver{}, err
	}

	c.NotifyByEmail = byEmail != 0
	c.NotifyBySMS = bySMS != 0
	c.CreatedAt = time.Unix(createdAt, 0)
	return c, nil
}
