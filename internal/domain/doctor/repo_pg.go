package doctor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doctorCols = `id, user_id, name, specialization, email, phone, bio,
	profile_picture_url, availability, created_at, updated_at`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.Email, &d.Phone, &d.Bio,
		&d.ProfilePictureURL, &d.Availability, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("doctor")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == "" {
		d.ID = ID(uuid.NewString())
	}
	if d.Availability == nil {
		d.Availability = DefaultAvailability()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (id, user_id, name, specialization, email, phone, bio, availability)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.Name, d.Specialization, d.Email, d.Phone, d.Bio, d.Availability,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if db.IsUniqueViolation(err, "doctors_user_id_key") {
		return fmt.Errorf("doctor profile for user %s: %w", d.UserID, apperr.ErrConflict)
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id ID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID identity.UserID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE user_id = $1`, userID))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doctorCols+` FROM doctors ORDER BY name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) exec(ctx context.Context, id ID, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, append([]interface{}{id}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("doctor")
	}
	return nil
}

func (r *repoPG) UpdateAvailability(ctx context.Context, id ID, a AvailabilitySchedule) error {
	return r.exec(ctx, id, `UPDATE doctors SET availability = $2, updated_at = NOW() WHERE id = $1`, a)
}

func (r *repoPG) UpdateContact(ctx context.Context, id ID, c Contact) error {
	return r.exec(ctx, id, `UPDATE doctors SET phone = $2, bio = $3, updated_at = NOW() WHERE id = $1`, c.Phone, c.Bio)
}

func (r *repoPG) SetProfilePicture(ctx context.Context, id ID, url string) error {
	return r.exec(ctx, id, `UPDATE doctors SET profile_picture_url = $2, updated_at = NOW() WHERE id = $1`, url)
}

func (r *repoPG) ListPictureURLs(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT profile_picture_url FROM doctors WHERE profile_picture_url IS NOT NULL AND profile_picture_url <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
