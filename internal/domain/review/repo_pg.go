package review

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olawuwo-abideen/healthcare/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type reviewRepoPG struct{ pool *pgxpool.Pool }

func NewReviewRepoPG(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepoPG{pool: pool}
}

func (r *reviewRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const reviewCols = `id, doctor_id, patient_id, rating, comment, created_at, updated_at`

func (r *reviewRepoPG) scanReview(row pgx.Row) (*Review, error) {
	var rv Review
	err := row.Scan(&rv.ID, &rv.DoctorID, &rv.PatientID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	return &rv, err
}

func (r *reviewRepoPG) Create(ctx context.Context, rv *Review) error {
	rv.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reviews (id, doctor_id, patient_id, rating, comment)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		rv.ID, rv.DoctorID, rv.PatientID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt, &rv.UpdatedAt)
}

func (r *reviewRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Review, error) {
	rv, err := r.scanReview(r.conn(ctx).QueryRow(ctx, `SELECT `+reviewCols+` FROM reviews WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return rv, nil
}

func (r *reviewRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*Review, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+reviewCols+` FROM reviews WHERE doctor_id = $1 ORDER BY created_at DESC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Review
	for rows.Next() {
		rv, err := r.scanReview(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rv)
	}
	return items, rows.Err()
}

func (r *reviewRepoPG) Update(ctx context.Context, rv *Review) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE reviews SET rating = $2, comment = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		rv.ID, rv.Rating, rv.Comment,
	).Scan(&rv.UpdatedAt)
}

func (r *reviewRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
