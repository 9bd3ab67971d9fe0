package billing

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

type transactionRepoPG struct{ pool *pgxpool.Pool }

func NewTransactionRepoPG(pool *pgxpool.Pool) TransactionRepository {
	return &transactionRepoPG{pool: pool}
}

func (r *transactionRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const txnCols = `id, user_id, appointment_id, amount, status, payment_intent_id, currency, created_at, updated_at`

func (r *transactionRepoPG) scanTransaction(row pgx.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.AppointmentID, &t.Amount, &t.Status,
		&t.PaymentIntentID, &t.Currency, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *transactionRepoPG) Create(ctx context.Context, t *Transaction) error {
	t.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, appointment_id, amount, status, payment_intent_id, currency)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.AppointmentID, t.Amount, t.Status, t.PaymentIntentID, t.Currency,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *transactionRepoPG) GetForUser(ctx context.Context, userID, id uuid.UUID) (*Transaction, error) {
	t, err := r.scanTransaction(r.conn(ctx).QueryRow(ctx,
		`SELECT `+txnCols+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transactionRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transaction, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+txnCols+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Transaction
	for rows.Next() {
		t, err := r.scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}
