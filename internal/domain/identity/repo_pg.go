package identity

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

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, firstname, lastname, age, email, phonenumber, userimage, gender,
	password, role, reset_token, specialization, experience_years, clinic_address,
	created_at, updated_at, deleted_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Age, &u.Email, &u.PhoneNumber, &u.UserImage, &u.Gender,
		&u.PasswordHash, &u.Role, &u.ResetToken, &u.Specialization, &u.ExperienceYears, &u.ClinicAddress,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, firstname, lastname, age, email, phonenumber, gender, password, role)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		u.ID, u.Firstname, u.Lastname, u.Age, u.Email, u.PhoneNumber, u.Gender, u.PasswordHash, u.Role,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1 AND deleted_at IS NULL`, email))
}

func (r *userRepoPG) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE phonenumber = $1 AND deleted_at IS NULL`, phone))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET firstname=$2, lastname=$3, age=$4, phonenumber=$5, gender=$6, userimage=$7,
			specialization=$8, experience_years=$9, clinic_address=$10, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`,
		u.ID, u.Firstname, u.Lastname, u.Age, u.PhoneNumber, u.Gender, u.UserImage,
		u.Specialization, u.ExperienceYears, u.ClinicAddress,
	).Scan(&u.UpdatedAt)
}

func (r *userRepoPG) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET password=$2, reset_token=NULL, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepoPG) SetResetToken(ctx context.Context, id uuid.UUID, token *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE users SET reset_token=$2, updated_at=NOW() WHERE id = $1 AND deleted_at IS NULL`, id, token)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context, role string, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND ($1::text = '' OR role = $1)`, role).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+userCols+` FROM users
		WHERE deleted_at IS NULL AND ($1::text = '' OR role = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *userRepoPG) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET deleted_at=NOW(), reset_token=NULL, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
