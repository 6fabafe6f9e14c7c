package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/flight-booking/internal/model"
)

const userColumns = `id, last_name, first_name, phone_number, email, birth_date, gender, registered_at`

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// Create inserts the user and sets its ID.  Email is normalized to lower
// case; a taken email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (last_name, first_name, phone_number, email, birth_date, gender, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.LastName, u.FirstName, u.PhoneNumber, u.Email, u.BirthDate, u.Gender, u.RegisteredAt)
	if err != nil {
		return userWriteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List returns every user ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	out := make([]model.User, 0)
	if err := r.db.SelectContext(ctx, &out, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

// ExistsTx reports whether the user row exists, as seen by tx.
func (r *UserRepo) ExistsTx(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	return exists(ctx, tx, `SELECT 1 FROM users WHERE id = ?`, id)
}

// Update overwrites every mutable column.  RegisteredAt is kept.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_name = ?, first_name = ?, phone_number = ?, email = ?, birth_date = ?, gender = ?
		 WHERE id = ?`,
		u.LastName, u.FirstName, u.PhoneNumber, u.Email, u.BirthDate, u.Gender, u.ID)
	if err != nil {
		return userWriteError(err)
	}
	return requireAffected(res)
}

// Delete removes the user; reservations and tickets go with it through
// ON DELETE CASCADE.  It reports whether a row was removed.
func (r *UserRepo) Delete(ctx context.Context, id int64) (bool, error) {
	return deleteByID(ctx, r.db, `DELETE FROM users WHERE id = ?`, id)
}

func userWriteError(err error) error {
	switch classify(err) {
	case kindDuplicate:
		return ErrEmailExists
	case kindCheck:
		return ErrConstraintViolation
	}
	return err
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
