package member

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrMemberNotFound = errors.New("member not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, name, email, passwordHash, role string) (*Member, error) {
	query := `
		INSERT INTO members (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, email, password_hash, role, is_active, last_activity_at, created_at
	`

	var m Member
	err := r.db.GetContext(ctx, &m, query, name, email, passwordHash, role)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*Member, error) {
	query := `
		SELECT id, name, email, password_hash, role, is_active, last_activity_at, created_at
		FROM members
		WHERE email = $1
	`

	var m Member
	err := r.db.GetContext(ctx, &m, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *repository) FindByID(ctx context.Context, id int) (*Member, error) {
	query := `
		SELECT id, name, email, password_hash, role, is_active, last_activity_at, created_at
		FROM members
		WHERE id = $1
	`

	var m Member
	err := r.db.GetContext(ctx, &m, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	return &m, nil
}

func (r *repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM members
			WHERE email = $1
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, email)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) TouchActivity(ctx context.Context, memberID int) error {
	return TouchActivityTx(ctx, r.db, memberID)
}

// DeactivateInactiveSince flips is_active off for members whose last activity
// is older than the cutoff. Returns the number of members deactivated.
func (r *repository) DeactivateInactiveSince(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE members
		SET is_active = FALSE
		WHERE is_active = TRUE AND role = 'member' AND last_activity_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// TouchActivityTx bumps the member's last-activity timestamp, usable inside
// a sale transaction. The daily sweep reads this column.
func TouchActivityTx(ctx context.Context, q sqlx.ExtContext, memberID int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE members
		SET last_activity_at = NOW()
		WHERE id = $1
	`, memberID)
	return err
}
