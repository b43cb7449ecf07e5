package program

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns purchasable programs
func (r *Repository) ListActive(ctx context.Context) ([]Program, error) {
	var programs []Program
	err := r.db.SelectContext(ctx, &programs, `
		SELECT * FROM programs
		WHERE is_active = true
		ORDER BY price ASC
	`)
	return programs, err
}

// GetByID returns a program by id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Program, error) {
	var p Program
	err := r.db.GetContext(ctx, &p, `SELECT * FROM programs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
