package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const detailColumns = `
	p.id, p.user_id, p.program_id, p.amount, p.status, p.admin_notes,
	p.receipt_url, p.created_at, p.processed_at,
	u.name AS user_name, u.email AS user_email,
	pr.name AS program_name`

const detailJoins = `
	FROM payments p
	JOIN users u ON u.id = p.user_id
	JOIN programs pr ON pr.id = p.program_id`

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create stores a new pending payment
func (r *Repository) Create(ctx context.Context, p *Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, user_id, program_id, amount, status, receipt_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.UserID, p.ProgramID, p.Amount, p.Status, p.ReceiptURL, p.CreatedAt)
	return err
}

// GetByID returns a payment by id
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var p Payment
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetDetail returns a payment with user and program projections
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	var d Detail
	err := r.db.GetContext(ctx, &d, `SELECT `+detailColumns+detailJoins+` WHERE p.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// GetForUpdateTx locks a payment row for settlement. The prior-status check
// and the update must observe the same row version.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Payment, error) {
	var p Payment
	err := tx.GetContext(ctx, &p, `SELECT * FROM payments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListForUpdateTx locks every existing payment from the id set. Missing ids
// simply do not appear in the result.
func (r *Repository) ListForUpdateTx(ctx context.Context, tx *sqlx.Tx, ids []uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := tx.SelectContext(ctx, &payments, `
		SELECT * FROM payments
		WHERE id = ANY($1)
		ORDER BY created_at
		FOR UPDATE
	`, pq.Array(ids))
	return payments, err
}

// UpdateTx writes the settled payment fields inside the caller's transaction
func (r *Repository) UpdateTx(ctx context.Context, tx *sqlx.Tx, p *Payment) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE payments
		SET status = $2,
		    amount = $3,
		    admin_notes = $4,
		    receipt_url = $5,
		    processed_at = $6
		WHERE id = $1
	`, p.ID, p.Status, p.Amount, p.AdminNotes, p.ReceiptURL, p.ProcessedAt)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx hard-deletes a payment row. Only valid for pending payments;
// processed payments are cancelled instead to preserve the audit trail.
func (r *Repository) DeleteTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	return err
}

// List returns payments with projections for the admin console
func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]Detail, error) {
	query := `SELECT ` + detailColumns + detailJoins
	args := []interface{}{}
	if status != "" {
		query += ` WHERE p.status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	var details []Detail
	err := r.db.SelectContext(ctx, &details, query, args...)
	return details, err
}

// ListByUser returns a member's own payments
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Detail, error) {
	var details []Detail
	err := r.db.SelectContext(ctx, &details, `
		SELECT `+detailColumns+detailJoins+`
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	return details, err
}

// Export returns payments matching the filter, oldest first
func (r *Repository) Export(ctx context.Context, f ExportFilter) ([]Detail, error) {
	var conditions []string
	var args []interface{}

	if f.Status != "" {
		args = append(args, f.Status)
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conditions = append(conditions, fmt.Sprintf("p.created_at >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		conditions = append(conditions, fmt.Sprintf("p.created_at <= $%d", len(args)))
	}

	query := `SELECT ` + detailColumns + detailJoins
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY p.created_at ASC`

	var details []Detail
	err := r.db.SelectContext(ctx, &details, query, args...)
	return details, err
}

// CountsByStatus aggregates payments for the dashboard
func (r *Repository) CountsByStatus(ctx context.Context) (*Stats, error) {
	var s Stats
	err := r.db.GetContext(ctx, &s, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending')  AS pending_count,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved_count,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected_count,
			COALESCE(SUM(amount) FILTER (WHERE status = 'approved'), 0) AS approved_amount
		FROM payments
	`)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
