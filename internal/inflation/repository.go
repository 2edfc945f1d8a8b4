package inflation

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the index series.
type Repository interface {
	List(ctx context.Context) ([]Index, error)
	Get(ctx context.Context, period string) (Index, error)
	Upsert(ctx context.Context, idx Index) error
	Delete(ctx context.Context, period string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed index store.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Index, error) {
	rows, err := r.db.Query(ctx, `SELECT period, value, updated_at FROM inflation_indices ORDER BY period ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var indices []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Period, &idx.Value, &idx.UpdatedAt); err != nil {
			return nil, err
		}
		indices = append(indices, idx)
	}
	return indices, rows.Err()
}

func (r *repository) Get(ctx context.Context, period string) (Index, error) {
	var idx Index
	err := r.db.QueryRow(ctx, `SELECT period, value, updated_at FROM inflation_indices WHERE period=$1`, period).
		Scan(&idx.Period, &idx.Value, &idx.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Index{}, ErrIndexNotFound
		}
		return Index{}, err
	}
	return idx, nil
}

func (r *repository) Upsert(ctx context.Context, idx Index) error {
	_, err := r.db.Exec(ctx, `INSERT INTO inflation_indices (period, value, updated_at)
VALUES ($1,$2,NOW())
ON CONFLICT (period) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, idx.Period, idx.Value)
	return err
}

func (r *repository) Delete(ctx context.Context, period string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM inflation_indices WHERE period=$1`, period)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIndexNotFound
	}
	return nil
}
