package fixedassets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigecon/sigecon/internal/platform/db"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed asset store. Acquisition,
// opening, and entry-reference detail live in jsonb columns; the scalar
// classification fields stay relational for querying.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const assetColumns = `id, name, category, intangible, account_id, contra_account_id, origin_type,
service_date, original_value, residual_pct, method, life_years, life_months, total_units, units_used,
status, disposal_date, disposal_value, adjusts_by_inflation, acquisition, opening, entry_refs, notes,
created_at, updated_at`

func (r *repository) ListAssets(ctx context.Context) ([]Asset, error) {
	rows, err := r.db.Query(ctx, `SELECT `+assetColumns+` FROM fixed_assets ORDER BY service_date ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *repository) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM fixed_assets WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Asset{}, ErrAssetNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

func (r *repository) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO fixed_assets
(id, name, category, intangible, account_id, contra_account_id, origin_type, service_date, original_value,
 residual_pct, method, life_years, life_months, total_units, units_used, status, disposal_date, disposal_value,
 adjusts_by_inflation, acquisition, opening, entry_refs, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)`,
		a.ID, a.Name, a.Category, a.Intangible, a.AccountID, a.ContraAccountID, a.OriginType, a.ServiceDate,
		a.OriginalValue, a.ResidualPct, a.Method, a.LifeYears, a.LifeMonths, a.TotalUnits, a.UnitsUsed,
		a.Status, a.DisposalDate, a.DisposalValue, a.AdjustsByInflation, a.Acquisition, a.Opening, a.Refs,
		a.Notes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	return a, nil
}

func (r *repository) UpdateAsset(ctx context.Context, a Asset) error {
	cmd, err := r.db.Exec(ctx, `UPDATE fixed_assets SET
name=$2, category=$3, intangible=$4, account_id=$5, contra_account_id=$6, origin_type=$7, service_date=$8,
original_value=$9, residual_pct=$10, method=$11, life_years=$12, life_months=$13, total_units=$14, units_used=$15,
status=$16, disposal_date=$17, disposal_value=$18, adjusts_by_inflation=$19, acquisition=$20, opening=$21,
entry_refs=$22, notes=$23, updated_at=NOW()
WHERE id=$1`,
		a.ID, a.Name, a.Category, a.Intangible, a.AccountID, a.ContraAccountID, a.OriginType, a.ServiceDate,
		a.OriginalValue, a.ResidualPct, a.Method, a.LifeYears, a.LifeMonths, a.TotalUnits, a.UnitsUsed,
		a.Status, a.DisposalDate, a.DisposalValue, a.AdjustsByInflation, a.Acquisition, a.Opening, a.Refs, a.Notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAssetNotFound
	}
	return nil
}

func (r *repository) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM asset_events WHERE asset_id=$1`, id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM fixed_assets WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrAssetNotFound
		}
		return nil
	})
}

const eventColumns = `id, asset_id, type, date, amount, counter_account_id, entry_id, notes, created_at, updated_at`

func (r *repository) ListEvents(ctx context.Context, assetID uuid.UUID) ([]Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM asset_events WHERE asset_id=$1 ORDER BY date ASC, created_at ASC`, assetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *repository) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	ev, err := scanEvent(r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM asset_events WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, err
	}
	return ev, nil
}

func (r *repository) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	_, err := r.db.Exec(ctx, `INSERT INTO asset_events (id, asset_id, type, date, amount, counter_account_id, entry_id, notes, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		ev.ID, ev.AssetID, ev.Type, ev.Date, ev.Amount, ev.CounterAccountID, ev.EntryID, ev.Notes, ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}

func (r *repository) UpdateEvent(ctx context.Context, ev Event) error {
	cmd, err := r.db.Exec(ctx, `UPDATE asset_events SET type=$2, date=$3, amount=$4, counter_account_id=$5, entry_id=$6, notes=$7, updated_at=NOW()
WHERE id=$1`, ev.ID, ev.Type, ev.Date, ev.Amount, ev.CounterAccountID, ev.EntryID, ev.Notes)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM asset_events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func scanAsset(row pgx.Row) (Asset, error) {
	var a Asset
	err := row.Scan(&a.ID, &a.Name, &a.Category, &a.Intangible, &a.AccountID, &a.ContraAccountID, &a.OriginType,
		&a.ServiceDate, &a.OriginalValue, &a.ResidualPct, &a.Method, &a.LifeYears, &a.LifeMonths, &a.TotalUnits,
		&a.UnitsUsed, &a.Status, &a.DisposalDate, &a.DisposalValue, &a.AdjustsByInflation, &a.Acquisition,
		&a.Opening, &a.Refs, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Asset{}, err
	}
	return a, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var ev Event
	err := row.Scan(&ev.ID, &ev.AssetID, &ev.Type, &ev.Date, &ev.Amount, &ev.CounterAccountID, &ev.EntryID,
		&ev.Notes, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
