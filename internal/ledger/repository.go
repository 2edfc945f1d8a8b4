package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sigecon/sigecon/internal/platform/db"
)

// Store abstracts the ledger for the engine modules. Production code uses
// the pgx repository below; tests substitute in-memory fakes.
type Store interface {
	GetAccounts(ctx context.Context) ([]Account, error)
	CreateAccount(ctx context.Context, spec AccountSpec) (Account, error)
	GenerateNextCode(ctx context.Context, parentID int64) (string, error)

	CreateEntry(ctx context.Context, draft EntryDraft) (Entry, error)
	UpdateEntry(ctx context.Context, id int64, draft EntryDraft) error
	GetEntry(ctx context.Context, id int64) (Entry, error)
	DeleteEntry(ctx context.Context, id int64) error
	// FindBySource resolves the live entry for a composite source key.
	FindBySource(ctx context.Context, key SourceKey) (Entry, error)
	// QueryBySource lists entries for a module/kind/entity regardless of
	// period. Used for reconciliation reports and cascade deletes.
	QueryBySource(ctx context.Context, module, kind, entityID string) ([]Entry, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns the PostgreSQL-backed ledger store.
func NewRepository(db *pgxpool.Pool) Store {
	return &repository{db: db}
}

func (r *repository) GetAccounts(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, type, parent_id, is_header, is_active, created_at, updated_at
FROM accounts ORDER BY code ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Header, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) CreateAccount(ctx context.Context, spec AccountSpec) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, is_header, is_active)
VALUES ($1,$2,$3,$4,$5,TRUE) RETURNING id, created_at, updated_at`, spec.Code, spec.Name, spec.Type, spec.ParentID, spec.Header)
	account := Account{
		Code:     spec.Code,
		Name:     spec.Name,
		Type:     spec.Type,
		ParentID: spec.ParentID,
		Header:   spec.Header,
		IsActive: true,
	}
	if err := row.Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return Account{}, err
	}
	return account, nil
}

// GenerateNextCode derives the next child code under a parent account by
// incrementing the highest numeric suffix among existing children.
func (r *repository) GenerateNextCode(ctx context.Context, parentID int64) (string, error) {
	var parentCode string
	err := r.db.QueryRow(ctx, `SELECT code FROM accounts WHERE id=$1`, parentID).Scan(&parentCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	rows, err := r.db.Query(ctx, `SELECT code FROM accounts WHERE parent_id=$1`, parentID)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	max := 0
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return "", err
		}
		if n, ok := codeSuffix(parentCode, code); ok && n > max {
			max = n
		}
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%02d", parentCode, max+1), nil
}

func codeSuffix(parentCode, code string) (int, bool) {
	rest, ok := strings.CutPrefix(code, parentCode+".")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (r *repository) CreateEntry(ctx context.Context, draft EntryDraft) (Entry, error) {
	if err := draft.Validate(); err != nil {
		return Entry{}, err
	}
	var entry Entry
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO journal_entries (date, memo, source_module, source_kind, source_entity, source_period)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, number, created_at, updated_at`,
			draft.Date, draft.Memo, draft.Source.Module, draft.Source.Kind, draft.Source.EntityID, draft.Source.Period)
		entry = Entry{Date: draft.Date, Memo: draft.Memo, Source: draft.Source}
		if err := row.Scan(&entry.ID, &entry.Number, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return err
		}
		if err := insertLines(ctx, tx, entry.ID, draft.Lines); err != nil {
			return err
		}
		entry.Lines = toLines(entry.ID, draft.Lines)
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// UpdateEntry rewrites an entry in place: header fields are updated and
// the full line set is replaced.
func (r *repository) UpdateEntry(ctx context.Context, id int64, draft EntryDraft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `UPDATE journal_entries SET date=$2, memo=$3, source_module=$4, source_kind=$5, source_entity=$6, source_period=$7, updated_at=NOW()
WHERE id=$1`, id, draft.Date, draft.Memo, draft.Source.Module, draft.Source.Kind, draft.Source.EntityID, draft.Source.Period)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrEntryNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, id); err != nil {
			return err
		}
		return insertLines(ctx, tx, id, draft.Lines)
	})
}

func (r *repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT id, number, date, memo, source_module, source_kind, source_entity, source_period, created_at, updated_at
FROM journal_entries WHERE id=$1`, id))
	if err != nil {
		return Entry{}, err
	}
	lines, err := r.linesFor(ctx, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) DeleteEntry(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrEntryNotFound
		}
		return nil
	})
}

func (r *repository) FindBySource(ctx context.Context, key SourceKey) (Entry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT id, number, date, memo, source_module, source_kind, source_entity, source_period, created_at, updated_at
FROM journal_entries WHERE source_module=$1 AND source_kind=$2 AND source_entity=$3 AND source_period=$4
ORDER BY id ASC LIMIT 1`, key.Module, key.Kind, key.EntityID, key.Period))
	if err != nil {
		return Entry{}, err
	}
	lines, err := r.linesFor(ctx, entry.ID)
	if err != nil {
		return Entry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) QueryBySource(ctx context.Context, module, kind, entityID string) ([]Entry, error) {
	query := `SELECT id, number, date, memo, source_module, source_kind, source_entity, source_period, created_at, updated_at
FROM journal_entries WHERE source_module=$1 AND source_entity=$2`
	args := []any{module, entityID}
	if kind != "" {
		query += ` AND source_kind=$3`
		args = append(args, kind)
	}
	query += ` ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Number, &e.Date, &e.Memo, &e.Source.Module, &e.Source.Kind, &e.Source.EntityID, &e.Source.Period, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range entries {
		lines, err := r.linesFor(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Lines = lines
	}
	return entries, nil
}

func (r *repository) linesFor(ctx context.Context, entryID int64) ([]Line, error) {
	rows, err := r.db.Query(ctx, `SELECT id, entry_id, account_id, debit, credit FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []Line
	for rows.Next() {
		var line Line
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Number, &e.Date, &e.Memo, &e.Source.Module, &e.Source.Kind, &e.Source.EntityID, &e.Source.Period, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

func insertLines(ctx context.Context, tx pgx.Tx, entryID int64, lines []DraftLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4)`, entryID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit)); err != nil {
			return err
		}
	}
	return nil
}

func toLines(entryID int64, lines []DraftLine) []Line {
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, Line{EntryID: entryID, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	return out
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
