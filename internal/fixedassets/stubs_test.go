package fixedassets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sigecon/sigecon/internal/ledger"
)

// stubStore is an in-memory ledger.Store used across the package tests.
type stubStore struct {
	accounts    []ledger.Account
	entries     map[int64]ledger.Entry
	nextEntryID int64
	nextAccID   int64

	findBySourceErr error
}

func newStubStore(accounts []ledger.Account) *stubStore {
	var maxID int64
	for _, a := range accounts {
		if a.ID > maxID {
			maxID = a.ID
		}
	}
	return &stubStore{
		accounts:  append([]ledger.Account(nil), accounts...),
		entries:   map[int64]ledger.Entry{},
		nextAccID: maxID,
	}
}

func (s *stubStore) GetAccounts(ctx context.Context) ([]ledger.Account, error) {
	return append([]ledger.Account(nil), s.accounts...), nil
}

func (s *stubStore) CreateAccount(ctx context.Context, spec ledger.AccountSpec) (ledger.Account, error) {
	s.nextAccID++
	acc := ledger.Account{
		ID:       s.nextAccID,
		Code:     spec.Code,
		Name:     spec.Name,
		Type:     spec.Type,
		ParentID: spec.ParentID,
		Header:   spec.Header,
		IsActive: true,
	}
	s.accounts = append(s.accounts, acc)
	return acc, nil
}

func (s *stubStore) GenerateNextCode(ctx context.Context, parentID int64) (string, error) {
	var parent *ledger.Account
	for i := range s.accounts {
		if s.accounts[i].ID == parentID {
			parent = &s.accounts[i]
			break
		}
	}
	if parent == nil {
		return "", ledger.ErrAccountNotFound
	}
	children := 0
	for _, a := range s.accounts {
		if a.ParentID != nil && *a.ParentID == parentID {
			children++
		}
	}
	return fmt.Sprintf("%s.%02d", parent.Code, children+1), nil
}

func (s *stubStore) CreateEntry(ctx context.Context, draft ledger.EntryDraft) (ledger.Entry, error) {
	if err := draft.Validate(); err != nil {
		return ledger.Entry{}, err
	}
	s.nextEntryID++
	entry := ledger.Entry{
		ID:     s.nextEntryID,
		Number: s.nextEntryID,
		Date:   draft.Date,
		Memo:   draft.Memo,
		Source: draft.Source,
	}
	for _, line := range draft.Lines {
		entry.Lines = append(entry.Lines, ledger.Line{EntryID: entry.ID, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *stubStore) UpdateEntry(ctx context.Context, id int64, draft ledger.EntryDraft) error {
	if err := draft.Validate(); err != nil {
		return err
	}
	entry, ok := s.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	entry.Date = draft.Date
	entry.Memo = draft.Memo
	entry.Source = draft.Source
	entry.Lines = nil
	for _, line := range draft.Lines {
		entry.Lines = append(entry.Lines, ledger.Line{EntryID: id, AccountID: line.AccountID, Debit: line.Debit, Credit: line.Credit})
	}
	s.entries[id] = entry
	return nil
}

func (s *stubStore) GetEntry(ctx context.Context, id int64) (ledger.Entry, error) {
	entry, ok := s.entries[id]
	if !ok {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	return entry, nil
}

func (s *stubStore) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := s.entries[id]; !ok {
		return ledger.ErrEntryNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *stubStore) FindBySource(ctx context.Context, key ledger.SourceKey) (ledger.Entry, error) {
	if s.findBySourceErr != nil {
		return ledger.Entry{}, s.findBySourceErr
	}
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if s.entries[id].Source == key {
			return s.entries[id], nil
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

func (s *stubStore) QueryBySource(ctx context.Context, module, kind, entityID string) ([]ledger.Entry, error) {
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []ledger.Entry
	for _, id := range ids {
		entry := s.entries[id]
		if entry.Source.Module != module || entry.Source.EntityID != entityID {
			continue
		}
		if kind != "" && entry.Source.Kind != kind {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// stubRepo is an in-memory asset/event Repository.
type stubRepo struct {
	assets map[uuid.UUID]Asset
	events map[uuid.UUID]Event
}

func newStubRepo() *stubRepo {
	return &stubRepo{assets: map[uuid.UUID]Asset{}, events: map[uuid.UUID]Event{}}
}

func (r *stubRepo) ListAssets(ctx context.Context) ([]Asset, error) {
	out := make([]Asset, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *stubRepo) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	a, ok := r.assets[id]
	if !ok {
		return Asset{}, ErrAssetNotFound
	}
	return a, nil
}

func (r *stubRepo) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	r.assets[a.ID] = a
	return a, nil
}

func (r *stubRepo) UpdateAsset(ctx context.Context, a Asset) error {
	if _, ok := r.assets[a.ID]; !ok {
		return ErrAssetNotFound
	}
	r.assets[a.ID] = a
	return nil
}

func (r *stubRepo) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.assets[id]; !ok {
		return ErrAssetNotFound
	}
	delete(r.assets, id)
	for evID, ev := range r.events {
		if ev.AssetID == id {
			delete(r.events, evID)
		}
	}
	return nil
}

func (r *stubRepo) ListEvents(ctx context.Context, assetID uuid.UUID) ([]Event, error) {
	var out []Event
	for _, ev := range r.events {
		if ev.AssetID == assetID {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *stubRepo) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	ev, ok := r.events[id]
	if !ok {
		return Event{}, ErrEventNotFound
	}
	return ev, nil
}

func (r *stubRepo) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	r.events[ev.ID] = ev
	return ev, nil
}

func (r *stubRepo) UpdateEvent(ctx context.Context, ev Event) error {
	if _, ok := r.events[ev.ID]; !ok {
		return ErrEventNotFound
	}
	r.events[ev.ID] = ev
	return nil
}

func (r *stubRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(r.events, id)
	return nil
}

// stubIndices serves a fixed index series.
type stubIndices map[string]float64

func (s stubIndices) Indices(ctx context.Context) (map[string]float64, error) {
	return s, nil
}

// Well-known account IDs used by the test chart.
const (
	accRodados      int64 = 10
	accContra       int64 = 11
	accPayables     int64 = 20
	accRetentions   int64 = 21
	accVATCredit    int64 = 30
	accBank         int64 = 35
	accAmortExpense int64 = 40
	accDamage       int64 = 41
	accDiscounts    int64 = 45
	accDisposal     int64 = 50
	accRetained     int64 = 60
	accApertura     int64 = 61
	accReserve      int64 = 70
	accRECPAM       int64 = 80
)

func testChart() []ledger.Account {
	return []ledger.Account{
		{ID: accRodados, Code: "1.2.01", Name: "Rodados", Type: ledger.AccountTypeAsset},
		{ID: accContra, Code: "1.2.91", Name: "Amortización Acumulada Rodados", Type: ledger.AccountTypeAsset},
		{ID: accPayables, Code: "2.1.02", Name: "Acreedores Varios", Type: ledger.AccountTypeLiability},
		{ID: accRetentions, Code: "2.1.05", Name: "Retenciones a Depositar", Type: ledger.AccountTypeLiability},
		{ID: accVATCredit, Code: "1.1.05", Name: "IVA Crédito Fiscal", Type: ledger.AccountTypeAsset},
		{ID: accBank, Code: "1.1.02", Name: "Banco Nación c/c", Type: ledger.AccountTypeAsset},
		{ID: accAmortExpense, Code: "5.1.10", Name: "Amortizaciones", Type: ledger.AccountTypeExpense},
		{ID: accDamage, Code: "5.1.20", Name: "Pérdidas por Siniestros", Type: ledger.AccountTypeExpense},
		{ID: accDiscounts, Code: "4.2.01", Name: "Descuentos Obtenidos", Type: ledger.AccountTypeRevenue},
		{ID: accDisposal, Code: "4.3.01", Name: "Resultado Venta Bienes de Uso", Type: ledger.AccountTypeRevenue},
		{ID: accRetained, Code: "3.2.01", Name: "Resultados Acumulados", Type: ledger.AccountTypeEquity},
		{ID: accApertura, Code: "3.2.02", Name: "Saldos de Apertura", Type: ledger.AccountTypeEquity},
		{ID: accReserve, Code: "3.3.01", Name: "Reserva por Revalúo", Type: ledger.AccountTypeEquity},
		{ID: accRECPAM, Code: "4.4.01", Name: "RECPAM", Type: ledger.AccountTypeRevenue},
	}
}

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func newTestService(store *stubStore, repo *stubRepo) *Service {
	logger := slog.New(slog.DiscardHandler)
	return NewService(repo, store, NewResolver(store, nil), logger)
}

func newTestBuilder(store *stubStore) *Builder {
	return NewBuilder(store.accounts, NewResolver(store, nil))
}
