package fixedassets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sigecon/sigecon/internal/ledger"
	"github.com/sigecon/sigecon/internal/shared"
)

// Repository abstracts asset and event persistence.
type Repository interface {
	ListAssets(ctx context.Context) ([]Asset, error)
	GetAsset(ctx context.Context, id uuid.UUID) (Asset, error)
	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	UpdateAsset(ctx context.Context, a Asset) error
	DeleteAsset(ctx context.Context, id uuid.UUID) error

	ListEvents(ctx context.Context, assetID uuid.UUID) ([]Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (Event, error)
	CreateEvent(ctx context.Context, ev Event) (Event, error)
	UpdateEvent(ctx context.Context, ev Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

// AuditPort records mutations for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts entry sync outcomes.
type MetricsPort interface {
	ObserveEntrySync(kind, status string)
}

// ErrEventLocked indicates an edit to an event whose journal entry has
// already been generated; only notes stay editable.
var ErrEventLocked = errors.New("fixedassets: event locked by generated entry")

// Service coordinates asset CRUD, depreciation calculation, and
// idempotent journal synchronisation.
type Service struct {
	repo     Repository
	ledger   ledger.Store
	resolver Resolver
	indices  IndexSource
	audit    AuditPort
	metrics  MetricsPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the fixed-assets service.
func NewService(repo Repository, store ledger.Store, resolver Resolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, ledger: store, resolver: resolver, logger: logger, now: time.Now}
}

// WithAudit attaches an audit sink.
func (s *Service) WithAudit(audit AuditPort) *Service {
	s.audit = audit
	return s
}

// WithMetrics attaches sync counters.
func (s *Service) WithMetrics(metrics MetricsPort) *Service {
	s.metrics = metrics
	return s
}

// WithIndexSource attaches the inflation index provider.
func (s *Service) WithIndexSource(src IndexSource) *Service {
	s.indices = src
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// ListAssets returns every asset.
func (s *Service) ListAssets(ctx context.Context) ([]Asset, error) {
	return s.repo.ListAssets(ctx)
}

// GetAsset returns one asset by ID.
func (s *Service) GetAsset(ctx context.Context, id uuid.UUID) (Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

// CreateAsset persists a new asset. For OPENING-origin assets the
// opening entry is attempted immediately; a failure there is
// non-critical and only logged, the asset is created regardless.
func (s *Service) CreateAsset(ctx context.Context, a Asset) (Asset, error) {
	if err := validateAsset(a); err != nil {
		return Asset{}, err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt

	created, err := s.repo.CreateAsset(ctx, a)
	if err != nil {
		return Asset{}, err
	}
	s.record(ctx, "asset.create", created.ID.String(), map[string]any{"name": created.Name, "origin": string(created.OriginType)})

	if created.OriginType == OriginOpening {
		fiscalYear := created.ServiceDate.Year()
		if created.Opening != nil && created.Opening.ImportYear > 0 {
			fiscalYear = created.Opening.ImportYear
		}
		if _, err := s.SyncOpening(ctx, created.ID, fiscalYear); err != nil {
			s.logger.Warn("opening entry sync failed after asset create",
				slog.String("asset_id", created.ID.String()), slog.Any("error", err))
		}
	}
	return s.repo.GetAsset(ctx, created.ID)
}

// UpdateAsset persists classification/value edits to an existing asset.
func (s *Service) UpdateAsset(ctx context.Context, a Asset) (Asset, error) {
	if err := validateAsset(a); err != nil {
		return Asset{}, err
	}
	current, err := s.repo.GetAsset(ctx, a.ID)
	if err != nil {
		return Asset{}, err
	}
	a.Refs = current.Refs // back-references belong to the sync layer
	a.CreatedAt = current.CreatedAt
	a.UpdatedAt = s.now()
	if err := s.repo.UpdateAsset(ctx, a); err != nil {
		return Asset{}, err
	}
	s.record(ctx, "asset.update", a.ID.String(), nil)
	return s.repo.GetAsset(ctx, a.ID)
}

// DeleteAsset removes an asset after cascading over every referencing
// journal entry and child event. All IDs are collected before any
// delete is issued; if the metadata scan for orphaned entries fails,
// deletion proceeds best-effort with the explicit back-references.
func (s *Service) DeleteAsset(ctx context.Context, id uuid.UUID) error {
	a, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	events, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return err
	}

	entryIDs := map[int64]bool{}
	for _, entryID := range []int64{a.Refs.OpeningEntryID, a.Refs.AcquisitionEntryID, a.Refs.PaymentEntryID, a.Refs.InflationEntryID} {
		if entryID != 0 {
			entryIDs[entryID] = true
		}
	}
	for _, ref := range a.Refs.Amortizations {
		if ref.EntryID != 0 {
			entryIDs[ref.EntryID] = true
		}
	}
	for _, ev := range events {
		if ev.EntryID != 0 {
			entryIDs[ev.EntryID] = true
		}
	}
	if orphans, err := s.ledger.QueryBySource(ctx, SourceModule, "", id.String()); err != nil {
		s.logger.Warn("orphan entry scan failed, deleting by back-references only",
			slog.String("asset_id", id.String()), slog.Any("error", err))
	} else {
		for _, entry := range orphans {
			entryIDs[entry.ID] = true
		}
	}

	for entryID := range entryIDs {
		if err := s.ledger.DeleteEntry(ctx, entryID); err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
			return fmt.Errorf("fixedassets: cascade delete entry %d: %w", entryID, err)
		}
	}
	for _, ev := range events {
		if err := s.repo.DeleteEvent(ctx, ev.ID); err != nil && !errors.Is(err, ErrEventNotFound) {
			return err
		}
	}
	if err := s.repo.DeleteAsset(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "asset.delete", id.String(), map[string]any{"entries": len(entryIDs), "events": len(events)})
	return nil
}

// ListEvents returns the events of one asset.
func (s *Service) ListEvents(ctx context.Context, assetID uuid.UUID) ([]Event, error) {
	return s.repo.ListEvents(ctx, assetID)
}

// CreateEvent persists a post-acquisition event.
func (s *Service) CreateEvent(ctx context.Context, ev Event) (Event, error) {
	if _, err := s.repo.GetAsset(ctx, ev.AssetID); err != nil {
		return Event{}, err
	}
	if err := validateEvent(ev); err != nil {
		return Event{}, err
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	ev.EntryID = 0
	ev.CreatedAt = s.now()
	ev.UpdatedAt = ev.CreatedAt
	created, err := s.repo.CreateEvent(ctx, ev)
	if err != nil {
		return Event{}, err
	}
	s.record(ctx, "event.create", created.ID.String(), map[string]any{"type": string(created.Type), "asset_id": created.AssetID.String()})
	return created, nil
}

// UpdateEvent persists event edits. Once the event's journal entry has
// been generated only the notes remain editable.
func (s *Service) UpdateEvent(ctx context.Context, ev Event) (Event, error) {
	current, err := s.repo.GetEvent(ctx, ev.ID)
	if err != nil {
		return Event{}, err
	}
	if current.EntryID != 0 {
		if ev.Type != current.Type || !ev.Date.Equal(current.Date) || ev.Amount != current.Amount || ev.CounterAccountID != current.CounterAccountID {
			return Event{}, ErrEventLocked
		}
	}
	if err := validateEvent(ev); err != nil {
		return Event{}, err
	}
	ev.AssetID = current.AssetID
	ev.EntryID = current.EntryID
	ev.CreatedAt = current.CreatedAt
	ev.UpdatedAt = s.now()
	if err := s.repo.UpdateEvent(ctx, ev); err != nil {
		return Event{}, err
	}
	return s.repo.GetEvent(ctx, ev.ID)
}

// DeleteEvent removes an event and its generated entry, if any.
func (s *Service) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	ev, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if ev.EntryID != 0 {
		if err := s.ledger.DeleteEntry(ctx, ev.EntryID); err != nil && !errors.Is(err, ledger.ErrEntryNotFound) {
			return err
		}
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "event.delete", id.String(), nil)
	return nil
}

// Depreciation returns the base calculation for one fiscal year.
func (s *Service) Depreciation(ctx context.Context, assetID uuid.UUID, fiscalYear int) (Calculation, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return Calculation{}, err
	}
	return Calculate(a, fiscalYear), nil
}

// DepreciationWithEvents returns the consolidated calculation with
// improvement components folded in.
func (s *Service) DepreciationWithEvents(ctx context.Context, assetID uuid.UUID, fiscalYear int) (CalculationWithEvents, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return CalculationWithEvents{}, err
	}
	events, err := s.repo.ListEvents(ctx, assetID)
	if err != nil {
		return CalculationWithEvents{}, err
	}
	return CalculateWithEvents(a, fiscalYear, events), nil
}

// DepreciationToDate returns the point-in-time calculation at an
// arbitrary as-of date.
func (s *Service) DepreciationToDate(ctx context.Context, assetID uuid.UUID, asOf time.Time) (CalculationWithEvents, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return CalculationWithEvents{}, err
	}
	events, err := s.repo.ListEvents(ctx, assetID)
	if err != nil {
		return CalculationWithEvents{}, err
	}
	return CalculateToDateWithEvents(a, asOf, events), nil
}

// Schedule returns the year-by-year depreciation table.
func (s *Service) Schedule(ctx context.Context, assetID uuid.UUID) ([]ScheduleRow, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return AnnualSchedule(a, events), nil
}

// ScheduleMonthly returns the month-by-month table for one fiscal year.
func (s *Service) ScheduleMonthly(ctx context.Context, assetID uuid.UUID, fiscalYear int) ([]MonthlyRow, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return MonthlySchedule(a, events, fiscalYear), nil
}

// Reconciliation compares accrued depreciation with the amortization
// entries actually posted for the asset.
func (s *Service) Reconciliation(ctx context.Context, assetID uuid.UUID, fiscalYear int) (Reconciliation, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return Reconciliation{}, err
	}
	events, err := s.repo.ListEvents(ctx, assetID)
	if err != nil {
		return Reconciliation{}, err
	}
	entries, err := s.ledger.QueryBySource(ctx, SourceModule, string(KindAmortization), assetID.String())
	if err != nil {
		return Reconciliation{}, err
	}
	return Reconcile(a, events, entries, fiscalYear), nil
}

func validateAsset(a Asset) error {
	if a.Name == "" {
		return errors.New("fixedassets: asset name required")
	}
	if a.OriginalValue < 0 {
		return ErrInvalidAmount
	}
	if a.ResidualPct < 0 || a.ResidualPct > 100 {
		return errors.New("fixedassets: residual percentage out of range")
	}
	switch a.OriginType {
	case OriginPurchase, OriginOpening:
	default:
		return fmt.Errorf("fixedassets: unknown origin type %q", a.OriginType)
	}
	switch a.Method {
	case MethodAnnual, MethodMonthly, MethodUnits, MethodNone:
	default:
		return fmt.Errorf("fixedassets: unknown method %q", a.Method)
	}
	return nil
}

func validateEvent(ev Event) error {
	switch ev.Type {
	case EventImprovement, EventDisposal, EventRevaluation, EventDamage:
	default:
		return fmt.Errorf("fixedassets: unknown event type %q", ev.Type)
	}
	if ev.Date.IsZero() {
		return errors.New("fixedassets: event date required")
	}
	if ev.Type != EventRevaluation && ev.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s *Service) record(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "fixed_asset",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
