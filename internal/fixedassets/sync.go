package fixedassets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sigecon/sigecon/internal/ledger"
	"github.com/sigecon/sigecon/internal/shared"
)

// SyncStatus reports what a sync operation did.
type SyncStatus string

const (
	SyncCreated SyncStatus = "created"
	SyncUpdated SyncStatus = "updated"
	SyncSkipped SyncStatus = "skipped"
)

// SyncResult is the outcome of one idempotent entry sync. A skipped
// result is not a failure: it means the entry does not apply to the
// record by design (no payment splits, purchase-origin asset with no
// opening, nothing accrued).
type SyncResult struct {
	Status  SyncStatus
	EntryID int64
	Reason  string
}

// IndexSource supplies inflation index values keyed by period.
type IndexSource interface {
	Indices(ctx context.Context) (map[string]float64, error)
}

// syncEntry is the idempotency core shared by every entry kind: build
// the draft, locate any previously generated entry (stored
// back-reference first, then the composite source key, then a linear
// scan as the degraded path) and update it in place, or create a new
// entry. At most one live entry exists per source key regardless of how
// many times this runs.
func (s *Service) syncEntry(ctx context.Context, refID int64, build func() (*ledger.EntryDraft, error)) (SyncResult, error) {
	draft, err := build()
	if err != nil {
		if errors.Is(err, ErrNothingToPost) {
			return SyncResult{Status: SyncSkipped, Reason: "nothing to post"}, nil
		}
		return SyncResult{}, err
	}

	if refID != 0 {
		if _, err := s.ledger.GetEntry(ctx, refID); err == nil {
			if err := s.ledger.UpdateEntry(ctx, refID, *draft); err != nil {
				return SyncResult{}, err
			}
			return SyncResult{Status: SyncUpdated, EntryID: refID}, nil
		} else if !errors.Is(err, ledger.ErrEntryNotFound) {
			return SyncResult{}, err
		}
		// stale reference: fall through to the source-key lookup
	}

	existing, err := s.findBySource(ctx, draft.Source)
	if err != nil {
		return SyncResult{}, err
	}
	if existing != nil {
		if err := s.ledger.UpdateEntry(ctx, existing.ID, *draft); err != nil {
			return SyncResult{}, err
		}
		return SyncResult{Status: SyncUpdated, EntryID: existing.ID}, nil
	}

	created, err := s.ledger.CreateEntry(ctx, *draft)
	if err != nil {
		return SyncResult{}, err
	}
	return SyncResult{Status: SyncCreated, EntryID: created.ID}, nil
}

func (s *Service) findBySource(ctx context.Context, key ledger.SourceKey) (*ledger.Entry, error) {
	entry, err := s.ledger.FindBySource(ctx, key)
	if err == nil {
		return &entry, nil
	}
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return nil, nil
	}
	// Degraded path: the indexed lookup failed, scan by entity instead.
	entries, scanErr := s.ledger.QueryBySource(ctx, key.Module, key.Kind, key.EntityID)
	if scanErr != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Source.Period == key.Period {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// SyncAcquisition keeps the accrual entry aligned with the asset's
// acquisition data.
func (s *Service) SyncAcquisition(ctx context.Context, assetID uuid.UUID) (SyncResult, error) {
	a, builder, err := s.loadForSync(ctx, assetID)
	if err != nil {
		return SyncResult{}, err
	}
	if a.Acquisition == nil {
		return s.observe(KindAcquisition, SyncResult{Status: SyncSkipped, Reason: "no acquisition data"}), nil
	}
	result, err := s.syncEntry(ctx, a.Refs.AcquisitionEntryID, func() (*ledger.EntryDraft, error) {
		return builder.BuildAcquisition(ctx, a)
	})
	if err != nil {
		return s.observeErr(KindAcquisition, err)
	}
	if result.EntryID != 0 && result.EntryID != a.Refs.AcquisitionEntryID {
		a.Refs.AcquisitionEntryID = result.EntryID
		if err := s.repo.UpdateAsset(ctx, a); err != nil {
			return SyncResult{}, err
		}
	}
	return s.observe(KindAcquisition, result), nil
}

// SyncPayment keeps the settlement entry aligned with the payment
// splits. Assets paid on account (no splits) are skipped, not failed.
func (s *Service) SyncPayment(ctx context.Context, assetID uuid.UUID) (SyncResult, error) {
	a, builder, err := s.loadForSync(ctx, assetID)
	if err != nil {
		return SyncResult{}, err
	}
	result, err := s.syncEntry(ctx, a.Refs.PaymentEntryID, func() (*ledger.EntryDraft, error) {
		return builder.BuildPayment(ctx, a)
	})
	if err != nil {
		return s.observeErr(KindPayment, err)
	}
	if result.EntryID != 0 && result.EntryID != a.Refs.PaymentEntryID {
		a.Refs.PaymentEntryID = result.EntryID
		if err := s.repo.UpdateAsset(ctx, a); err != nil {
			return SyncResult{}, err
		}
	}
	return s.observe(KindPayment, result), nil
}

// SyncOpening keeps the carry-over entry aligned for OPENING-origin
// assets. Purchase-origin assets with acquisition data have no opening
// entry by design and report skipped.
func (s *Service) SyncOpening(ctx context.Context, assetID uuid.UUID, fiscalYear int) (SyncResult, error) {
	a, builder, err := s.loadForSync(ctx, assetID)
	if err != nil {
		return SyncResult{}, err
	}
	if a.OriginType == OriginPurchase && a.Acquisition != nil {
		return s.observe(KindOpening, SyncResult{Status: SyncSkipped, Reason: "purchase origin"}), nil
	}
	result, err := s.syncEntry(ctx, a.Refs.OpeningEntryID, func() (*ledger.EntryDraft, error) {
		return builder.BuildOpening(ctx, a, fiscalYear)
	})
	if err != nil {
		return s.observeErr(KindOpening, err)
	}
	if result.EntryID != 0 && result.EntryID != a.Refs.OpeningEntryID {
		a.Refs.OpeningEntryID = result.EntryID
		if err := s.repo.UpdateAsset(ctx, a); err != nil {
			return SyncResult{}, err
		}
	}
	return s.observe(KindOpening, result), nil
}

// SyncAmortization keeps one period's depreciation entry aligned.
// month zero syncs the annual entry, otherwise the given month.
func (s *Service) SyncAmortization(ctx context.Context, assetID uuid.UUID, fiscalYear int, month time.Month) (SyncResult, error) {
	a, builder, err := s.loadForSync(ctx, assetID)
	if err != nil {
		return SyncResult{}, err
	}
	events, err := s.repo.ListEvents(ctx, a.ID)
	if err != nil {
		return SyncResult{}, err
	}
	period := shared.AnnualKey(fiscalYear)
	if month != 0 {
		period = shared.MonthlyKey(fiscalYear, month)
	}
	refID := a.Refs.AmortizationEntry(period)
	result, err := s.syncEntry(ctx, refID, func() (*ledger.EntryDraft, error) {
		return builder.BuildAmortization(a, events, fiscalYear, month)
	})
	if err != nil {
		return s.observeErr(KindAmortization, err)
	}
	if result.EntryID != 0 && result.EntryID != refID {
		patched := false
		for i := range a.Refs.Amortizations {
			if a.Refs.Amortizations[i].Period == period {
				a.Refs.Amortizations[i].EntryID = result.EntryID
				patched = true
				break
			}
		}
		if !patched {
			a.Refs.Amortizations = append(a.Refs.Amortizations, AmortizationRef{Period: period, EntryID: result.EntryID})
		}
		if err := s.repo.UpdateAsset(ctx, a); err != nil {
			return SyncResult{}, err
		}
	}
	return s.observe(KindAmortization, result), nil
}

// SyncEventEntry keeps the journal entry of one event aligned and
// writes the entry ID back onto the event.
func (s *Service) SyncEventEntry(ctx context.Context, eventID uuid.UUID) (SyncResult, error) {
	ev, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return SyncResult{}, err
	}
	a, builder, err := s.loadForSync(ctx, ev.AssetID)
	if err != nil {
		return SyncResult{}, err
	}
	events, err := s.repo.ListEvents(ctx, a.ID)
	if err != nil {
		return SyncResult{}, err
	}
	kind := eventEntryKind(ev.Type)
	result, err := s.syncEntry(ctx, ev.EntryID, func() (*ledger.EntryDraft, error) {
		return builder.BuildEventEntry(a, ev, events)
	})
	if err != nil {
		return s.observeErr(kind, err)
	}
	if result.EntryID != 0 && result.EntryID != ev.EntryID {
		ev.EntryID = result.EntryID
		if err := s.repo.UpdateEvent(ctx, ev); err != nil {
			return SyncResult{}, err
		}
	}
	return s.observe(kind, result), nil
}

// SyncInflation keeps the RT6 restatement entry aligned. Assets not
// flagged for inflation adjustment report skipped.
func (s *Service) SyncInflation(ctx context.Context, assetID uuid.UUID, fiscalYear int) (SyncResult, error) {
	a, builder, err := s.loadForSync(ctx, assetID)
	if err != nil {
		return SyncResult{}, err
	}
	if !a.AdjustsByInflation {
		return s.observe(KindInflation, SyncResult{Status: SyncSkipped, Reason: "inflation adjustment disabled"}), nil
	}
	if s.indices == nil {
		return SyncResult{}, fmt.Errorf("%w: no index source configured", ErrMissingIndices)
	}
	indices, err := s.indices.Indices(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	origin := shared.MonthlyKey(a.ServiceDate.Year(), a.ServiceDate.Month())
	closing := shared.MonthlyKey(fiscalYear, time.December)
	result, err := s.syncEntry(ctx, a.Refs.InflationEntryID, func() (*ledger.EntryDraft, error) {
		return builder.BuildInflation(a, indices, origin, closing)
	})
	if err != nil {
		return s.observeErr(KindInflation, err)
	}
	if result.EntryID != 0 && result.EntryID != a.Refs.InflationEntryID {
		a.Refs.InflationEntryID = result.EntryID
		if err := s.repo.UpdateAsset(ctx, a); err != nil {
			return SyncResult{}, err
		}
	}
	return s.observe(KindInflation, result), nil
}

func eventEntryKind(t EventType) EntryKind {
	switch t {
	case EventImprovement:
		return KindImprovement
	case EventDisposal:
		return KindDisposal
	case EventRevaluation:
		return KindRevaluation
	case EventDamage:
		return KindDamage
	default:
		return EntryKind(string(t))
	}
}

// loadForSync fetches the asset and a builder over a fresh chart
// snapshot. Every sync re-reads accounts: charts are small and the
// resolver may have minted accounts since the last call.
func (s *Service) loadForSync(ctx context.Context, assetID uuid.UUID) (Asset, *Builder, error) {
	a, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return Asset{}, nil, err
	}
	accounts, err := s.ledger.GetAccounts(ctx)
	if err != nil {
		return Asset{}, nil, err
	}
	return a, NewBuilder(accounts, s.resolver), nil
}

func (s *Service) observe(kind EntryKind, result SyncResult) SyncResult {
	if s.metrics != nil {
		s.metrics.ObserveEntrySync(string(kind), string(result.Status))
	}
	return result
}

func (s *Service) observeErr(kind EntryKind, err error) (SyncResult, error) {
	if s.metrics != nil {
		s.metrics.ObserveEntrySync(string(kind), "failed")
	}
	return SyncResult{}, err
}
