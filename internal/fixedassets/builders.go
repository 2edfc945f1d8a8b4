package fixedassets

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sigecon/sigecon/internal/ledger"
	"github.com/sigecon/sigecon/internal/shared"
)

// Builder synthesises balanced journal-entry drafts from asset state.
// It works against a snapshot of the chart of accounts; the only writes
// it may perform are the resolver's narrow account-creation paths
// (opening equity, per-counterparty payables).
//
// Every builder returns either a draft or an error. Validation problems
// (missing accounts, unbalanced invoices) are errors, never panics, and
// ErrNothingToPost signals that the computed entry would be empty. No
// draft leaves a builder unbalanced: each one is validated after
// 2-decimal rounding.
type Builder struct {
	accounts []ledger.Account
	resolver Resolver
}

// NewBuilder wraps a chart snapshot for entry synthesis.
func NewBuilder(accounts []ledger.Account, resolver Resolver) *Builder {
	return &Builder{accounts: accounts, resolver: resolver}
}

func (b *Builder) sourceKey(kind EntryKind, entityID, period string) ledger.SourceKey {
	return ledger.SourceKey{Module: SourceModule, Kind: string(kind), EntityID: entityID, Period: period}
}

func (b *Builder) resolve(q Lookup, label string) (*ledger.Account, error) {
	if acc := b.resolver.FindAccount(b.accounts, q); acc != nil {
		return acc, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrAccountResolution, label)
}

func debit(accountID int64, amount float64) ledger.DraftLine {
	return ledger.DraftLine{AccountID: accountID, Debit: Round2(amount)}
}

func credit(accountID int64, amount float64) ledger.DraftLine {
	return ledger.DraftLine{AccountID: accountID, Credit: Round2(amount)}
}

func finishDraft(draft *ledger.EntryDraft) (*ledger.EntryDraft, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	return draft, nil
}

// BuildAcquisition composes the accrual entry for a purchased asset:
// asset (and discriminated VAT credit and perceptions) against the
// resolved payables account.
func (b *Builder) BuildAcquisition(ctx context.Context, a Asset) (*ledger.EntryDraft, error) {
	acq := a.Acquisition
	if acq == nil {
		return nil, ErrNothingToPost
	}
	if a.AccountID == 0 {
		return nil, ErrMissingAssetAccount
	}
	if acq.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	payable, err := b.resolver.PayableAccount(ctx, b.accounts, acq.Counterparty)
	if err != nil {
		return nil, err
	}

	date := acq.Date
	if date.IsZero() {
		date = a.ServiceDate
	}
	draft := &ledger.EntryDraft{
		Date:   date,
		Memo:   fmt.Sprintf("Compra %s", a.Name),
		Source: b.sourceKey(KindAcquisition, a.ID.String(), ""),
	}

	// When the invoice does not discriminate VAT the full amount
	// capitalises into the asset.
	assetAmount := acq.TotalAmount
	if acq.VATDiscriminated && acq.NetAmount > 0 {
		assetAmount = acq.NetAmount
	}
	draft.Lines = append(draft.Lines, debit(a.AccountID, assetAmount))

	if acq.VATDiscriminated && acq.VATAmount > AmountTolerance {
		vat, err := b.resolve(lookupVATCredit, "iva credito fiscal")
		if err != nil {
			return nil, err
		}
		draft.Lines = append(draft.Lines, debit(vat.ID, acq.VATAmount))
	}

	var perceptions float64
	for _, p := range acq.Perceptions {
		if p.Amount <= AmountTolerance {
			continue
		}
		accountID := p.AccountID
		if accountID == 0 {
			vat, err := b.resolve(lookupVATCredit, "percepcion "+p.Name)
			if err != nil {
				return nil, err
			}
			accountID = vat.ID
		}
		draft.Lines = append(draft.Lines, debit(accountID, p.Amount))
		perceptions += p.Amount
	}

	draft.Lines = append(draft.Lines, credit(payable.ID, acq.TotalAmount+perceptions))
	return finishDraft(draft)
}

// BuildPayment composes the settlement entry for an acquisition paid
// immediately: payables against each payment instrument, withheld
// retentions, and any financial discount obtained. Returns
// ErrNothingToPost when there are no payment splits.
func (b *Builder) BuildPayment(ctx context.Context, a Asset) (*ledger.EntryDraft, error) {
	acq := a.Acquisition
	if acq == nil || len(acq.Splits) == 0 {
		return nil, ErrNothingToPost
	}

	payable, err := b.resolver.PayableAccount(ctx, b.accounts, acq.Counterparty)
	if err != nil {
		return nil, err
	}

	date := acq.Date
	if date.IsZero() {
		date = a.ServiceDate
	}
	draft := &ledger.EntryDraft{
		Date:   date,
		Memo:   fmt.Sprintf("Pago %s", a.Name),
		Source: b.sourceKey(KindPayment, a.ID.String(), ""),
	}

	var settled float64
	var creditLines []ledger.DraftLine
	for _, split := range acq.Splits {
		if split.AccountID == 0 {
			return nil, fmt.Errorf("%w: payment split", ErrMissingCounterAccount)
		}
		if split.Amount <= 0 {
			return nil, fmt.Errorf("%w: payment split", ErrInvalidAmount)
		}
		creditLines = append(creditLines, credit(split.AccountID, split.Amount))
		settled += split.Amount
	}
	if acq.FinancialDiscount > AmountTolerance {
		disc, err := b.resolve(lookupFinancialDiscounts, "descuentos obtenidos")
		if err != nil {
			return nil, err
		}
		creditLines = append(creditLines, credit(disc.ID, acq.FinancialDiscount))
		settled += acq.FinancialDiscount
	}
	for _, ret := range acq.Retentions {
		if ret.Amount <= AmountTolerance {
			continue
		}
		accountID := ret.AccountID
		if accountID == 0 {
			fallback, err := b.resolve(lookupRetentions, "retencion "+ret.Name)
			if err != nil {
				return nil, err
			}
			accountID = fallback.ID
		}
		creditLines = append(creditLines, credit(accountID, ret.Amount))
		settled += ret.Amount
	}

	draft.Lines = append(draft.Lines, debit(payable.ID, settled))
	draft.Lines = append(draft.Lines, creditLines...)
	return finishDraft(draft)
}

// BuildOpening composes the carry-over entry for an asset imported from
// prior books: historical cost against accumulated depreciation and the
// opening-equity account for the residual net value.
func (b *Builder) BuildOpening(ctx context.Context, a Asset, fiscalYear int) (*ledger.EntryDraft, error) {
	if a.AccountID == 0 {
		return nil, ErrMissingAssetAccount
	}
	if a.OriginalValue <= 0 {
		return nil, ErrInvalidAmount
	}

	var accumulated float64
	if a.Opening != nil && a.Opening.InitialAccumDep > 0 {
		accumulated = a.Opening.InitialAccumDep
	} else {
		accumulated = Calculate(a, fiscalYear-1).ClosingAccumulated
	}
	if accumulated > AmountTolerance && a.ContraAccountID == 0 {
		return nil, ErrMissingContraAccount
	}

	var explicitEquity int64
	if a.Opening != nil {
		explicitEquity = a.Opening.CounterAccountID
	}
	equity, err := b.resolver.OpeningEquityAccount(ctx, b.accounts, explicitEquity)
	if err != nil {
		return nil, err
	}

	draft := &ledger.EntryDraft{
		Date:   shared.YearStart(fiscalYear),
		Memo:   fmt.Sprintf("Apertura %s", a.Name),
		Source: b.sourceKey(KindOpening, a.ID.String(), ""),
	}
	draft.Lines = append(draft.Lines, debit(a.AccountID, a.OriginalValue))
	if accumulated > AmountTolerance {
		draft.Lines = append(draft.Lines, credit(a.ContraAccountID, accumulated))
	}
	if residual := a.OriginalValue - accumulated; residual > AmountTolerance {
		draft.Lines = append(draft.Lines, credit(equity.ID, residual))
	}
	return finishDraft(draft)
}

// BuildAmortization composes the periodic depreciation entry:
// amortization expense against the contra account for the period's
// quota. month zero means annual granularity; otherwise the monthly
// schedule supplies the month's share so that the twelve monthly
// entries add up to the annual quota exactly.
func (b *Builder) BuildAmortization(a Asset, events []Event, fiscalYear int, month time.Month) (*ledger.EntryDraft, error) {
	if a.ContraAccountID == 0 {
		return nil, ErrMissingContraAccount
	}
	expense, err := b.resolve(lookupAmortExpense, "amortizaciones")
	if err != nil {
		return nil, err
	}

	var amount float64
	var date time.Time
	var period string
	if month == 0 {
		amount = Round2(CalculateWithEvents(a, fiscalYear, events).PeriodQuota)
		date = shared.YearEnd(fiscalYear)
		period = shared.AnnualKey(fiscalYear)
	} else {
		for _, row := range MonthlySchedule(a, events, fiscalYear) {
			if row.Month == month {
				amount = row.Quota
				break
			}
		}
		date = time.Date(fiscalYear, month, 1, 0, 0, 0, 0, time.Local).AddDate(0, 1, -1)
		period = shared.MonthlyKey(fiscalYear, month)
	}
	if amount <= AmountTolerance {
		return nil, ErrNothingToPost
	}

	draft := &ledger.EntryDraft{
		Date:   date,
		Memo:   fmt.Sprintf("Amortización %s %s", period, a.Name),
		Source: b.sourceKey(KindAmortization, a.ID.String(), period),
	}
	draft.Lines = append(draft.Lines, debit(expense.ID, amount), credit(a.ContraAccountID, amount))
	return finishDraft(draft)
}

// BuildEventEntry composes the entry for a post-acquisition event. The
// full event list is needed for disposals, whose accumulated
// depreciation includes improvement components as of the event date.
func (b *Builder) BuildEventEntry(a Asset, ev Event, events []Event) (*ledger.EntryDraft, error) {
	if a.AccountID == 0 {
		return nil, ErrMissingAssetAccount
	}
	switch ev.Type {
	case EventImprovement:
		return b.buildImprovement(a, ev)
	case EventDisposal:
		return b.buildDisposal(a, ev, events)
	case EventRevaluation:
		return b.buildRevaluation(a, ev)
	case EventDamage:
		return b.buildDamage(a, ev)
	default:
		return nil, fmt.Errorf("fixedassets: unknown event type %q", ev.Type)
	}
}

func (b *Builder) buildImprovement(a Asset, ev Event) (*ledger.EntryDraft, error) {
	if ev.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if ev.CounterAccountID == 0 {
		return nil, ErrMissingCounterAccount
	}
	draft := &ledger.EntryDraft{
		Date:   ev.Date,
		Memo:   fmt.Sprintf("Mejora %s", a.Name),
		Source: b.sourceKey(KindImprovement, ev.ID.String(), ""),
	}
	draft.Lines = append(draft.Lines, debit(a.AccountID, ev.Amount), credit(ev.CounterAccountID, ev.Amount))
	return finishDraft(draft)
}

// buildDisposal writes the asset off its accounts at the event date:
// sale proceeds and accumulated depreciation against the full
// cost-with-improvements, with the residual posting to the disposal
// result account as a gain (credit) or loss (debit).
func (b *Builder) buildDisposal(a Asset, ev Event, events []Event) (*ledger.EntryDraft, error) {
	calc := CalculateToDateWithEvents(a, ev.Date, events)
	cost := Round2(calc.AdjustedOriginCost)
	accumulated := Round2(calc.ClosingAccumulated)
	proceeds := Round2(ev.Amount)
	if cost <= 0 {
		return nil, ErrInvalidAmount
	}

	draft := &ledger.EntryDraft{
		Date:   ev.Date,
		Memo:   fmt.Sprintf("Baja %s", a.Name),
		Source: b.sourceKey(KindDisposal, ev.ID.String(), ""),
	}
	if proceeds > AmountTolerance {
		if ev.CounterAccountID == 0 {
			return nil, ErrMissingCounterAccount
		}
		draft.Lines = append(draft.Lines, debit(ev.CounterAccountID, proceeds))
	}
	if accumulated > AmountTolerance {
		if a.ContraAccountID == 0 {
			return nil, ErrMissingContraAccount
		}
		draft.Lines = append(draft.Lines, debit(a.ContraAccountID, accumulated))
	}
	draft.Lines = append(draft.Lines, credit(a.AccountID, cost))

	if residual := Round2(proceeds + accumulated - cost); math.Abs(residual) > AmountTolerance {
		result, err := b.resolve(lookupDisposalResult, "resultado venta bienes de uso")
		if err != nil {
			return nil, err
		}
		if residual > 0 {
			draft.Lines = append(draft.Lines, credit(result.ID, residual))
		} else {
			draft.Lines = append(draft.Lines, debit(result.ID, -residual))
		}
	}
	return finishDraft(draft)
}

func (b *Builder) buildRevaluation(a Asset, ev Event) (*ledger.EntryDraft, error) {
	amount := Round2(math.Abs(ev.Amount))
	if amount <= AmountTolerance {
		return nil, ErrNothingToPost
	}
	reserveID := ev.CounterAccountID
	if reserveID == 0 {
		reserve, err := b.resolve(lookupRevaluationReserve, "reserva por revaluo")
		if err != nil {
			return nil, err
		}
		reserveID = reserve.ID
	}
	draft := &ledger.EntryDraft{
		Date:   ev.Date,
		Memo:   fmt.Sprintf("Revalúo %s", a.Name),
		Source: b.sourceKey(KindRevaluation, ev.ID.String(), ""),
	}
	if ev.Amount > 0 {
		draft.Lines = append(draft.Lines, debit(a.AccountID, amount), credit(reserveID, amount))
	} else {
		draft.Lines = append(draft.Lines, debit(reserveID, amount), credit(a.AccountID, amount))
	}
	return finishDraft(draft)
}

// buildDamage books an irreversible partial write-down straight against
// the asset account, not the contra account.
func (b *Builder) buildDamage(a Asset, ev Event) (*ledger.EntryDraft, error) {
	if ev.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	expenseID := ev.CounterAccountID
	if expenseID == 0 {
		expense, err := b.resolve(lookupDamageExpense, "perdidas por siniestros")
		if err != nil {
			return nil, err
		}
		expenseID = expense.ID
	}
	draft := &ledger.EntryDraft{
		Date:   ev.Date,
		Memo:   fmt.Sprintf("Siniestro %s", a.Name),
		Source: b.sourceKey(KindDamage, ev.ID.String(), ""),
	}
	draft.Lines = append(draft.Lines, debit(expenseID, ev.Amount), credit(a.AccountID, ev.Amount))
	return finishDraft(draft)
}

// BuildInflation composes the RT6 monetary restatement entry. indices
// maps period keys to index values; the coefficient is the closing
// period index over the origin period index.
func (b *Builder) BuildInflation(a Asset, indices map[string]float64, originPeriod, closingPeriod string) (*ledger.EntryDraft, error) {
	if a.AccountID == 0 {
		return nil, ErrMissingAssetAccount
	}
	origin, ok := indices[originPeriod]
	if !ok || origin <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingIndices, originPeriod)
	}
	closing, ok := indices[closingPeriod]
	if !ok || closing <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingIndices, closingPeriod)
	}

	coefficient := closing / origin
	adjustment := Round2(coefficient*a.OriginalValue - a.OriginalValue)
	if math.Abs(adjustment) <= AmountTolerance {
		return nil, ErrNothingToPost
	}

	recpam, err := b.resolve(lookupRECPAM, "recpam")
	if err != nil {
		return nil, err
	}

	year, _, err := shared.ParsePeriodKey(closingPeriod)
	if err != nil {
		return nil, err
	}
	draft := &ledger.EntryDraft{
		Date:   shared.YearEnd(year),
		Memo:   fmt.Sprintf("Ajuste por inflación RT6 %s", a.Name),
		Source: b.sourceKey(KindInflation, a.ID.String(), closingPeriod),
	}
	if adjustment > 0 {
		draft.Lines = append(draft.Lines, debit(a.AccountID, adjustment), credit(recpam.ID, adjustment))
	} else {
		draft.Lines = append(draft.Lines, debit(recpam.ID, -adjustment), credit(a.AccountID, -adjustment))
	}
	return finishDraft(draft)
}
