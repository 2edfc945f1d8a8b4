package fixedassets

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sigecon/sigecon/internal/ledger"
)

// Lookup describes how to locate a well-known account across charts of
// accounts that name it slightly differently. Tried in order: exact
// code, exact folded name, folded substring, then any non-header
// account of the kind.
type Lookup struct {
	Codes        []string
	Names        []string
	NameIncludes []string
	Kind         ledger.AccountType
}

// Well-known account lookups. Name-based resolution is fuzzy on purpose:
// charts vary between "Revalúo" and "Revaluo", singular and plural.
var (
	lookupVATCredit = Lookup{
		Codes:        []string{"1.1.05"},
		Names:        []string{"IVA Crédito Fiscal", "IVA CF"},
		NameIncludes: []string{"iva credito", "credito fiscal"},
		Kind:         ledger.AccountTypeAsset,
	}
	lookupPayables = Lookup{
		Codes:        []string{"2.1.02"},
		Names:        []string{"Acreedores Varios"},
		NameIncludes: []string{"acreedores"},
		Kind:         ledger.AccountTypeLiability,
	}
	lookupRetentions = Lookup{
		Names:        []string{"Retenciones a Depositar"},
		NameIncludes: []string{"retenciones"},
		Kind:         ledger.AccountTypeLiability,
	}
	lookupFinancialDiscounts = Lookup{
		Names:        []string{"Descuentos Obtenidos", "Intereses Ganados"},
		NameIncludes: []string{"descuentos obtenidos"},
		Kind:         ledger.AccountTypeRevenue,
	}
	lookupAmortExpense = Lookup{
		Names:        []string{"Amortizaciones", "Amortización Bienes de Uso"},
		NameIncludes: []string{"amortizacion"},
		Kind:         ledger.AccountTypeExpense,
	}
	lookupDisposalResult = Lookup{
		Names:        []string{"Resultado Venta Bienes de Uso"},
		NameIncludes: []string{"venta bienes", "resultado venta"},
		Kind:         ledger.AccountTypeRevenue,
	}
	lookupRevaluationReserve = Lookup{
		Names:        []string{"Reserva por Revalúo", "Saldo por Revaluación"},
		NameIncludes: []string{"revalu"},
		Kind:         ledger.AccountTypeEquity,
	}
	lookupDamageExpense = Lookup{
		Names:        []string{"Pérdidas por Siniestros", "Siniestros"},
		NameIncludes: []string{"siniestro"},
		Kind:         ledger.AccountTypeExpense,
	}
	lookupRECPAM = Lookup{
		Names:        []string{"RECPAM", "Resultado por Exposición al Cambio en el Poder Adquisitivo de la Moneda"},
		NameIncludes: []string{"recpam", "exposicion"},
		Kind:         ledger.AccountTypeRevenue,
	}
	lookupRetainedEarnings = Lookup{
		Names:        []string{"Resultados Acumulados"},
		NameIncludes: []string{"resultados acumulados"},
		Kind:         ledger.AccountTypeEquity,
	}
	lookupOpeningEquity = Lookup{
		Names:        []string{"Saldos de Apertura", "Resultados Acumulados"},
		NameIncludes: []string{"apertura"},
		Kind:         ledger.AccountTypeEquity,
	}
)

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases and strips diacritics so "Revalúo" matches "revaluo".
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Resolver locates canonical ledger accounts by code, name, or fuzzy
// name match, and creates the narrow set of accounts the engine may
// mint on demand (opening equity, per-counterparty payables).
//
// Implementations wanting stricter behaviour can swap FindAccount for a
// code-only lookup; everything else goes through this interface.
type Resolver interface {
	FindAccount(accounts []ledger.Account, q Lookup) *ledger.Account
	OpeningEquityAccount(ctx context.Context, accounts []ledger.Account, explicitID int64) (*ledger.Account, error)
	PayableAccount(ctx context.Context, accounts []ledger.Account, counterparty string) (*ledger.Account, error)
}

// OpeningEquityPolicy lets deployments pin the default opening-equity
// account. Returning zero defers to the resolution chain.
type OpeningEquityPolicy func(accounts []ledger.Account) int64

type chartResolver struct {
	store  ledger.Store
	policy OpeningEquityPolicy
}

// NewResolver builds the default chart resolver. policy may be nil.
func NewResolver(store ledger.Store, policy OpeningEquityPolicy) Resolver {
	return &chartResolver{store: store, policy: policy}
}

// FindAccount implements the code -> exact name -> substring -> kind
// fallback chain.
func (r *chartResolver) FindAccount(accounts []ledger.Account, q Lookup) *ledger.Account {
	for _, code := range q.Codes {
		for i := range accounts {
			if accounts[i].Code == code && !accounts[i].Header {
				return &accounts[i]
			}
		}
	}
	for _, name := range q.Names {
		want := fold(name)
		for i := range accounts {
			if fold(accounts[i].Name) == want && !accounts[i].Header {
				return &accounts[i]
			}
		}
	}
	for _, token := range q.NameIncludes {
		want := fold(token)
		for i := range accounts {
			if strings.Contains(fold(accounts[i].Name), want) && !accounts[i].Header {
				return &accounts[i]
			}
		}
	}
	if q.Kind != "" {
		for i := range accounts {
			if accounts[i].Type == q.Kind && !accounts[i].Header {
				return &accounts[i]
			}
		}
	}
	return nil
}

// OpeningEquityAccount resolves the equity account that receives the
// residual net value of an opening entry. Chain: explicit asset-level
// override, deployment policy, name match, auto-create under
// "Resultados Acumulados", then any equity account.
func (r *chartResolver) OpeningEquityAccount(ctx context.Context, accounts []ledger.Account, explicitID int64) (*ledger.Account, error) {
	if explicitID != 0 {
		for i := range accounts {
			if accounts[i].ID == explicitID {
				return &accounts[i], nil
			}
		}
	}
	if r.policy != nil {
		if id := r.policy(accounts); id != 0 {
			for i := range accounts {
				if accounts[i].ID == id {
					return &accounts[i], nil
				}
			}
		}
	}
	if acc := r.FindAccount(accounts, lookupOpeningEquity); acc != nil && !acc.Header {
		return acc, nil
	}
	if parent := r.FindAccount(accounts, Lookup{Names: lookupRetainedEarnings.Names, NameIncludes: lookupRetainedEarnings.NameIncludes}); parent != nil {
		created, err := r.createChild(ctx, *parent, "Saldos de Apertura", ledger.AccountTypeEquity)
		if err == nil {
			return created, nil
		}
		// creation failed: fall through to the equity fallback
	}
	for i := range accounts {
		if accounts[i].Type == ledger.AccountTypeEquity {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: opening equity", ErrAccountResolution)
}

// PayableAccount resolves "Acreedores Varios", preferring a
// per-counterparty subaccount when a counterparty name is given and
// creating it on demand under the generic parent.
func (r *chartResolver) PayableAccount(ctx context.Context, accounts []ledger.Account, counterparty string) (*ledger.Account, error) {
	parent := r.FindAccount(accounts, lookupPayables)
	if parent == nil {
		return nil, fmt.Errorf("%w: acreedores varios", ErrAccountResolution)
	}
	if counterparty == "" {
		return parent, nil
	}
	want := fold(counterparty)
	for i := range accounts {
		if accounts[i].ParentID != nil && *accounts[i].ParentID == parent.ID && fold(accounts[i].Name) == want {
			return &accounts[i], nil
		}
	}
	created, err := r.createChild(ctx, *parent, counterparty, parent.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: subaccount for %q: %v", ErrAccountResolution, counterparty, err)
	}
	return created, nil
}

func (r *chartResolver) createChild(ctx context.Context, parent ledger.Account, name string, kind ledger.AccountType) (*ledger.Account, error) {
	code, err := r.store.GenerateNextCode(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	parentID := parent.ID
	created, err := r.store.CreateAccount(ctx, ledger.AccountSpec{
		Code:     code,
		Name:     name,
		Type:     kind,
		ParentID: &parentID,
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}
