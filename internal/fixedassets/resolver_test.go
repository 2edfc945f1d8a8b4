package fixedassets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigecon/sigecon/internal/ledger"
)

func TestFoldStripsDiacritics(t *testing.T) {
	require.Equal(t, "revaluo", fold("Revalúo"))
	require.Equal(t, "amortizacion acumulada", fold("  Amortización Acumulada "))
	require.Equal(t, "iva credito fiscal", fold("IVA Crédito Fiscal"))
}

func TestFindAccountChain(t *testing.T) {
	store := newStubStore(testChart())
	r := NewResolver(store, nil)
	accounts := store.accounts

	// Code wins over everything.
	acc := r.FindAccount(accounts, Lookup{Codes: []string{"2.1.02"}, Names: []string{"Banco Nación c/c"}})
	require.NotNil(t, acc)
	require.Equal(t, accPayables, acc.ID)

	// Exact folded name, diacritics ignored.
	acc = r.FindAccount(accounts, Lookup{Names: []string{"iva credito fiscal"}})
	require.NotNil(t, acc)
	require.Equal(t, accVATCredit, acc.ID)

	// Substring fallback.
	acc = r.FindAccount(accounts, Lookup{NameIncludes: []string{"siniestro"}})
	require.NotNil(t, acc)
	require.Equal(t, accDamage, acc.ID)

	// Kind fallback when nothing matches by name.
	acc = r.FindAccount(accounts, Lookup{Names: []string{"No Existe"}, Kind: ledger.AccountTypeEquity})
	require.NotNil(t, acc)
	require.Equal(t, ledger.AccountTypeEquity, acc.Type)

	require.Nil(t, r.FindAccount(accounts, Lookup{Names: []string{"No Existe"}}))
}

func TestFindAccountSkipsHeaders(t *testing.T) {
	store := newStubStore([]ledger.Account{
		{ID: 1, Code: "2.1.02", Name: "Acreedores Varios", Type: ledger.AccountTypeLiability, Header: true},
		{ID: 2, Code: "2.1.02.01", Name: "Acreedores Varios", Type: ledger.AccountTypeLiability},
	})
	r := NewResolver(store, nil)

	acc := r.FindAccount(store.accounts, lookupPayables)
	require.NotNil(t, acc)
	require.Equal(t, int64(2), acc.ID)
}

func TestPayableAccountCreatesSubaccountOnce(t *testing.T) {
	ctx := context.Background()
	store := newStubStore(testChart())
	r := NewResolver(store, nil)

	first, err := r.PayableAccount(ctx, store.accounts, "Proveedor Industrial SRL")
	require.NoError(t, err)
	require.Equal(t, "2.1.02.01", first.Code)
	require.Equal(t, "Proveedor Industrial SRL", first.Name)
	require.NotNil(t, first.ParentID)
	require.Equal(t, accPayables, *first.ParentID)

	// With the refreshed chart the same counterparty resolves to the
	// existing child.
	second, err := r.PayableAccount(ctx, store.accounts, "proveedor industrial srl")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// No counterparty: the generic parent.
	parent, err := r.PayableAccount(ctx, store.accounts, "")
	require.NoError(t, err)
	require.Equal(t, accPayables, parent.ID)
}

func TestOpeningEquityAccountChain(t *testing.T) {
	ctx := context.Background()
	store := newStubStore(testChart())
	r := NewResolver(store, nil)

	// Explicit ID wins.
	acc, err := r.OpeningEquityAccount(ctx, store.accounts, accReserve)
	require.NoError(t, err)
	require.Equal(t, accReserve, acc.ID)

	// Deployment policy comes next.
	pinned := NewResolver(store, func(accounts []ledger.Account) int64 { return accRetained })
	acc, err = pinned.OpeningEquityAccount(ctx, store.accounts, 0)
	require.NoError(t, err)
	require.Equal(t, accRetained, acc.ID)

	// Default chain lands on Saldos de Apertura by name.
	acc, err = r.OpeningEquityAccount(ctx, store.accounts, 0)
	require.NoError(t, err)
	require.Equal(t, accApertura, acc.ID)
}

func TestOpeningEquityAccountAutoCreates(t *testing.T) {
	ctx := context.Background()
	store := newStubStore([]ledger.Account{
		{ID: 1, Code: "3.2.01", Name: "Resultados Acumulados", Type: ledger.AccountTypeEquity},
	})
	r := NewResolver(store, nil)

	acc, err := r.OpeningEquityAccount(ctx, store.accounts, 0)
	require.NoError(t, err)
	require.Equal(t, "Saldos de Apertura", acc.Name)
	require.Equal(t, "3.2.01.01", acc.Code)
	require.NotNil(t, acc.ParentID)
	require.Equal(t, int64(1), *acc.ParentID)
}
