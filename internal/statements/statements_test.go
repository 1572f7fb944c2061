package statements

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/poster"
	"artifactlive.org/internal/pricing"
)

const owner = "owner-1"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

type fixture struct {
	svc    *ledger.Service
	poster *poster.Poster
	gen    *Generator
}

func newFixture() fixture {
	svc := ledger.NewService(ledger.NewInMemory())
	return fixture{
		svc:    svc,
		poster: poster.New(svc, pricing.NewMemoryStore(pricing.DefaultConfig())),
		gen:    NewGenerator(svc),
	}
}

func TestCapitalContributionBalancesEquation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	txID, err := f.poster.RecordCapitalContribution(ctx, owner, d("500"), "Opening stock", ledger.Reference{})
	require.NoError(t, err)

	eq, err := f.gen.AccountingEquation(ctx, owner)
	require.NoError(t, err)
	assertDec(t, "500", eq.Assets, "assets")
	assertDec(t, "500", eq.Equity, "equity")
	assertDec(t, "0", eq.Liabilities, "liabilities")
	assert.True(t, eq.IsBalanced)

	// Reversing the contribution brings everything back to zero.
	_, err = f.svc.ReverseTransaction(ctx, owner, txID)
	require.NoError(t, err)
	eq, err = f.gen.AccountingEquation(ctx, owner)
	require.NoError(t, err)
	assertDec(t, "0", eq.Assets, "assets after reversal")
	assertDec(t, "0", eq.Equity, "equity after reversal")
	assert.True(t, eq.IsBalanced)

	tb, err := f.gen.TrialBalance(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, tb.Rows)
	assert.True(t, tb.IsBalanced)
}

func TestSaleKeepsStatementsBalanced(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	fees := d("16.05")

	_, err := f.poster.RecordCapitalContribution(ctx, owner, d("40"), "stock", ledger.Reference{})
	require.NoError(t, err)
	_, err = f.poster.RecordSale(ctx, owner, poster.Sale{
		PartID: "p1", SalePrice: d("100"), Fees: &fees, Shipping: d("15"), CostBasis: d("40"),
	})
	require.NoError(t, err)

	tb, err := f.gen.TrialBalance(ctx, owner)
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	assertDec(t, "140", tb.TotalDebits, "total debits")
	assertDec(t, "140", tb.TotalCredits, "total credits")
	for _, row := range tb.Rows {
		assert.False(t, row.Debit.IsPositive() && row.Credit.IsPositive(), "row %s uses both columns", row.AccountName)
	}

	eq, err := f.gen.AccountingEquation(ctx, owner)
	require.NoError(t, err)
	// cash 68.95, inventory 0; capital 40 + earnings 28.95
	assertDec(t, "68.95", eq.Assets, "assets")
	assertDec(t, "28.95", eq.CurrentEarnings, "current earnings")
	assertDec(t, "68.95", eq.Equity, "equity")
	assert.True(t, eq.IsBalanced)

	sheet, err := f.gen.BalanceSheet(ctx, owner)
	require.NoError(t, err)
	assert.True(t, sheet.IsBalanced)
	last := sheet.Equity.Lines[len(sheet.Equity.Lines)-1]
	assert.Equal(t, CurrentEarningsName, last.Name)
	assertDec(t, "28.95", last.Amount, "earnings line")

	is, err := f.gen.IncomeStatement(ctx, owner)
	require.NoError(t, err)
	assertDec(t, "100", is.Revenue.Total, "revenue")
	assertDec(t, "71.05", is.Expenses.Total, "expenses")
	assertDec(t, "28.95", is.NetIncome, "net income")
}

func TestEmptyLedger(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	eq, err := f.gen.AccountingEquation(ctx, owner)
	require.NoError(t, err)
	assert.True(t, eq.IsBalanced)
	assert.True(t, eq.Assets.IsZero())

	sheet, err := f.gen.BalanceSheet(ctx, owner)
	require.NoError(t, err)
	assert.NotNil(t, sheet.Assets.Lines)
	assert.True(t, sheet.IsBalanced)
}

type staticSource []ledger.AccountBalance

func (s staticSource) Balances(context.Context, string) ([]ledger.AccountBalance, error) {
	out := make([]ledger.AccountBalance, len(s))
	copy(out, s)
	return out, nil
}

func balance(name string, typ ledger.AccountType, debits, credits string) ledger.AccountBalance {
	return ledger.AccountBalance{
		Account: ledger.Account{ID: name, Name: name, Type: typ, IsActive: true},
		Debits:  d(debits),
		Credits: d(credits),
	}
}

func TestReportsReflectUnbalancedLedger(t *testing.T) {
	gen := NewGenerator(staticSource{
		balance("Cash", ledger.Asset, "100", "0"),
		balance("Capital", ledger.Equity, "0", "90"),
	})
	eq, err := gen.AccountingEquation(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, eq.IsBalanced)
	assertDec(t, "10", eq.Difference, "difference")

	tb, err := gen.TrialBalance(context.Background(), owner)
	require.NoError(t, err)
	assert.False(t, tb.IsBalanced)
}

func TestTrialBalanceSkipsSubCentAndKeepsInactive(t *testing.T) {
	inactive := balance("Old bank", ledger.Asset, "20", "0")
	inactive.IsActive = false
	gen := NewGenerator(staticSource{
		balance("Dust", ledger.Asset, "0.01", "0"),
		inactive,
		balance("Capital", ledger.Equity, "0", "20"),
	})
	tb, err := gen.TrialBalance(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "Old bank", tb.Rows[0].AccountName)
	assert.Equal(t, ledger.CreditSide, tb.Rows[1].NormalSide)
	assert.True(t, tb.IsBalanced)
}

func TestBalanceSheetListsOnlyCarriedBalances(t *testing.T) {
	inactive := balance("Old bank", ledger.Asset, "20", "0")
	inactive.IsActive = false
	gen := NewGenerator(staticSource{
		balance("Cash", ledger.Asset, "100", "0"),
		balance("Idle till", ledger.Asset, "0", "0"),
		balance("Dust", ledger.Asset, "0.01", "0"),
		inactive,
		balance("Loan", ledger.Liability, "0", "30"),
		balance("Capital", ledger.Equity, "0", "90"),
		balance("Unused revenue", ledger.Revenue, "0", "0"),
	})

	sheet, err := gen.BalanceSheet(context.Background(), owner)
	require.NoError(t, err)
	names := []string{}
	for _, l := range sheet.Assets.Lines {
		names = append(names, l.Name)
	}
	assert.ElementsMatch(t, []string{"Cash", "Old bank"}, names)
	assertDec(t, "120", sheet.TotalAssets, "total assets")
	assertDec(t, "30", sheet.TotalLiabilities, "total liabilities")
	assertDec(t, "90", sheet.TotalEquity, "total equity")
	assertDec(t, "120", sheet.TotalLiabilitiesAndEquity, "liabilities and equity")
	assert.True(t, sheet.IsBalanced)

	is, err := gen.IncomeStatement(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, is.Revenue.Lines)
}

func TestStatementsIndependentOfOrder(t *testing.T) {
	rows := staticSource{
		balance("Cash", ledger.Asset, "250", "40"),
		balance("Inventory", ledger.Asset, "300", "120"),
		balance("Loan", ledger.Liability, "10", "100"),
		balance("Capital", ledger.Equity, "0", "250"),
		balance("Sales", ledger.Revenue, "0", "210"),
		balance("Fees", ledger.Expense, "40", "0"),
		balance("COGS", ledger.Expense, "120", "0"),
	}
	base, err := NewGenerator(rows).AccountingEquation(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, base.IsBalanced)

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append(staticSource(nil), rows...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		eq, err := NewGenerator(shuffled).AccountingEquation(context.Background(), owner)
		require.NoError(t, err)
		assert.True(t, base.Assets.Equal(eq.Assets))
		assert.True(t, base.Equity.Equal(eq.Equity))
		assert.True(t, base.Liabilities.Equal(eq.Liabilities))
	}
}

type failingSource struct{}

func (failingSource) Balances(context.Context, string) ([]ledger.AccountBalance, error) {
	return nil, errors.New("db down")
}

func TestSourceErrorPropagates(t *testing.T) {
	_, err := NewGenerator(failingSource{}).BalanceSheet(context.Background(), owner)
	assert.Error(t, err)
}
