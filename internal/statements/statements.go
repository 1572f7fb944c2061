// Package statements derives financial reports from ledger balances. It never
// writes and does no validation of its own: an inconsistent ledger shows up as
// is_balanced=false rather than an error.
package statements

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/ledger"
)

// BalanceSource is the single read every statement is computed from.
type BalanceSource interface {
	Balances(ctx context.Context, owner string) ([]ledger.AccountBalance, error)
}

// Generator computes statements for an owner.
type Generator struct {
	src BalanceSource
}

// NewGenerator returns a Generator reading from src.
func NewGenerator(src BalanceSource) *Generator {
	return &Generator{src: src}
}

// Equation is the accounting equation assets = liabilities + equity.
type Equation struct {
	Assets               decimal.Decimal `json:"assets"`
	Liabilities          decimal.Decimal `json:"liabilities"`
	Equity               decimal.Decimal `json:"equity"`
	CurrentEarnings      decimal.Decimal `json:"current_earnings"`
	LiabilitiesAndEquity decimal.Decimal `json:"liabilities_plus_equity"`
	Difference           decimal.Decimal `json:"difference"`
	IsBalanced           bool            `json:"is_balanced"`
}

// TrialBalanceRow is one account with a non-trivial balance.
type TrialBalanceRow struct {
	AccountID   string             `json:"account_id"`
	AccountName string             `json:"account_name"`
	AccountType ledger.AccountType `json:"account_type"`
	NormalSide  ledger.Side        `json:"normal_side"`
	Debit       decimal.Decimal    `json:"debit"`
	Credit      decimal.Decimal    `json:"credit"`
}

// TrialBalance lists every account balance in debit/credit columns.
type TrialBalance struct {
	Rows         []TrialBalanceRow `json:"accounts"`
	TotalDebits  decimal.Decimal   `json:"total_debits"`
	TotalCredits decimal.Decimal   `json:"total_credits"`
	Difference   decimal.Decimal   `json:"difference"`
	IsBalanced   bool              `json:"is_balanced"`
}

// AccountAmount is an account with its balance on its normal side.
type AccountAmount struct {
	AccountID string          `json:"account_id,omitempty"`
	Name      string          `json:"account_name"`
	Subtype   string          `json:"subtype,omitempty"`
	Amount    decimal.Decimal `json:"balance"`
}

// Section groups lines of one account type with their subtotal.
type Section struct {
	Lines []AccountAmount `json:"accounts"`
	Total decimal.Decimal `json:"total"`
}

func (s *Section) add(a AccountAmount) {
	s.Lines = append(s.Lines, a)
	s.Total = s.Total.Add(a.Amount)
}

// BalanceSheet reports assets against liabilities and equity.
type BalanceSheet struct {
	Assets                    Section         `json:"assets"`
	Liabilities               Section         `json:"liabilities"`
	Equity                    Section         `json:"equity"`
	TotalAssets               decimal.Decimal `json:"total_assets"`
	TotalLiabilities          decimal.Decimal `json:"total_liabilities"`
	TotalEquity               decimal.Decimal `json:"total_equity"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	IsBalanced                bool            `json:"is_balanced"`
}

// IncomeStatement reports revenue, expenses and net income to date.
type IncomeStatement struct {
	Revenue   Section         `json:"revenue"`
	Expenses  Section         `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// CurrentEarningsName labels the synthetic equity line carrying unclosed
// revenue minus expenses.
const CurrentEarningsName = "Current Earnings"

// Normalized returns b's balance on the normal side of its type, so that a
// healthy account is positive.
func Normalized(b ledger.AccountBalance) decimal.Decimal {
	if b.Type.NormalSide() == ledger.DebitSide {
		return b.Debits.Sub(b.Credits)
	}
	return b.Credits.Sub(b.Debits)
}

func (g *Generator) balances(ctx context.Context, owner string) ([]ledger.AccountBalance, error) {
	bs, err := g.src.Balances(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load balances: %w", err)
	}
	return bs, nil
}

type totals struct {
	assets, liabilities, equity, revenue, expenses decimal.Decimal
}

func sumByType(bs []ledger.AccountBalance) totals {
	var t totals
	for _, b := range bs {
		n := Normalized(b)
		switch b.Type {
		case ledger.Asset:
			t.assets = t.assets.Add(n)
		case ledger.Liability:
			t.liabilities = t.liabilities.Add(n)
		case ledger.Equity:
			t.equity = t.equity.Add(n)
		case ledger.Revenue:
			t.revenue = t.revenue.Add(n)
		case ledger.Expense:
			t.expenses = t.expenses.Add(n)
		}
	}
	return t
}

func balanced(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(ledger.Tolerance)
}

// AccountingEquation computes assets, liabilities and equity. Equity includes
// current earnings so the equation holds between closings.
func (g *Generator) AccountingEquation(ctx context.Context, owner string) (Equation, error) {
	bs, err := g.balances(ctx, owner)
	if err != nil {
		return Equation{}, err
	}
	t := sumByType(bs)
	earnings := t.revenue.Sub(t.expenses)
	equity := t.equity.Add(earnings)
	rhs := t.liabilities.Add(equity)
	return Equation{
		Assets:               t.assets,
		Liabilities:          t.liabilities,
		Equity:               equity,
		CurrentEarnings:      earnings,
		LiabilitiesAndEquity: rhs,
		Difference:           t.assets.Sub(rhs),
		IsBalanced:           balanced(t.assets, rhs),
	}, nil
}

// TrialBalance lists accounts whose balance exceeds one cent, debit balances
// in the debit column and credit balances in the credit column.
func (g *Generator) TrialBalance(ctx context.Context, owner string) (TrialBalance, error) {
	bs, err := g.balances(ctx, owner)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{Rows: []TrialBalanceRow{}}
	for _, b := range bs {
		bal := b.Balance()
		if bal.Abs().LessThanOrEqual(ledger.Tolerance) {
			continue
		}
		row := TrialBalanceRow{
			AccountID:   b.ID,
			AccountName: b.Name,
			AccountType: b.Type,
			NormalSide:  b.Type.NormalSide(),
		}
		if bal.IsPositive() {
			row.Debit = bal
			tb.TotalDebits = tb.TotalDebits.Add(bal)
		} else {
			row.Credit = bal.Neg()
			tb.TotalCredits = tb.TotalCredits.Add(row.Credit)
		}
		tb.Rows = append(tb.Rows, row)
	}
	tb.Difference = tb.TotalDebits.Sub(tb.TotalCredits)
	tb.IsBalanced = balanced(tb.TotalDebits, tb.TotalCredits)
	return tb, nil
}

// include keeps accounts carrying more than a cent, active or not.
func include(b ledger.AccountBalance) bool {
	return b.Balance().Abs().GreaterThan(ledger.Tolerance)
}

func amountOf(b ledger.AccountBalance) AccountAmount {
	return AccountAmount{AccountID: b.ID, Name: b.Name, Subtype: b.Subtype, Amount: Normalized(b)}
}

func emptySection() Section { return Section{Lines: []AccountAmount{}} }

// BalanceSheet groups asset, liability and equity accounts. Unclosed earnings
// appear as a synthetic equity line.
func (g *Generator) BalanceSheet(ctx context.Context, owner string) (BalanceSheet, error) {
	bs, err := g.balances(ctx, owner)
	if err != nil {
		return BalanceSheet{}, err
	}
	sheet := BalanceSheet{Assets: emptySection(), Liabilities: emptySection(), Equity: emptySection()}
	earnings := decimal.Zero
	for _, b := range bs {
		switch b.Type {
		case ledger.Asset:
			if include(b) {
				sheet.Assets.add(amountOf(b))
			}
		case ledger.Liability:
			if include(b) {
				sheet.Liabilities.add(amountOf(b))
			}
		case ledger.Equity:
			if include(b) {
				sheet.Equity.add(amountOf(b))
			}
		case ledger.Revenue:
			earnings = earnings.Add(Normalized(b))
		case ledger.Expense:
			earnings = earnings.Sub(Normalized(b))
		}
	}
	if !earnings.IsZero() {
		sheet.Equity.add(AccountAmount{Name: CurrentEarningsName, Amount: earnings})
	}
	sheet.TotalAssets = sheet.Assets.Total
	sheet.TotalLiabilities = sheet.Liabilities.Total
	sheet.TotalEquity = sheet.Equity.Total
	sheet.TotalLiabilitiesAndEquity = sheet.TotalLiabilities.Add(sheet.TotalEquity)
	sheet.IsBalanced = balanced(sheet.TotalAssets, sheet.TotalLiabilitiesAndEquity)
	return sheet, nil
}

// IncomeStatement reports revenue and expense accounts and their difference.
func (g *Generator) IncomeStatement(ctx context.Context, owner string) (IncomeStatement, error) {
	bs, err := g.balances(ctx, owner)
	if err != nil {
		return IncomeStatement{}, err
	}
	st := IncomeStatement{Revenue: emptySection(), Expenses: emptySection()}
	for _, b := range bs {
		if !include(b) {
			continue
		}
		switch b.Type {
		case ledger.Revenue:
			st.Revenue.add(amountOf(b))
		case ledger.Expense:
			st.Expenses.add(amountOf(b))
		}
	}
	st.NetIncome = st.Revenue.Total.Sub(st.Expenses.Total)
	return st, nil
}
