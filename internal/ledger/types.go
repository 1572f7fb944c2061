package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts. It is fixed at
// creation time.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// AccountTypes lists the taxonomy in canonical presentation order.
var AccountTypes = []AccountType{Asset, Liability, Equity, Revenue, Expense}

// ParseAccountType normalises s and reports whether it names a known type.
func ParseAccountType(s string) (AccountType, bool) {
	t := AccountType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Valid reports whether t belongs to the taxonomy.
func (t AccountType) Valid() bool {
	return t.Rank() >= 0
}

// Rank is the position of t in the canonical ordering, or -1.
func (t AccountType) Rank() int {
	for i, at := range AccountTypes {
		if at == t {
			return i
		}
	}
	return -1
}

// Side is the normal balance side of an account type.
type Side string

const (
	DebitSide  Side = "DEBIT"
	CreditSide Side = "CREDIT"
)

// NormalSide returns DEBIT for assets and expenses, CREDIT otherwise.
func (t AccountType) NormalSide() Side {
	if t == Asset || t == Expense {
		return DebitSide
	}
	return CreditSide
}

// Well-known subtypes used by system accounts.
const (
	SubtypeCash         = "CASH"
	SubtypeInventory    = "INVENTORY"
	SubtypeOwnerCapital = "OWNER_CAPITAL"
	SubtypeSales        = "SALES"
	SubtypeFees         = "FEES"
	SubtypeShipping     = "SHIPPING"
	SubtypeCOGS         = "COGS"
)

// Account is a row of an owner's chart of accounts.
type Account struct {
	ID        string      `json:"account_id"`
	Owner     string      `json:"owner"`
	Name      string      `json:"account_name"`
	Type      AccountType `json:"account_type"`
	Subtype   string      `json:"subtype"`
	IsSystem  bool        `json:"is_system"`
	IsActive  bool        `json:"is_active"`
	CreatedAt time.Time   `json:"created_at"`
}

// Reference points at the business object that caused an entry.
type Reference struct {
	Type string `json:"reference_type,omitempty"`
	ID   string `json:"reference_id,omitempty"`
}

// Reference types produced by this module.
const (
	RefReversal            = "REVERSAL"
	RefCapitalContribution = "CAPITAL_CONTRIBUTION"
	RefSale                = "SALE"
)

// Entry is a single debit or credit line against one account. Entries are
// immutable once appended.
type Entry struct {
	ID            string          `json:"entry_id"`
	TransactionID string          `json:"transaction_id"`
	Owner         string          `json:"-"`
	AccountID     string          `json:"account_id"`
	PostedAt      time.Time       `json:"entry_date"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Description   string          `json:"description"`
	Reference
}

// Line is one requested entry of a transaction about to be posted.
type Line struct {
	AccountID   string          `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	Reference
}

// Batch is a validated transaction handed to a Store for atomic append.
type Batch struct {
	TransactionID string
	Owner         string
	Entries       []Entry
	// Reverses names the transaction this batch cancels, if any. Stores must
	// reject the append with ErrAlreadyReversed when it was reversed before.
	Reverses string
}

// EntryFilter narrows Entries queries. Zero values mean "any".
type EntryFilter struct {
	AccountID     string
	TransactionID string
	ReferenceType string
	From          time.Time
	To            time.Time
}

// AccountBalance carries raw debit and credit totals for one account.
type AccountBalance struct {
	Account
	Debits  decimal.Decimal `json:"total_debits"`
	Credits decimal.Decimal `json:"total_credits"`
}

// Balance is debits minus credits. Sign normalisation is left to reporting.
func (b AccountBalance) Balance() decimal.Decimal {
	return b.Debits.Sub(b.Credits)
}

// Tolerance absorbs fee rounding when comparing debit and credit totals.
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether |a-b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
