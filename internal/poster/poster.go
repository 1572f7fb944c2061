// Package poster turns business events (inventory contributions, sales) into
// balanced ledger transactions.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/pricing"
)

// Ledger is the subset of the ledger service the poster composes.
type Ledger interface {
	SystemAccount(ctx context.Context, owner string, sa ledger.SystemAccount) (ledger.Account, error)
	PostTransaction(ctx context.Context, owner string, lines []ledger.Line, opts ...ledger.PostOption) (string, error)
}

// Poster records business events on the ledger.
type Poster struct {
	ledger  Ledger
	pricing pricing.ConfigStore
	log     *slog.Logger
}

// New returns a Poster. cfgs supplies fee assumptions when a sale is
// recorded without explicit fees.
func New(l Ledger, cfgs pricing.ConfigStore) *Poster {
	return &Poster{ledger: l, pricing: cfgs, log: obs.Logger()}
}

func (p *Poster) accounts(ctx context.Context, owner string, sas ...ledger.SystemAccount) ([]ledger.Account, error) {
	res := make([]ledger.Account, 0, len(sas))
	for _, sa := range sas {
		acc, err := p.ledger.SystemAccount(ctx, owner, sa)
		if err != nil {
			return nil, err
		}
		res = append(res, acc)
	}
	return res, nil
}

func cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// RecordCapitalContribution recognises inventory the owner brought into the
// business: debit Inventory Asset, credit Owner Capital.
func (p *Poster) RecordCapitalContribution(ctx context.Context, owner string, value decimal.Decimal, description string, ref ledger.Reference) (string, error) {
	value = cents(value)
	if !value.IsPositive() {
		return "", fmt.Errorf("%w: contribution value must be > 0", ledger.ErrValidation)
	}
	if ref.Type == "" {
		ref.Type = ledger.RefCapitalContribution
	}
	accs, err := p.accounts(ctx, owner, ledger.InventoryAccount, ledger.OwnerCapitalAccount)
	if err != nil {
		return "", err
	}
	description = strings.TrimSpace(description)
	return p.ledger.PostTransaction(ctx, owner, []ledger.Line{
		{AccountID: accs[0].ID, Debit: value, Description: description, Reference: ref},
		{AccountID: accs[1].ID, Credit: value, Description: description, Reference: ref},
	}, ledger.WithKind("capital_contribution"))
}

// Item is an inventory layer contributed by the owner.
type Item struct {
	Name     string
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
	Source   string
	LayerID  string
}

// ContributeInventory values item at quantity times unit cost and records it as a
// capital contribution.
func (p *Poster) ContributeInventory(ctx context.Context, owner string, item Item) (string, error) {
	name := strings.TrimSpace(item.Name)
	if name == "" {
		return "", fmt.Errorf("%w: item name is required", ledger.ErrValidation)
	}
	if !item.Quantity.IsPositive() || item.UnitCost.IsNegative() {
		return "", fmt.Errorf("%w: quantity must be > 0 and unit cost >= 0", ledger.ErrValidation)
	}
	source := strings.TrimSpace(item.Source)
	if source == "" {
		source = "owner"
	}
	desc := fmt.Sprintf("Capital Contribution: %s (%s)", name, source)
	return p.RecordCapitalContribution(ctx, owner, item.Quantity.Mul(item.UnitCost), desc,
		ledger.Reference{Type: ledger.RefCapitalContribution, ID: item.LayerID})
}

// Sale is a part sold through a marketplace. A nil Fees is estimated from the
// owner's pricing configuration.
type Sale struct {
	PartID      string
	PartName    string
	SalePrice   decimal.Decimal
	Fees        *decimal.Decimal
	Shipping    decimal.Decimal
	WeightClass pricing.WeightClass
	CostBasis   decimal.Decimal
}

// RecordSale posts revenue, fee and shipping expense, and the cash received
// as one transaction. Cash is the remainder after every other leg is rounded
// to cents, so the transaction balances exactly.
func (p *Poster) RecordSale(ctx context.Context, owner string, s Sale) (string, error) {
	price := cents(s.SalePrice)
	if !price.IsPositive() {
		return "", fmt.Errorf("%w: sale price must be > 0", ledger.ErrValidation)
	}
	if s.Shipping.IsNegative() || s.CostBasis.IsNegative() {
		return "", fmt.Errorf("%w: shipping and cost basis must be >= 0", ledger.ErrValidation)
	}

	var fees decimal.Decimal
	if s.Fees != nil {
		if s.Fees.IsNegative() {
			return "", fmt.Errorf("%w: fees must be >= 0", ledger.ErrValidation)
		}
		fees = cents(*s.Fees)
	} else {
		cfg, err := p.pricing.GetPricingConfig(ctx, owner)
		if err != nil {
			return "", fmt.Errorf("load pricing config: %w", err)
		}
		fees = cents(pricing.CalculateFees(price, cfg, s.WeightClass).TotalFees)
	}
	shipping := cents(s.Shipping)
	cost := cents(s.CostBasis)
	cash := price.Sub(fees).Sub(shipping)

	want := []ledger.SystemAccount{ledger.SalesAccount, ledger.FeesAccount, ledger.ShippingAccount, ledger.CashAccount}
	if cost.IsPositive() {
		want = append(want, ledger.COGSAccount, ledger.InventoryAccount)
	}
	accs, err := p.accounts(ctx, owner, want...)
	if err != nil {
		return "", err
	}
	sales, feeAcc, shipAcc, cashAcc := accs[0], accs[1], accs[2], accs[3]

	label := strings.TrimSpace(s.PartName)
	if label == "" {
		label = s.PartID
	}
	ref := ledger.Reference{Type: ledger.RefSale, ID: s.PartID}
	lines := []ledger.Line{
		{AccountID: sales.ID, Credit: price, Description: "Sale: " + label, Reference: ref},
	}
	if fees.IsPositive() {
		lines = append(lines, ledger.Line{AccountID: feeAcc.ID, Debit: fees, Description: "Marketplace fees: " + label, Reference: ref})
	}
	if shipping.IsPositive() {
		lines = append(lines, ledger.Line{AccountID: shipAcc.ID, Debit: shipping, Description: "Shipping: " + label, Reference: ref})
	}
	switch {
	case cash.IsPositive():
		lines = append(lines, ledger.Line{AccountID: cashAcc.ID, Debit: cash, Description: "Sale proceeds: " + label, Reference: ref})
	case cash.IsNegative():
		lines = append(lines, ledger.Line{AccountID: cashAcc.ID, Credit: cash.Neg(), Description: "Sale shortfall: " + label, Reference: ref})
	}
	if cost.IsPositive() {
		cogs, inv := accs[4], accs[5]
		lines = append(lines,
			ledger.Line{AccountID: cogs.ID, Debit: cost, Description: "Cost of goods sold: " + label, Reference: ref},
			ledger.Line{AccountID: inv.ID, Credit: cost, Description: "Inventory relieved: " + label, Reference: ref},
		)
	}

	txID, err := p.ledger.PostTransaction(ctx, owner, lines, ledger.WithKind("sale"))
	if err != nil {
		return "", err
	}
	p.log.InfoContext(ctx, "sale recorded", "owner", owner, "part_id", s.PartID,
		"price", price.StringFixed(2), "fees", fees.StringFixed(2), "cash", cash.StringFixed(2))
	return txID, nil
}
