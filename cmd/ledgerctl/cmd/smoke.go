package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"artifactlive.org/internal/ids"
	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/poster"
	"artifactlive.org/internal/statements"
	"artifactlive.org/internal/store"
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run an end-to-end posting scenario and verify the books balance",
	Long: `smoke provisions a throwaway owner, contributes inventory, records a sale,
posts and reverses a manual transaction, then checks the trial balance, the
accounting equation and the balance sheet. It uses the configured database
(PostgreSQL or SQLite) and an in-memory ledger otherwise.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := store.Open(cmd.Context(), backendOptions())
		if err != nil {
			return err
		}
		defer b.Close()

		owner := "smoke-" + ids.New()
		if err := runSmoke(cmd.Context(), b, owner); err != nil {
			return fmt.Errorf("smoke test failed for %s: %w", owner, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "smoke test passed: owner=%s driver=%s persistent=%t\n", owner, b.Driver, b.Persistent())
		return nil
	},
}

func runSmoke(ctx context.Context, b *store.Backend, owner string) error {
	svc := ledger.NewService(b.Ledger)
	post := poster.New(svc, b.Pricing)
	gen := statements.NewGenerator(svc)

	accs, err := svc.ProvisionOwner(ctx, owner)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}
	if _, err := post.ContributeInventory(ctx, owner, poster.Item{
		Name:     "smoke parts",
		Quantity: decimal.NewFromInt(10),
		UnitCost: decimal.NewFromInt(25),
	}); err != nil {
		return fmt.Errorf("contribute inventory: %w", err)
	}
	if _, err := post.RecordSale(ctx, owner, poster.Sale{
		PartID:    "smoke-part",
		SalePrice: decimal.NewFromInt(100),
		Shipping:  decimal.NewFromInt(15),
		CostBasis: decimal.NewFromInt(25),
	}); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}

	var cash, capital ledger.Account
	for _, a := range accs {
		switch a.Subtype {
		case ledger.SubtypeCash:
			cash = a
		case ledger.SubtypeOwnerCapital:
			capital = a
		}
	}
	ten := decimal.NewFromInt(10)
	txID, err := svc.PostTransaction(ctx, owner, []ledger.Line{
		{AccountID: cash.ID, Debit: ten, Description: "smoke"},
		{AccountID: capital.ID, Credit: ten, Description: "smoke"},
	})
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	if _, err := svc.ReverseTransaction(ctx, owner, txID); err != nil {
		return fmt.Errorf("reverse: %w", err)
	}
	if _, err := svc.ReverseTransaction(ctx, owner, txID); !errors.Is(err, ledger.ErrAlreadyReversed) {
		return fmt.Errorf("second reversal: want ErrAlreadyReversed, got %v", err)
	}

	tb, err := gen.TrialBalance(ctx, owner)
	if err != nil {
		return err
	}
	eq, err := gen.AccountingEquation(ctx, owner)
	if err != nil {
		return err
	}
	bs, err := gen.BalanceSheet(ctx, owner)
	if err != nil {
		return err
	}
	switch {
	case !tb.IsBalanced:
		return fmt.Errorf("trial balance off by %s", tb.Difference)
	case !eq.IsBalanced:
		return fmt.Errorf("accounting equation off by %s", eq.Difference)
	case !bs.IsBalanced:
		return errors.New("balance sheet does not balance")
	}
	return nil
}
