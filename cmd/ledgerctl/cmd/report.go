package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/statements"
)

var reportOwner string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a financial statement as JSON",
}

func init() {
	reportCmd.PersistentFlags().StringVar(&reportOwner, "owner", "", "owner id")
	_ = reportCmd.MarkPersistentFlagRequired("owner")

	reportCmd.AddCommand(
		reportAction("equation", "Accounting equation check", func(ctx context.Context, g *statements.Generator) (any, error) {
			return g.AccountingEquation(ctx, reportOwner)
		}),
		reportAction("trial-balance", "Trial balance", func(ctx context.Context, g *statements.Generator) (any, error) {
			return g.TrialBalance(ctx, reportOwner)
		}),
		reportAction("balance-sheet", "Balance sheet", func(ctx context.Context, g *statements.Generator) (any, error) {
			return g.BalanceSheet(ctx, reportOwner)
		}),
		reportAction("income-statement", "Income statement", func(ctx context.Context, g *statements.Generator) (any, error) {
			return g.IncomeStatement(ctx, reportOwner)
		}),
	)
}

func reportAction(use, short string, build func(context.Context, *statements.Generator) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			res, err := build(cmd.Context(), statements.NewGenerator(ledger.NewService(b.Ledger)))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}
