package cmd

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"artifactlive.org/internal/pricing"
)

var (
	feesPrice  string
	feesWeight string
)

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Estimate marketplace fees and shipping for a listing price",
	Long: `fees applies the configured pricing defaults (built-in values, overridden
by the pricing block of $ARTIFACT_CONFIG) to a listing price.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := decimal.NewFromString(feesPrice)
		if err != nil {
			return fmt.Errorf("invalid --price %q: %w", feesPrice, err)
		}
		b := pricing.CalculateFees(price, cfg.Pricing, pricing.ParseWeightClass(feesWeight))
		return printJSON(cmd.OutOrStdout(), b.Rounded())
	},
}

func init() {
	feesCmd.Flags().StringVar(&feesPrice, "price", "", "listing price")
	feesCmd.Flags().StringVar(&feesWeight, "weight", string(pricing.Medium), "weight class: light, medium or heavy")
	_ = feesCmd.MarkFlagRequired("price")
}
