package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"artifactlive.org/internal/ledger"
)

var provisionOwner string

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the default chart of accounts for an owner",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		accs, err := ledger.NewService(b.Ledger).ProvisionOwner(cmd.Context(), provisionOwner)
		if err != nil {
			return err
		}
		for _, a := range accs {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s %s\n", a.Type, a.Name, a.ID)
		}
		return nil
	},
}

func init() {
	provisionCmd.Flags().StringVar(&provisionOwner, "owner", "", "owner id")
	_ = provisionCmd.MarkFlagRequired("owner")
}
