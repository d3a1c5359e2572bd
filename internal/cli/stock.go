package cli

import (
	"fmt"
	"text/tabwriter"

	"go-pos-sync/internal/model"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func NewStockCommand(opts *RootOptions) *cobra.Command {
	var (
		tenantFlag string
		lowOnly    bool
	)
	cmd := &cobra.Command{
		Use:   "stock",
		Short: "List stock levels derived from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openAgent(opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			tenant, err := resolveTenant(cmd.Context(), a, tenantFlag)
			if err != nil {
				return err
			}
			levels, err := a.store.StockLevels(cmd.Context(), tenant)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to compute stock levels", err)
			}
			if lowOnly {
				levels = lo.Filter(levels, func(p model.ProductStock, _ int) bool { return p.LowStock() })
			}

			return output(cmd, opts, levels, func() error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SKU\tNAME\tSTOCK\tREORDER")
				for _, p := range levels {
					fmt.Fprintf(tw, "%s\t%s\t%g\t%g\n", p.SKU, p.Name, p.Stock, p.ReorderLevel)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&tenantFlag, "tenant", "", "tenant uuid (default: the activated tenant)")
	cmd.Flags().BoolVar(&lowOnly, "low", false, "only products at or below their reorder level")
	return cmd
}
