package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bobmcallan/finsight/internal/interfaces"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var (
		available []string
		noFuzzy   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <symbol> <term>...",
		Short: "Resolve field terms onto a symbol's native field names",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Resolver.ResolveDetailedAsync(cmd.Context(), args[0], args[1:], interfaces.ResolveOptions{
				AvailableFields: available,
				DisableFuzzy:    noFuzzy,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringSliceVar(&available, "available", nil, "native field names present in the symbol's data")
	cmd.Flags().BoolVar(&noFuzzy, "no-fuzzy", false, "demote fuzzy matches to suggestions")
	return cmd
}
