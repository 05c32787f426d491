package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bobmcallan/finsight/internal/models"
)

func newFieldsCmd(opts *rootOptions) *cobra.Command {
	var market string

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List configured fields, or the configuration summary when no market is given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if market == "" {
				return printJSON(cmd.OutOrStdout(), a.Fields.Summary())
			}
			m, err := models.ParseMarket(market)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.Fields.MarketFields(m))
		},
	}

	cmd.Flags().StringVar(&market, "market", "", "market code (CN, HK, US)")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <market> <term>",
		Short: "Rank a market's fields against a search term",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMarket(args[0])
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			return printJSON(cmd.OutOrStdout(), a.Fields.Search(m, args[1], limit))
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of candidates")
	return cmd
}
