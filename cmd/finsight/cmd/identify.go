package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/finsight/internal/models"
	"github.com/bobmcallan/finsight/internal/symbols"
)

type identification struct {
	Input          string        `json:"input"`
	Market         models.Market `json:"market"`
	Symbol         string        `json:"symbol"`
	ProviderSymbol string        `json:"provider_symbol"`
}

func newIdentifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "identify <symbol>...",
		Short: "Classify symbols by market and normalize them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := opts.loadConfig()
			if err != nil {
				return err
			}

			var idOpts []symbols.Option
			if config.Fields.DefaultMarket != "" {
				m, err := models.ParseMarket(config.Fields.DefaultMarket)
				if err != nil {
					return fmt.Errorf("invalid fields.default_market: %w", err)
				}
				idOpts = append(idOpts, symbols.WithDefaultMarket(m))
			}
			identifier := symbols.NewIdentifier(idOpts...)

			out := make([]identification, 0, len(args))
			for _, raw := range args {
				market, symbol, err := identifier.Identify(raw)
				if err != nil {
					return err
				}
				out = append(out, identification{
					Input:          raw,
					Market:         market,
					Symbol:         symbol,
					ProviderSymbol: symbols.FormatForProvider(market, symbol),
				})
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}
