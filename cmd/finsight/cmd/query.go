package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/finsight/internal/models"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	var (
		fields  []string
		start   string
		end     string
		period  string
		noFuzzy bool
	)

	cmd := &cobra.Command{
		Use:   "query <symbol>",
		Short: "Fetch financial records for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.QueryRequest{Symbol: args[0], Fields: fields}

			var err error
			if req.StartDate, err = models.ParseQueryDate(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if req.EndDate, err = models.ParseQueryDate(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if period != "" {
				if req.PeriodType, err = models.ParsePeriodType(period); err != nil {
					return err
				}
			}
			if noFuzzy {
				allow := false
				req.AllowFuzzy = &allow
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Query.Query(cmd.Context(), req)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("query failed: %s", result.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "field terms to project (comma separated)")
	cmd.Flags().StringVar(&start, "start", "", "earliest report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "latest report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&period, "period", "", "report period (annual, quarterly, ...)")
	cmd.Flags().BoolVar(&noFuzzy, "no-fuzzy", false, "demote fuzzy matches to suggestions")
	return cmd
}
