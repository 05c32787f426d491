package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/finsight/internal/common"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl string

	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Sign a bearer token for the REST API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := opts.loadConfig()
			if err != nil {
				return err
			}

			expiry := config.Auth.GetTokenExpiry()
			if ttl != "" {
				if expiry, err = time.ParseDuration(ttl); err != nil {
					return fmt.Errorf("invalid --ttl: %w", err)
				}
			}

			token, err := common.SignToken(args[0], expiry, &config.Auth)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&ttl, "ttl", "", "token lifetime (default: auth.token_expiry)")
	return cmd
}
