// Package cmd implements the finsight command-line client.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/finsight/internal/app"
	"github.com/bobmcallan/finsight/internal/common"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile string
}

// Execute builds the command tree and runs it against os.Args.
func Execute() error {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "finsight",
		Short: "Financial statements for CN / HK / US equities",
		Long: `finsight identifies equity symbols, resolves human field names onto
provider-native financial statement fields and queries the data provider.`,
		Version:       common.GetFullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: FINSIGHT_CONFIG or config/finsight.toml)")

	rootCmd.AddCommand(
		newIdentifyCmd(opts),
		newFieldsCmd(opts),
		newSearchCmd(opts),
		newResolveCmd(opts),
		newQueryCmd(opts),
		newTokenCmd(opts),
		newCacheCmd(opts),
	)

	return rootCmd
}

// initConfig loads a .env file when present. Real environment variables win.
func initConfig() error {
	_ = godotenv.Load()
	return nil
}

func (o *rootOptions) loadConfig() (*common.Config, error) {
	config, err := common.LoadConfig(common.ResolveConfigPath(o.configFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return config, nil
}

// openApp initializes the full application. Callers must Close it.
func (o *rootOptions) openApp() (*app.App, error) {
	return app.NewApp(o.configFile)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
