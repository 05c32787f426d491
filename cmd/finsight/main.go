// Command finsight is the command-line client: identify symbols, browse and
// resolve fields, query financial data, mint API tokens and manage the cache.
package main

import (
	"os"

	"github.com/bobmcallan/finsight/cmd/finsight/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
