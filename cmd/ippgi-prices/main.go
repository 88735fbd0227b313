package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/collect"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/history"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/migrate"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/rates"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/server"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/token"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "ippgi-prices",
		Short:   "Steel price ETL and API",
		Long:    `ippgi-prices fetches steel prices from the upstream pricing API, converts them to USD, caches them in Redis, snapshots them into MySQL and serves them over HTTP.`,
		Version: version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		server.NewCommand(version),
		migrate.NewCommand(),
		collect.NewCommand(),
		history.NewCommand(),
		rates.NewCommand(),
		token.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
