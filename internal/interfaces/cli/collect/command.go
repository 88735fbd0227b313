package collect

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/application/collector"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/bootstrap"
)

var (
	env   string
	force bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Snapshot the current price list into the history tables",
		Long: `Store every item of the current price list as a history record, the same
step the midnight job runs before it clears the cache.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&force, "force", false, "Fetch a fresh list from upstream instead of the cached one")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{Env: env, WithServices: true})
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.Collector.CollectAllCurrentPrices(cmd.Context(), force)
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return fmt.Errorf("collection failed: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, s *collector.Summary) {
	fmt.Fprintf(w, "\nCollection Summary:\n")
	fmt.Fprintf(w, "  Statistics Date: %s\n", s.StatisticsDate)
	fmt.Fprintf(w, "  Exchange Rate:   %s (%s)\n", s.ExchangeRate.String(), s.RateSource)
	fmt.Fprintf(w, "  Saved:           %d\n", s.TotalSaved)
	fmt.Fprintf(w, "  Failed:          %d\n", s.TotalFailed)
	fmt.Fprintf(w, "  Skipped:         %d\n", s.TotalSkipped)
	fmt.Fprintf(w, "  Duration:        %s\n", s.Duration)

	names := make([]string, 0, len(s.Materials))
	for name := range s.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ms := s.Materials[name]
		fmt.Fprintf(w, "  %-9s saved=%d failed=%d skipped=%d\n", name, ms.Saved, ms.Failed, ms.Skipped)
		for _, e := range ms.Errors {
			fmt.Fprintf(w, "    ! %s\n", e)
		}
	}
}
