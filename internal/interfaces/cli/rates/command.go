package rates

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/bootstrap"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/history"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
)

var (
	env   string
	from  string
	to    string
	force bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Exchange rate tools",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")

	cmd.AddCommand(newBackfillCommand())

	return cmd
}

func newBackfillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Store the daily USD/CNY rate for a date range",
		Long: `Fetch and store the rate of every day in the range. Days that already have
a stored rate are left alone unless --force is given.`,
		RunE: runBackfill,
	}

	cmd.Flags().StringVar(&from, "from", "", "First date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite rates that are already stored")

	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{Env: env, WithServices: true})
	if err != nil {
		return err
	}
	defer app.Close()

	start, end, err := history.ResolveRange(from, to, app.Config.Import.LookbackDays, biztime.NowUTC())
	if err != nil {
		return err
	}

	summary, err := app.Converter.BackfillRates(cmd.Context(), start, end, force)
	if summary != nil {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "\nRate Backfill Summary (%s to %s):\n", summary.From, summary.To)
		fmt.Fprintf(w, "  Days:     %d\n", summary.Days)
		fmt.Fprintf(w, "  Stored:   %d\n", summary.Stored)
		fmt.Fprintf(w, "  Fetched:  %d\n", summary.Fetched)
		fmt.Fprintf(w, "  Fallback: %d\n", summary.Fallback)
		fmt.Fprintf(w, "  Duration: %s\n", summary.Duration)
	}
	if err != nil {
		return fmt.Errorf("rate backfill failed: %w", err)
	}
	return nil
}
