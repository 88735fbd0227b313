// Package history provides the import command that backfills the history
// tables from the upstream statistics endpoint.
package history

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ippgi/ippgi-prices/internal/application/importer"
	"github.com/ippgi/ippgi-prices/internal/interfaces/cli/bootstrap"
	"github.com/ippgi/ippgi-prices/internal/shared/biztime"
)

var (
	env      string
	from     string
	to       string
	material string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import historical prices for a date range",
		Long: `Backfill the history tables with the upstream daily statistics of every
product currently listed. The range defaults to the configured lookback
ending yesterday.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "", "Environment (development, test, production)")
	cmd.Flags().StringVar(&from, "from", "", "First date to import (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Last date to import (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&material, "material", "m", "", "Import one material only (gi, gl, ppgi, hrc, crc_hard, al)")

	return cmd
}

// ResolveRange parses the flags; empty values default to lookbackDays days
// ending yesterday in the business timezone.
func ResolveRange(fromFlag, toFlag string, lookbackDays int, now time.Time) (time.Time, time.Time, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	end := biztime.StartOfDay(now).AddDate(0, 0, -1)
	if toFlag != "" {
		t, err := biztime.ParseDate(toFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: %w", toFlag, err)
		}
		end = t
	}

	start := end.AddDate(0, 0, -(lookbackDays - 1))
	if fromFlag != "" {
		f, err := biztime.ParseDate(fromFlag)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: %w", fromFlag, err)
		}
		start = f
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from %s is after --to %s", biztime.DateOf(start), biztime.DateOf(end))
	}
	return start, end, nil
}

func run(cmd *cobra.Command, args []string) error {
	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{Env: env, WithServices: true})
	if err != nil {
		return err
	}
	defer app.Close()

	start, end, err := ResolveRange(from, to, app.Config.Import.LookbackDays, biztime.NowUTC())
	if err != nil {
		return err
	}

	var summary *importer.Summary
	if material != "" {
		summary, err = app.Importer.ImportMaterial(cmd.Context(), material, start, end)
	} else {
		summary, err = app.Importer.ImportAllMaterials(cmd.Context(), start, end)
	}
	if summary != nil {
		printSummary(cmd.OutOrStdout(), summary)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, s *importer.Summary) {
	fmt.Fprintf(w, "\nImport Summary (%s to %s):\n", s.From, s.To)
	fmt.Fprintf(w, "  Records:    %d\n", s.TotalRecords)
	fmt.Fprintf(w, "  Successful: %d\n", s.Successful)
	fmt.Fprintf(w, "  Failed:     %d\n", s.Failed)
	fmt.Fprintf(w, "  Skipped:    %d\n", s.Skipped)
	fmt.Fprintf(w, "  Duration:   %s\n", s.Duration)

	names := make([]string, 0, len(s.Materials))
	for name := range s.Materials {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ms := s.Materials[name]
		fmt.Fprintf(w, "  %-9s specs=%d failed_specs=%d records=%d saved=%d failed=%d skipped=%d\n",
			name, ms.Specs, ms.FailedSpecs, ms.Records, ms.Successful, ms.Failed, ms.Skipped)
		for _, e := range ms.Errors {
			fmt.Fprintf(w, "    ! %s\n", e)
		}
	}
}
