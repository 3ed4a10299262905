package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/fagan2888/bridge-data/internal/config"
	"github.com/fagan2888/bridge-data/internal/output"
	"github.com/fagan2888/bridge-data/internal/pipeline"
	"github.com/fagan2888/bridge-data/internal/resilience"
	"github.com/fagan2888/bridge-data/internal/store"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the configured inventory years",
	Long: `Loads the county reference table, then reads, recodes and writes each
selected inventory year. Years run concurrently; a failing year is reported
without stopping the others.`,
	Example: `  bridge-data clean
  bridge-data clean --years 2017 --format arrow
  bridge-data clean --store --replace`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		years, _ := cmd.Flags().GetIntSlice("years")
		formatFlag, _ := cmd.Flags().GetString("format")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		workers, _ := cmd.Flags().GetInt("workers")
		persist, _ := cmd.Flags().GetBool("store")
		replace, _ := cmd.Flags().GetBool("replace")

		mode := "clean"
		if persist {
			mode = "store"
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		if replace && !persist {
			return eris.New("clean: --replace requires --store")
		}

		if formatFlag == "" {
			formatFlag = cfg.Inventory.Format
		}
		format, err := output.ParseFormat(formatFlag)
		if err != nil {
			return err
		}

		reg, err := buildRegistry(cfg.Inventory)
		if err != nil {
			return err
		}

		var st store.Store
		if persist {
			st, err = initStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		eng := pipeline.NewEngine(pipeline.Config{
			GeocodesPath:       cfg.Inventory.GeocodesPath,
			GeocodesHeaderRows: cfg.Inventory.GeocodesHeaderRows,
			OutputDir:          cfg.Inventory.OutputDir,
			Encoding:           cfg.Inventory.Encoding,
			Workers:            cfg.Inventory.Workers,
			MetricsTextfile:    cfg.Metrics.Textfile,
			StoreRetry:         resilience.RetryConfig{MaxAttempts: cfg.Store.RetryAttempts},
		}, reg, st, nil)

		res, err := eng.Run(ctx, pipeline.RunOpts{
			Years:     years,
			Format:    format,
			OutputDir: outputDir,
			Workers:   workers,
			Store:     persist,
			Replace:   replace,
		})
		if res != nil {
			formatYearResults(cmd.OutOrStdout(), res.Years)
			if res.ManifestPath != "" {
				fmt.Fprintf(os.Stderr, "Manifest: %s\n", res.ManifestPath)
			}
		}
		if err != nil {
			return eris.Wrap(err, "clean")
		}
		return nil
	},
}

func init() {
	cleanCmd.Flags().IntSlice("years", nil, "inventory years to process (default all configured)")
	cleanCmd.Flags().String("format", "", "output format: csv, arrow or shp (default from config)")
	cleanCmd.Flags().String("output-dir", "", "output directory (default from config)")
	cleanCmd.Flags().Int("workers", 0, "transform workers per year (default from config)")
	cleanCmd.Flags().Bool("store", false, "save cleaned records and a run log entry to the store")
	cleanCmd.Flags().Bool("replace", false, "replace each stored year instead of upserting (requires --store)")
	rootCmd.AddCommand(cleanCmd)
}

// buildRegistry registers every configured year.
func buildRegistry(inv config.InventoryConfig) (*pipeline.Registry, error) {
	var datasets []pipeline.Dataset
	for _, y := range inv.ResolvedYears() {
		datasets = append(datasets, pipeline.Dataset{Year: y.Year, RawPath: y.RawPath})
	}
	return pipeline.NewRegistry(datasets...)
}

// formatYearResults writes a per-year summary table to out.
func formatYearResults(out io.Writer, results []pipeline.YearResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "YEAR\tSTATUS\tRAW\tCLEAN\tFIPS MISS\tSTORED\tOUTPUT\tERROR")
	_, _ = fmt.Fprintln(w, "----\t------\t---\t-----\t---------\t------\t------\t-----")

	for _, r := range results {
		status := "ok"
		errMsg := ""
		if r.Err != nil {
			status = "failed"
			errMsg = truncate(r.Err.Error(), 60)
		}
		stored := "-"
		if r.Stored {
			stored = fmt.Sprintf("%d", r.StoredRows)
		}
		outPath := r.OutputPath
		if outPath == "" {
			outPath = "-"
		}

		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.Dataset.Year,
			status,
			r.RawRows,
			r.CleanRows,
			r.Summary.FIPSMisses,
			stored,
			outPath,
			errMsg,
		)
	}
	_ = w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
