package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"warbler/internal/collect"
	"warbler/internal/config"
	"warbler/internal/logging"
)

func newCollectCommand(cmdCtx *commandContext) *cobra.Command {
	var boxFlag string
	var taxonFlag string
	var maxFlag int
	var concurrencyFlag int
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Download recordings for the configured region into the corpus",
		Long: `Collect queries the Xeno-canto catalog for recordings inside the configured
bounding box, downloads them with bounded concurrency, organizes them by
species, and records every outcome in the ledger. Re-running only acquires
recordings that are not already recorded as successful.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			if boxFlag != "" {
				region, err := parseBox(boxFlag)
				if err != nil {
					return err
				}
				cfg.Region = region
			}
			if taxonFlag != "" {
				cfg.Query.Taxon = taxonFlag
			}
			if cmd.Flags().Changed("max") {
				cfg.Query.MaxRecordings = maxFlag
			}
			if cmd.Flags().Changed("concurrency") {
				cfg.Download.Concurrency = concurrencyFlag
			}
			if outputFlag != "" {
				expanded, err := config.ExpandPath(outputFlag)
				if err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
				cfg.Paths.OutputDir = expanded
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, runErr := collect.Run(runCtx, cfg, logger)
			if result != nil {
				printSummary(cmd, result)
			}
			if runErr != nil {
				if errors.Is(runErr, collect.ErrAlreadyRunning) {
					return runErr
				}
				return fmt.Errorf("collection failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&boxFlag, "box", "", "Bounding box as south,west,north,east, overrides config")
	cmd.Flags().StringVar(&taxonFlag, "taxon", "", "Extra catalog query term, e.g. grp:birds")
	cmd.Flags().IntVar(&maxFlag, "max", 0, "Maximum recordings to acquire (0 = no cap)")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Concurrent download workers")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output directory root")

	return cmd
}

// parseBox parses "south,west,north,east" into a region.
func parseBox(value string) (config.Region, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return config.Region{}, fmt.Errorf("box must be south,west,north,east, got %q", value)
	}
	coords := make([]float64, 4)
	for i, part := range parts {
		coord, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return config.Region{}, fmt.Errorf("box coordinate %d: %w", i+1, err)
		}
		coords[i] = coord
	}
	return config.Region{South: coords[0], West: coords[1], North: coords[2], East: coords[3]}, nil
}

func printSummary(cmd *cobra.Command, result *collect.Result) {
	out := cmd.OutOrStdout()
	rows := [][]string{
		{"Attempted", strconv.Itoa(result.Stats.Attempted)},
		{"Succeeded", strconv.Itoa(result.Stats.Succeeded)},
		{"Failed", strconv.Itoa(result.Stats.Failed)},
		{"Skipped", strconv.Itoa(result.Stats.Skipped)},
		{"Species", strconv.Itoa(result.Species)},
		{"Downloaded", humanize.Bytes(uint64(result.Stats.Bytes))},
		{"Duration", result.Duration.Round(durationPrecision).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
	fmt.Fprintf(out, "Metadata snapshot: %s\n", result.SnapshotPath)
	if result.Stats.Failed > 0 {
		fmt.Fprintf(out, "%d recordings failed; run `warbler ledger failed` for details. They will be retried on the next run.\n", result.Stats.Failed)
	}
}
