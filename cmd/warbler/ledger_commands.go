package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"warbler/internal/ledger"
)

func newLedgerCommand(cmdCtx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the acquisition ledger",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(cmdCtx))
	ledgerCmd.AddCommand(newLedgerFailedCommand(cmdCtx))

	return ledgerCmd
}

func newLedgerListCommand(cmdCtx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			status := ledger.Status(statusFlag)
			if statusFlag != "" && !status.Valid() {
				return fmt.Errorf("unknown status %q", statusFlag)
			}

			entries, err := store.List(cmd.Context(), status)
			if err != nil {
				return fmt.Errorf("list ledger: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Ledger is empty")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.DescriptorID,
					e.ScientificName,
					e.CommonName,
					e.Quality,
					string(e.Status),
					strconv.Itoa(e.Attempts),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Species", "Common Name", "Q", "Status", "Attempts"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))

			counts, err := store.CountByStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("count ledger: %w", err)
			}
			fmt.Fprintf(out, "%d entries: %d success, %d failed, %d skipped\n",
				counts.Total, counts.Success, counts.Failed, counts.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status (success, failed, skipped_duplicate)")
	return cmd
}

func newLedgerFailedCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "failed",
		Short: "Show failed acquisitions and why they failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), ledger.StatusFailed)
			if err != nil {
				return fmt.Errorf("list ledger: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No failed acquisitions")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.DescriptorID,
					e.ScientificName,
					e.ErrorKind,
					e.ErrorMessage,
					strconv.Itoa(e.Attempts),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Species", "Kind", "Error", "Attempts"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintln(out, "Failed entries are retried automatically on the next collect run.")
			return nil
		},
	}
}
