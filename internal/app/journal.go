package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/output"
)

var (
	journalFlagPackage string
	journalFlagLimit   int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show the undo journal",
	Long: `Show the recorded debloat actions, newest first. Every mutation
adbprune performs is journaled with the package's prior state, which is
what 'adbprune restore' replays.`,
	Example: `  adbprune journal
  adbprune journal --package com.vendor.bloatware
  adbprune journal --limit 10`,
	RunE: runJournal,
}

func init() {
	journalCmd.Flags().StringVarP(&journalFlagPackage, "package", "p", "", "only show records for this package")
	journalCmd.Flags().IntVarP(&journalFlagLimit, "limit", "n", 50, "maximum records to show")

	RootCmd.AddCommand(journalCmd)
}

func runJournal(cmd *cobra.Command, args []string) error {
	jr, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer jr.Close()

	records, err := jr.List(journalFlagPackage, journalFlagLimit)
	if err != nil {
		if errors.Is(err, journal.ErrNotInitialized) {
			fmt.Println("No actions recorded yet.")
			return nil
		}
		return fmt.Errorf("failed to read journal: %w", err)
	}

	fmt.Print(output.RenderJournalTable(records))
	return nil
}
