package app

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/journal"
)

var infoCmd = &cobra.Command{
	Use:   "info <package>",
	Short: "Show everything known about a package",
	Long: `Show the recommendation list entry for a package together with its
current state on the target device and its most recent journal record.`,
	Example: `  adbprune info com.vendor.bloatware`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name := args[0]

	src, err := loadLists()
	if err != nil {
		return err
	}

	fmt.Printf("Package: %s\n", name)

	if entry, ok := src.Lookup(name); ok {
		if entry.Label != "" {
			fmt.Printf("Label:   %s\n", entry.Label)
		}
		fmt.Printf("Tier:    %s\n", entry.Tier())
		fmt.Printf("List:    %s\n", entry.List)
		if entry.Description != "" {
			fmt.Printf("\n%s\n", entry.Description)
		}
	} else {
		fmt.Println("Tier:    unlisted (no guidance available)")
	}

	// Device state is best effort: info still works with nothing plugged in.
	client := newADB()
	if profile, err := resolveProfile(ctx, client); err == nil {
		if _, snap, err := refreshInventory(ctx, client, src, profile); err == nil {
			if pkg, ok := snap.Find(name); ok {
				fmt.Printf("\nOn %s:\n", profile)
				fmt.Printf("  Installed: %s\n", yesNo(pkg.Installed))
				fmt.Printf("  Enabled:   %s\n", yesNo(pkg.Enabled))
				fmt.Printf("  System:    %s\n", yesNo(pkg.System))
			} else {
				fmt.Printf("\nNot present on %s.\n", profile)
			}

			if jr, err := journal.Open(cfg.JournalPath); err == nil {
				defer jr.Close()
				rec, err := jr.Lookup(profile.Serial, profile.User, name)
				switch {
				case err == nil:
					fmt.Printf("\nLast action: %s (%s, %s)\n",
						rec.Kind, rec.Outcome, humanize.Time(rec.CreatedAt))
				case errors.Is(err, journal.ErrNoPriorState), errors.Is(err, journal.ErrNotInitialized):
					fmt.Println("\nNo recorded actions.")
				}
			}
		}
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
