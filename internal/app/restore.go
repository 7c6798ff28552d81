package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/output"
	"github.com/blackwell-systems/adbprune/internal/planner"
)

var restoreFlagYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <package>...",
	Short: "Undo the last debloat action on packages",
	Long: `Restore packages to the state recorded before they were last
uninstalled, disabled or otherwise debloated on this device and user
profile.

Restoration replays the journal: an uninstalled package is reinstalled
from the system image, a disabled one is re-enabled. A package with no
successful debloat record cannot be restored.`,
	Example: `  adbprune restore com.vendor.bloatware
  adbprune restore com.vendor.bloatware com.carrier.telemetry --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreFlagYes, "yes", "y", false, "skip the confirmation prompt")

	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client := newADB()
	src, err := loadLists()
	if err != nil {
		return err
	}
	jr, err := openJournal()
	if err != nil {
		return err
	}
	defer jr.Close()

	profile, err := resolveProfile(ctx, client)
	if err != nil {
		return err
	}
	inv, snap, err := refreshInventory(ctx, client, src, profile)
	if err != nil {
		return err
	}

	selection := make([]planner.Selection, 0, len(args))
	for _, name := range args {
		pkg, ok := snap.Find(name)
		if !ok {
			return fmt.Errorf("package %s not known on %s", name, snap.Profile)
		}
		selection = append(selection, planner.Selection{Package: pkg, Kind: journal.KindRestore})
	}

	plan, err := planner.New(jr).Plan(selection, profile)
	if err != nil {
		return err
	}

	if len(plan.Skipped) > 0 {
		fmt.Print(output.RenderSkips(plan.Skipped))
	}
	if len(plan.Requests) == 0 {
		fmt.Println("Nothing to restore.")
		return nil
	}

	if !restoreFlagYes {
		fmt.Printf("\nAbout to restore %d package(s) on %s (user %d):\n",
			len(plan.Requests), profile.Serial, profile.User)
		for _, req := range plan.Requests {
			fmt.Printf("  - %s\n", req.Package.Name)
		}
		if !confirm("\nProceed?") {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	return runBatch(ctx, client, jr, inv, plan)
}
