package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/lists"
	"github.com/blackwell-systems/adbprune/internal/output"
	"github.com/blackwell-systems/adbprune/internal/planner"
)

var (
	actionFlagYes    bool
	actionFlagForce  bool
	actionFlagDryRun bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <package>...",
	Short: "Uninstall packages for the target user",
	Long: `Uninstall packages for the target user profile.

The APK stays on the system image, so the package can be brought back
later with 'adbprune restore'. System packages cannot be uninstalled
without root; disable them instead.`,
	Example: `  adbprune uninstall com.vendor.bloatware
  adbprune uninstall com.vendor.bloatware com.carrier.telemetry --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args, journal.KindUninstall)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <package>...",
	Short: "Disable packages for the target user",
	Long: `Disable packages for the target user profile. The package stays
installed but stops running and disappears from the launcher. This is
the safest action for system packages.`,
	Example: `  adbprune disable com.carrier.telemetry`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args, journal.KindDisable)
	},
}

var enableCmd = &cobra.Command{
	Use:     "enable <package>...",
	Short:   "Re-enable previously disabled packages",
	Example: `  adbprune enable com.carrier.telemetry`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args, journal.KindEnable)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear <package>...",
	Short: "Clear stored data of packages",
	Long: `Clear the stored data and cache of packages for the target user.
The package itself is left installed and enabled.`,
	Example: `  adbprune clear com.vendor.browser`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, args, journal.KindClearData)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{uninstallCmd, disableCmd, enableCmd, clearCmd} {
		cmd.Flags().BoolVarP(&actionFlagYes, "yes", "y", false, "skip the confirmation prompt")
		cmd.Flags().BoolVar(&actionFlagForce, "force", false, "allow acting on unsafe-tier packages")
		cmd.Flags().BoolVar(&actionFlagDryRun, "dry-run", false, "validate and show the plan without touching the device")
		RootCmd.AddCommand(cmd)
	}
}

func runAction(cmd *cobra.Command, args []string, kind journal.ActionKind) error {
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

	selection, err := buildSelection(snap, args, kind)
	if err != nil {
		return err
	}

	plan, err := planner.New(jr).Plan(selection, profile)
	if err != nil {
		return err
	}

	if len(plan.Skipped) > 0 {
		fmt.Print(output.RenderSkips(plan.Skipped))
	}
	if len(plan.Requests) == 0 {
		fmt.Println("Nothing to do.")
		return nil
	}

	if actionFlagDryRun {
		fmt.Printf("Would %s %d package(s) on %s (user %d):\n",
			kind, len(plan.Requests), profile.Serial, profile.User)
		for _, req := range plan.Requests {
			fmt.Printf("  - %s (%s)\n", req.Package.Name, req.Package.Tier)
		}
		return nil
	}

	if !actionFlagYes {
		fmt.Printf("\nAbout to %s %d package(s) on %s (user %d):\n",
			kind, len(plan.Requests), profile.Serial, profile.User)
		for _, req := range plan.Requests {
			fmt.Printf("  - %s (%s)\n", req.Package.Name, req.Package.Tier)
		}
		if !confirm(fmt.Sprintf("\nProceed with %d action(s)?", len(plan.Requests))) {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	return runBatch(ctx, client, jr, inv, plan)
}

// buildSelection resolves package arguments against the snapshot and
// applies the tier safety gate for destructive actions.
func buildSelection(snap *inventory.Snapshot, args []string, kind journal.ActionKind) ([]planner.Selection, error) {
	destructive := kind == journal.KindUninstall || kind == journal.KindDisable || kind == journal.KindClearData

	selection := make([]planner.Selection, 0, len(args))
	for _, name := range args {
		pkg, ok := snap.Find(name)
		if !ok {
			return nil, fmt.Errorf("package %s not found on %s; check 'adbprune list --all'", name, snap.Profile)
		}
		if destructive && pkg.Tier == lists.TierUnsafe && !actionFlagForce {
			return nil, fmt.Errorf("%s is tier unsafe (known to break core functionality); pass --force to override", name)
		}
		if destructive && pkg.Tier == lists.TierExpert {
			fmt.Printf("⚠  %s is tier expert: removal can break specific functionality\n", name)
		}
		selection = append(selection, planner.Selection{Package: pkg, Kind: kind})
	}
	return selection, nil
}
