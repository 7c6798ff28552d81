package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/lists"
	"github.com/blackwell-systems/adbprune/internal/output"
)

var (
	listFlagAll    bool
	listFlagTier   string
	listFlagSearch string
	listFlagSystem bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages on the device with their recommendation tier",
	Long: `List the packages installed for the target user profile, annotated
with the debloat recommendation tier from the loaded lists.

Tiers:
  recommended  safe to remove for virtually everyone
  advanced     safe for most users, may cost a minor feature
  expert       removal can break specific functionality
  unsafe       known to break core functionality; kept for reference
  unlisted     not present in the lists; no guidance available

Removed packages (uninstalled for this user but still on the system
image) are hidden unless --all is given.`,
	Example: `  adbprune list
  adbprune list --tier recommended
  adbprune list --search facebook
  adbprune list --all              # include removed packages
  adbprune list --system           # system packages only`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listFlagAll, "all", "a", false, "include packages removed for this user")
	listCmd.Flags().StringVarP(&listFlagTier, "tier", "t", "", "only show the given tier")
	listCmd.Flags().StringVarP(&listFlagSearch, "search", "s", "", "filter by package name substring")
	listCmd.Flags().BoolVar(&listFlagSystem, "system", false, "only show system packages")

	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var tierFilter lists.Tier
	filterByTier := listFlagTier != ""
	if filterByTier {
		tierFilter = lists.ParseTier(listFlagTier)
		if tierFilter == lists.TierUnlisted && listFlagTier != lists.TierUnlisted.String() {
			return fmt.Errorf("invalid tier %q (use recommended, advanced, expert, unsafe or unlisted)", listFlagTier)
		}
	}

	client := newADB()
	src, err := loadLists()
	if err != nil {
		return err
	}
	profile, err := resolveProfile(ctx, client)
	if err != nil {
		return err
	}
	_, snap, err := refreshInventory(ctx, client, src, profile)
	if err != nil {
		return err
	}

	var shown []inventory.Package
	for _, pkg := range snap.Packages {
		if !listFlagAll && !pkg.Installed {
			continue
		}
		if listFlagSystem && !pkg.System {
			continue
		}
		if filterByTier && pkg.Tier != tierFilter {
			continue
		}
		if listFlagSearch != "" && !strings.Contains(pkg.Name, listFlagSearch) {
			continue
		}
		shown = append(shown, pkg)
	}

	fmt.Printf("Device %s, user %d: %d packages\n", profile.Serial, profile.User, len(shown))
	fmt.Println(output.RenderTierSummary(shown))
	fmt.Println()
	fmt.Print(output.RenderPackageTable(shown))
	return nil
}
