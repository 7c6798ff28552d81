package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/config"
	"github.com/blackwell-systems/adbprune/internal/logging"
)

var (
	cfgPath    string
	flagADB    string
	flagDevice string
	flagUser   uint16
	verbosity  int

	// cfg is loaded once in PersistentPreRunE and read by every command.
	cfg config.Config

	// RootCmd is the root command for adbprune
	RootCmd = &cobra.Command{
		Use:   "adbprune",
		Short: "Safe, reversible debloating for Android devices over ADB",
		Long: `adbprune removes or deactivates pre-installed apps on Android devices
over ADB, without root. Every mutation is journaled with the package's
prior state so it can be undone with a single command.

Packages are matched against community debloat lists and classified into
recommendation tiers (recommended, advanced, expert, unsafe) so you know
what is safe to remove before touching anything.

Quick Start:
  1. Enable USB debugging on the device and plug it in
  2. adbprune devices              # confirm the device is authorized
  3. adbprune list --tier recommended
  4. adbprune uninstall com.vendor.bloatware
  5. adbprune restore com.vendor.bloatware   # changed your mind

Examples:
  # Show connected devices and their user profiles
  adbprune devices

  # List installed packages with their recommendation tier
  adbprune list

  # Disable instead of uninstalling (safest for system apps)
  adbprune disable com.carrier.telemetry

  # Review everything done to this device
  adbprune journal

  # Bring a package back
  adbprune restore com.vendor.bloatware`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(verbosity, os.Stderr)

			path := cfgPath
			if path == "" {
				path = config.Path()
			}
			var err error
			cfg, err = config.Load(path)
			if err != nil {
				return err
			}
			if flagADB != "" {
				cfg.ADBPath = flagADB
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("adbprune: safe, reversible Android debloating over ADB")
			fmt.Println()
			fmt.Println("Run 'adbprune devices' to check connected devices.")
			fmt.Println("Run 'adbprune list' to see what can be removed.")
			fmt.Println("Run 'adbprune --help' for the full reference.")
			return nil
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ~/.config/adbprune/config.toml)")
	RootCmd.PersistentFlags().StringVar(&flagADB, "adb", "", "adb binary to use (overrides config)")
	RootCmd.PersistentFlags().StringVarP(&flagDevice, "device", "d", "", "target device serial (default: the only connected device)")
	RootCmd.PersistentFlags().Uint16VarP(&flagUser, "user", "u", 0, "target Android user profile")
	RootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so in-flight batches wind down cooperatively.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}
