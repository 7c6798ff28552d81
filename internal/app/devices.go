package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/adbprune/internal/output"
	"github.com/blackwell-systems/adbprune/internal/registry"
)

var devicesFlagWait bool

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show connected devices and their user profiles",
	Long: `List every device adb can see, with its connection state and the
Android user profiles available on it.

A device shown as "authorization pending" is waiting for you to accept
the USB debugging prompt on its screen. Use --wait to block until the
prompt is accepted (or the 60 second window runs out).`,
	Example: `  adbprune devices
  adbprune devices --wait    # block until pending devices are authorized`,
	RunE: runDevices,
}

func init() {
	devicesCmd.Flags().BoolVar(&devicesFlagWait, "wait", false, "wait for unauthorized devices to be authorized")

	RootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	reg := registry.New(newADB())

	devices, err := reg.Discover(ctx)
	if err != nil {
		return fmt.Errorf("failed to discover devices: %w", err)
	}

	if devicesFlagWait {
		for _, dev := range devices {
			if dev.State != registry.AuthorizationPending {
				continue
			}
			spinner := output.NewSpinner(fmt.Sprintf("Waiting for authorization on %s", dev.Serial)).
				WithTimeout(60 * time.Second)
			spinner.Start()
			state, err := reg.Authorize(ctx, dev.Serial)
			if err != nil {
				spinner.StopWithMessage(fmt.Sprintf("✗ %s: %v", dev.Serial, err))
				continue
			}
			spinner.StopWithMessage(fmt.Sprintf("✓ %s is %s", dev.Serial, state))
		}
		// Re-discover so the table reflects the new states and profiles.
		devices, err = reg.Discover(ctx)
		if err != nil {
			return fmt.Errorf("failed to discover devices: %w", err)
		}
	}

	fmt.Print(output.RenderDeviceTable(devices))
	return nil
}
