package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/adbprune/internal/adb"
	"github.com/blackwell-systems/adbprune/internal/executor"
	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/lists"
	"github.com/blackwell-systems/adbprune/internal/output"
	"github.com/blackwell-systems/adbprune/internal/planner"
	"github.com/blackwell-systems/adbprune/internal/registry"
	"github.com/blackwell-systems/adbprune/internal/session"
)

// newADB builds the transport from the effective config.
func newADB() *adb.ADB {
	return adb.New(cfg.ADBPath)
}

// openJournal opens the undo journal, creating its directory and schema
// on first use.
func openJournal() (*journal.Journal, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := j.CreateSchema(); err != nil {
		j.Close()
		return nil, fmt.Errorf("failed to initialize journal: %w", err)
	}
	return j, nil
}

// loadLists loads the recommendation lists. A missing file degrades to an
// empty source: every package reads as unlisted.
func loadLists() (*lists.Source, error) {
	src, err := lists.Load(cfg.ListsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load debloat lists: %w", err)
	}
	return src, nil
}

// resolveProfile picks the target device and user profile. With --device
// the serial must be connected; otherwise exactly one connected device is
// required.
func resolveProfile(ctx context.Context, client *adb.ADB) (inventory.Profile, error) {
	reg := registry.New(client)
	devices, err := reg.Discover(ctx)
	if err != nil {
		return inventory.Profile{}, fmt.Errorf("failed to discover devices: %w", err)
	}

	var target *registry.Device
	if flagDevice != "" {
		for i := range devices {
			if devices[i].Serial == flagDevice {
				target = &devices[i]
				break
			}
		}
		if target == nil {
			return inventory.Profile{}, fmt.Errorf("device %s not found; run 'adbprune devices'", flagDevice)
		}
	} else {
		var connected []*registry.Device
		for i := range devices {
			if devices[i].State == registry.Connected {
				connected = append(connected, &devices[i])
			}
		}
		switch len(connected) {
		case 0:
			return inventory.Profile{}, fmt.Errorf("no connected devices; run 'adbprune devices'")
		case 1:
			target = connected[0]
		default:
			serials := make([]string, len(connected))
			for i, dev := range connected {
				serials[i] = dev.Serial
			}
			sort.Strings(serials)
			return inventory.Profile{}, fmt.Errorf("multiple devices connected, pick one with --device: %s",
				strings.Join(serials, ", "))
		}
	}

	if target.State != registry.Connected {
		return inventory.Profile{}, fmt.Errorf("device %s is %s; authorize it first ('adbprune devices --wait')",
			target.Serial, target.State)
	}

	for _, p := range target.Profiles {
		if p.User == flagUser {
			return p, nil
		}
	}
	return inventory.Profile{}, fmt.Errorf("user profile %d not found on %s", flagUser, target.Serial)
}

// refreshInventory builds a fresh snapshot for the profile.
func refreshInventory(ctx context.Context, client *adb.ADB, src *lists.Source, profile inventory.Profile) (*inventory.Inventory, *inventory.Snapshot, error) {
	inv := inventory.New(client, src)
	snap, err := inv.Refresh(ctx, profile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read packages from %s: %w", profile, err)
	}
	return inv, snap, nil
}

// runBatch executes a plan and renders progress plus the final results.
// Returns an error when any action failed, so the process exits non-zero.
func runBatch(ctx context.Context, client *adb.ADB, jr *journal.Journal, inv *inventory.Inventory, plan *planner.Plan) error {
	exec := executor.New(client, jr,
		executor.WithMaxAttempts(cfg.MaxAttempts),
		executor.WithInventory(inv))
	runner := session.New(exec, jr, session.WithMaxDeviceParallel(cfg.MaxDeviceParallel))

	started := time.Now()
	sess := runner.Start(ctx, plan)

	bar := output.NewProgress(len(plan.Requests))
	prog := bar.Watch(sess)

	fmt.Println()
	fmt.Print(output.RenderResultTable(sess.Results()))
	fmt.Println()
	fmt.Println(output.RenderProgressSummary(prog, time.Since(started)))

	if prog.Failed > 0 {
		return fmt.Errorf("%d of %d actions failed", prog.Failed, prog.Total())
	}
	return nil
}

// confirm prompts the user before mutating the device.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
