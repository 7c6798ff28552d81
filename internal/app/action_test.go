package app

import (
	"strings"
	"testing"
	"time"

	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/lists"
)

func testSnapshot() *inventory.Snapshot {
	profile := inventory.Profile{Serial: "emulator-5554", User: 0}
	return &inventory.Snapshot{
		Profile: profile,
		Taken:   time.Now(),
		Packages: []inventory.Package{
			{Name: "com.vendor.bloatware", Installed: true, Enabled: true, Tier: lists.TierRecommended, Profile: profile},
			{Name: "com.oem.launcher", Installed: true, Enabled: true, System: true, Tier: lists.TierUnsafe, Profile: profile},
			{Name: "com.oem.dialershim", Installed: true, Enabled: true, Tier: lists.TierExpert, Profile: profile},
		},
	}
}

func TestBuildSelection_ResolvesPackages(t *testing.T) {
	actionFlagForce = false
	snap := testSnapshot()

	selection, err := buildSelection(snap, []string{"com.vendor.bloatware"}, journal.KindUninstall)
	if err != nil {
		t.Fatalf("buildSelection: %v", err)
	}
	if len(selection) != 1 {
		t.Fatalf("got %d selections, want 1", len(selection))
	}
	if selection[0].Package.Name != "com.vendor.bloatware" {
		t.Errorf("selected %q", selection[0].Package.Name)
	}
	if selection[0].Kind != journal.KindUninstall {
		t.Errorf("kind = %q", selection[0].Kind)
	}
}

func TestBuildSelection_UnknownPackage(t *testing.T) {
	actionFlagForce = false
	_, err := buildSelection(testSnapshot(), []string{"com.not.there"}, journal.KindDisable)
	if err == nil {
		t.Fatal("expected error for unknown package")
	}
	if !strings.Contains(err.Error(), "com.not.there") {
		t.Errorf("error should name the package: %v", err)
	}
}

func TestBuildSelection_UnsafeTierNeedsForce(t *testing.T) {
	actionFlagForce = false
	_, err := buildSelection(testSnapshot(), []string{"com.oem.launcher"}, journal.KindDisable)
	if err == nil {
		t.Fatal("unsafe tier should be rejected without --force")
	}
	if !strings.Contains(err.Error(), "--force") {
		t.Errorf("error should mention --force: %v", err)
	}

	actionFlagForce = true
	defer func() { actionFlagForce = false }()
	if _, err := buildSelection(testSnapshot(), []string{"com.oem.launcher"}, journal.KindDisable); err != nil {
		t.Fatalf("unsafe tier with --force: %v", err)
	}
}

func TestBuildSelection_EnableSkipsTierGate(t *testing.T) {
	// Re-enabling can only give functionality back.
	actionFlagForce = false
	if _, err := buildSelection(testSnapshot(), []string{"com.oem.launcher"}, journal.KindEnable); err != nil {
		t.Fatalf("enable should bypass the tier gate: %v", err)
	}
}
