package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/adbprune/internal/adb"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/lists"
)

// fakeLister serves canned pm listings keyed by option shape.
type fakeLister struct {
	all       []string
	installed []string
	enabled   []string
	system    []string
	err       error
	calls     int
}

func (f *fakeLister) ListPackages(_ context.Context, _ string, _ uint16, opts adb.ListOptions) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if opts.SystemOnly {
		return f.system, nil
	}
	switch opts.Filter {
	case adb.ListIncludeUninstalled:
		return f.all, nil
	case adb.ListOnlyEnabled:
		return f.enabled, nil
	default:
		return f.installed, nil
	}
}

type fakeTiers map[string]*lists.Entry

func (f fakeTiers) Lookup(pkg string) (*lists.Entry, bool) {
	e, ok := f[pkg]
	return e, ok
}

var testProfile = Profile{Serial: "ABC123", User: 0}

func TestRefresh_ReconcilesListings(t *testing.T) {
	transport := &fakeLister{
		all:       []string{"com.example.bloat", "com.vendor.gone", "com.vendor.sleepy", "com.sys.core"},
		installed: []string{"com.example.bloat", "com.vendor.sleepy", "com.sys.core"},
		enabled:   []string{"com.example.bloat", "com.sys.core"},
		system:    []string{"com.sys.core"},
	}
	inv := New(transport, fakeTiers{})

	snap, err := inv.Refresh(context.Background(), testProfile)
	require.NoError(t, err)
	require.Len(t, snap.Packages, 4)

	bloat, ok := snap.Find("com.example.bloat")
	require.True(t, ok)
	assert.True(t, bloat.Installed)
	assert.True(t, bloat.Enabled)
	assert.False(t, bloat.System)

	// Uninstalled for this user, still on the system image.
	gone, _ := snap.Find("com.vendor.gone")
	assert.False(t, gone.Installed)
	assert.False(t, gone.Enabled)

	// Installed but disabled.
	sleepy, _ := snap.Find("com.vendor.sleepy")
	assert.True(t, sleepy.Installed)
	assert.False(t, sleepy.Enabled)

	core, _ := snap.Find("com.sys.core")
	assert.True(t, core.System)
}

func TestRefresh_EmptyProfileIsNotAnError(t *testing.T) {
	inv := New(&fakeLister{}, fakeTiers{})

	snap, err := inv.Refresh(context.Background(), testProfile)
	require.NoError(t, err)
	assert.Empty(t, snap.Packages)
}

func TestRefresh_PropagatesTransportError(t *testing.T) {
	transport := &fakeLister{err: adb.ErrDeviceUnavailable}
	inv := New(transport, fakeTiers{})

	_, err := inv.Refresh(context.Background(), testProfile)
	assert.True(t, errors.Is(err, adb.ErrDeviceUnavailable))
}

func TestRefresh_AttachesTiersAtRefreshTime(t *testing.T) {
	transport := &fakeLister{
		all:       []string{"com.example.bloat"},
		installed: []string{"com.example.bloat"},
		enabled:   []string{"com.example.bloat"},
	}
	tiers := fakeTiers{}
	inv := New(transport, tiers)

	snap, err := inv.Refresh(context.Background(), testProfile)
	require.NoError(t, err)
	pkg, _ := snap.Find("com.example.bloat")
	assert.Equal(t, lists.TierUnlisted, pkg.Tier, "unlisted packages are flagged, never rejected")

	// A list update propagates on the next refresh without any device
	// re-scan beyond the normal listing pull.
	entry := &lists.Entry{Package: "com.example.bloat", Label: "Bloat", Removal: "recommended"}
	tiers["com.example.bloat"] = entry

	snap, err = inv.Refresh(context.Background(), testProfile)
	require.NoError(t, err)
	pkg, _ = snap.Find("com.example.bloat")
	assert.Equal(t, "Bloat", pkg.Label)
}

func TestSnapshot_BeforeRefresh(t *testing.T) {
	inv := New(&fakeLister{}, fakeTiers{})
	_, ok := inv.Snapshot(testProfile)
	assert.False(t, ok)
}

func TestApply_ReplacesSnapshotWholesale(t *testing.T) {
	transport := &fakeLister{
		all:       []string{"com.example.bloat", "com.other.app"},
		installed: []string{"com.example.bloat", "com.other.app"},
		enabled:   []string{"com.example.bloat", "com.other.app"},
	}
	inv := New(transport, fakeTiers{})

	_, err := inv.Refresh(context.Background(), testProfile)
	require.NoError(t, err)
	before, _ := inv.Snapshot(testProfile)

	inv.Apply(testProfile, "com.example.bloat", journal.PackageState{Installed: false, Enabled: false})

	after, ok := inv.Snapshot(testProfile)
	require.True(t, ok)
	pkg, _ := after.Find("com.example.bloat")
	assert.False(t, pkg.Installed)

	// Readers holding the old snapshot never see a mix.
	old, _ := before.Find("com.example.bloat")
	assert.True(t, old.Installed)

	other, _ := after.Find("com.other.app")
	assert.True(t, other.Installed, "unrelated packages are untouched")
}

func TestRefresh_DeduplicatesPmOutput(t *testing.T) {
	transport := &fakeLister{
		all:       []string{"com.example.bloat", "com.example.bloat"},
		installed: []string{"com.example.bloat"},
	}
	inv := New(transport, fakeTiers{})

	snap, err := inv.Refresh(context.Background(), testProfile)
	require.NoError(t, err)
	assert.Len(t, snap.Packages, 1)
}
