// Package inventory maintains per-profile snapshots of installed package
// state.
//
// A refresh replaces a profile's snapshot wholesale; packages are never
// patched field-by-field from device output, which would risk observing
// stale partial state. The only mutation path outside refresh is Apply,
// called by the executor after a confirmed action.
package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blackwell-systems/adbprune/internal/adb"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/lists"
)

// Profile identifies one Android user on one device. It is an opaque
// handle back to the owning device, not a pointer into the registry.
type Profile struct {
	Serial string
	User   uint16
}

func (p Profile) String() string {
	return fmt.Sprintf("%s/user %d", p.Serial, p.User)
}

// Package is an immutable snapshot of one installed package's state,
// refreshed wholesale per inventory pull. Tier is derived at refresh time
// from the recommendation lookup and never stored on the device side.
type Package struct {
	Name      string
	Label     string
	System    bool
	Installed bool
	Enabled   bool
	Tier      lists.Tier
	Profile   Profile
}

// State returns the package's mutable fields as a journal snapshot.
func (p Package) State() journal.PackageState {
	return journal.PackageState{Installed: p.Installed, Enabled: p.Enabled, System: p.System}
}

// Snapshot is one complete, consistent package listing for a profile.
type Snapshot struct {
	Profile  Profile
	Packages []Package
	Taken    time.Time
}

// Find returns the package with the given identifier, or ok=false.
func (s *Snapshot) Find(name string) (Package, bool) {
	for _, p := range s.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return Package{}, false
}

// packageLister is the transport subset the inventory needs.
type packageLister interface {
	ListPackages(ctx context.Context, serial string, user uint16, opts adb.ListOptions) ([]string, error)
}

// tierSource resolves curated recommendations at refresh time.
type tierSource interface {
	Lookup(pkg string) (*lists.Entry, bool)
}

// Inventory caches the latest snapshot per profile. A refresh in progress
// is never observed partially: readers see the prior complete snapshot or
// the new one, swapped under the lock in a single store.
type Inventory struct {
	transport packageLister
	tiers     tierSource

	mu    sync.RWMutex
	snaps map[Profile]*Snapshot
}

// New creates an Inventory reading package state through transport and
// tiers through source.
func New(transport packageLister, tiers tierSource) *Inventory {
	return &Inventory{
		transport: transport,
		tiers:     tiers,
		snaps:     make(map[Profile]*Snapshot),
	}
}

// Refresh pulls a full package listing for the profile and replaces its
// snapshot. An empty profile is a valid result, not an error.
func (inv *Inventory) Refresh(ctx context.Context, profile Profile) (*Snapshot, error) {
	// Four listings reconstruct the full state space: the -u set is the
	// universe (including packages uninstalled for this user but still on
	// the system image), the plain set is what's installed, -e what's
	// enabled, and -s which of them ship on the system image.
	all, err := inv.transport.ListPackages(ctx, profile.Serial, profile.User,
		adb.ListOptions{Filter: adb.ListIncludeUninstalled})
	if err != nil {
		return nil, fmt.Errorf("failed to list packages for %s: %w", profile, err)
	}
	installed, err := inv.transport.ListPackages(ctx, profile.Serial, profile.User,
		adb.ListOptions{Filter: adb.ListDefault})
	if err != nil {
		return nil, fmt.Errorf("failed to list installed packages for %s: %w", profile, err)
	}
	enabled, err := inv.transport.ListPackages(ctx, profile.Serial, profile.User,
		adb.ListOptions{Filter: adb.ListOnlyEnabled})
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled packages for %s: %w", profile, err)
	}
	system, err := inv.transport.ListPackages(ctx, profile.Serial, profile.User,
		adb.ListOptions{Filter: adb.ListIncludeUninstalled, SystemOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list system packages for %s: %w", profile, err)
	}

	snap := buildSnapshot(profile, all, installed, enabled, system, inv.tiers)

	inv.mu.Lock()
	inv.snaps[profile] = snap
	inv.mu.Unlock()

	log.Debug().Stringer("profile", profile).Int("packages", len(snap.Packages)).Msg("inventory refreshed")
	return snap, nil
}

// Snapshot returns the latest complete snapshot for a profile, or ok=false
// when the profile has never been refreshed. The returned snapshot is
// shared and must be treated as read-only.
func (inv *Inventory) Snapshot(profile Profile) (*Snapshot, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	snap, ok := inv.snaps[profile]
	return snap, ok
}

// Apply records the effect of a confirmed action on the cached snapshot,
// replacing it with an updated copy. This is the only mutation path for a
// package's installed/enabled fields outside a full refresh.
func (inv *Inventory) Apply(profile Profile, pkg string, state journal.PackageState) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	old, ok := inv.snaps[profile]
	if !ok {
		return
	}

	packages := make([]Package, len(old.Packages))
	copy(packages, old.Packages)
	for i := range packages {
		if packages[i].Name == pkg {
			packages[i].Installed = state.Installed
			packages[i].Enabled = state.Enabled
			break
		}
	}
	inv.snaps[profile] = &Snapshot{Profile: profile, Packages: packages, Taken: old.Taken}
}

// buildSnapshot reconciles the four raw listings into one ordered snapshot.
func buildSnapshot(profile Profile, all, installed, enabled, system []string, tiers tierSource) *Snapshot {
	installedSet := toSet(installed)
	enabledSet := toSet(enabled)
	systemSet := toSet(system)

	seen := make(map[string]bool, len(all))
	packages := make([]Package, 0, len(all))
	for _, name := range all {
		if seen[name] {
			continue // pm output does not guarantee uniqueness
		}
		seen[name] = true

		pkg := Package{
			Name:      name,
			System:    systemSet[name],
			Installed: installedSet[name],
			Enabled:   enabledSet[name],
			Profile:   profile,
		}
		if entry, ok := tiers.Lookup(name); ok {
			pkg.Tier = entry.Tier()
			pkg.Label = entry.Label
		}
		packages = append(packages, pkg)
	}

	// pm output is unsorted; a stable order keeps listings and plans
	// deterministic.
	sort.Slice(packages, func(i, j int) bool { return packages[i].Name < packages[j].Name })

	return &Snapshot{Profile: profile, Packages: packages, Taken: time.Now()}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
