// Package planner turns a user selection into a validated, ordered list
// of action requests.
//
// Planning never touches a device: every rejection happens before any
// transport call, so a failed plan has no partial side effects.
package planner

import (
	"errors"
	"fmt"

	"github.com/blackwell-systems/adbprune/internal/adb"
	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/journal"
)

// Selection is one (package, action) pair picked by the user.
type Selection struct {
	Package inventory.Package
	Kind    journal.ActionKind
}

// Request is a validated action ready for execution.
type Request struct {
	Package inventory.Package
	Profile inventory.Profile
	Kind    journal.ActionKind
}

// Skip is a selection entry eliminated as a no-op. Skips are surfaced,
// not silently dropped, so the caller can report them.
type Skip struct {
	Package string
	Kind    journal.ActionKind
	Reason  string
}

// Plan is the validated output: requests preserve submission order.
type Plan struct {
	Requests []Request
	Skipped  []Skip
}

// PlanError rejects an entire selection before any device mutation.
type PlanError struct {
	Package string
	Kind    journal.ActionKind
	Reason  string
	Err     error
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("cannot plan %s of %s: %s", e.Kind, e.Package, e.Reason)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

// ErrSystemPackage rejects uninstalling a true system package: without
// root only Disable or ClearData can touch it.
var ErrSystemPackage = errors.New("uninstall of system packages is unsupported without root")

// priorStater is the journal subset planning needs for Restore validation.
type priorStater interface {
	LookupDebloat(serial string, user uint16, pkg string) (*journal.Record, error)
}

// Planner validates selections against inventory state and the journal.
type Planner struct {
	journal priorStater
}

// New creates a Planner validating restores against j.
func New(j priorStater) *Planner {
	return &Planner{journal: j}
}

// Plan validates the selection for one profile. Duplicated packages keep
// their first occurrence; no-ops become Skips; rule violations fail the
// whole plan with a *PlanError.
func (p *Planner) Plan(selection []Selection, profile inventory.Profile) (*Plan, error) {
	plan := &Plan{}
	planned := make(map[string]bool, len(selection))

	for _, sel := range selection {
		pkg := sel.Package

		if !adb.ValidPackageID(pkg.Name) {
			return nil, &PlanError{
				Package: pkg.Name,
				Kind:    sel.Kind,
				Reason:  "not a valid Android package identifier",
			}
		}

		// Duplicates would double-charge retries; keep the first.
		if planned[pkg.Name] {
			plan.Skipped = append(plan.Skipped, Skip{
				Package: pkg.Name,
				Kind:    sel.Kind,
				Reason:  "duplicate entry, first occurrence kept",
			})
			continue
		}

		if sel.Kind == journal.KindUninstall && pkg.System {
			return nil, &PlanError{
				Package: pkg.Name,
				Kind:    sel.Kind,
				Reason:  "system package; disable it instead",
				Err:     ErrSystemPackage,
			}
		}

		if reason, noop := isNoOp(pkg, sel.Kind); noop {
			plan.Skipped = append(plan.Skipped, Skip{Package: pkg.Name, Kind: sel.Kind, Reason: reason})
			continue
		}

		if sel.Kind == journal.KindRestore {
			if _, err := p.journal.LookupDebloat(profile.Serial, profile.User, pkg.Name); err != nil {
				if errors.Is(err, journal.ErrNoPriorState) {
					return nil, &PlanError{
						Package: pkg.Name,
						Kind:    sel.Kind,
						Reason:  "no prior state in the undo journal",
						Err:     err,
					}
				}
				return nil, fmt.Errorf("failed to check journal for %s: %w", pkg.Name, err)
			}
		}

		planned[pkg.Name] = true
		plan.Requests = append(plan.Requests, Request{Package: pkg, Profile: profile, Kind: sel.Kind})
	}

	return plan, nil
}

// isNoOp reports whether the action would leave the package in the state
// it is already in.
func isNoOp(pkg inventory.Package, kind journal.ActionKind) (string, bool) {
	switch kind {
	case journal.KindUninstall:
		if !pkg.Installed {
			return "already uninstalled", true
		}
	case journal.KindDisable:
		if !pkg.Installed {
			return "not installed", true
		}
		if !pkg.Enabled {
			return "already disabled", true
		}
	case journal.KindEnable:
		if pkg.Installed && pkg.Enabled {
			return "already enabled", true
		}
	case journal.KindClearData:
		if !pkg.Installed {
			return "not installed", true
		}
	}
	return "", false
}
