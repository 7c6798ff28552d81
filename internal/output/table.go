// Package output provides terminal output utilities for adbprune.
//
// This package includes:
//   - Table rendering functions for devices, packages, journal records,
//     and batch results
//   - Progress bars for batch execution
//   - Spinners for indeterminate operations such as device authorization
//
// All table rendering functions return plain strings; color is applied
// through fatih/color, which honors NO_COLOR and non-TTY output on its
// own. Progress indicators are thread-safe.
package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/lists"
	"github.com/blackwell-systems/adbprune/internal/planner"
	"github.com/blackwell-systems/adbprune/internal/registry"
	"github.com/blackwell-systems/adbprune/internal/session"
)

var (
	tierRecommended = color.New(color.FgGreen)
	tierAdvanced    = color.New(color.FgYellow)
	tierExpert      = color.New(color.FgRed)
	tierUnsafe      = color.New(color.FgRed, color.Bold)
	tierUnlisted    = color.New(color.FgHiBlack)

	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
	dimColor  = color.New(color.FgHiBlack)
)

// tierSprint colors a tier label for terminal display.
func tierSprint(tier lists.Tier) string {
	switch tier {
	case lists.TierRecommended:
		return tierRecommended.Sprint(tier)
	case lists.TierAdvanced:
		return tierAdvanced.Sprint(tier)
	case lists.TierExpert:
		return tierExpert.Sprint(tier)
	case lists.TierUnsafe:
		return tierUnsafe.Sprint(tier)
	default:
		return tierUnlisted.Sprint(tier)
	}
}

// RenderDeviceTable renders the known devices with their connection state
// and user profiles.
func RenderDeviceTable(devices []registry.Device) string {
	if len(devices) == 0 {
		return "No devices found. Is USB debugging enabled?\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-22s %s\n", "Serial", "State", "Profiles"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, dev := range devices {
		profiles := make([]string, 0, len(dev.Profiles))
		for _, p := range dev.Profiles {
			profiles = append(profiles, fmt.Sprintf("%d", p.User))
		}
		users := strings.Join(profiles, ", ")
		if users == "" {
			users = "—"
		}
		state := dev.State.String()
		if dev.State != registry.Connected {
			state = dimColor.Sprint(state)
		}
		sb.WriteString(fmt.Sprintf("%-24s %-22s %s\n",
			truncate(dev.Serial, 24), state, users))
	}
	return sb.String()
}

// RenderPackageTable renders an inventory snapshot, one row per package.
// Packages are assumed pre-filtered and pre-sorted by the caller.
func RenderPackageTable(packages []inventory.Package) string {
	if len(packages) == 0 {
		return "No packages matched.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-44s %-8s %-9s %s\n",
		"Package", "State", "System", "Tier"))
	sb.WriteString(strings.Repeat("─", 76))
	sb.WriteString("\n")

	for _, pkg := range packages {
		sb.WriteString(fmt.Sprintf("%-44s %-8s %-9s %s\n",
			truncate(pkg.Name, 44),
			packageStateLabel(pkg),
			yesNo(pkg.System),
			tierSprint(pkg.Tier)))
	}
	return sb.String()
}

// packageStateLabel collapses the two state bits into one display word.
func packageStateLabel(pkg inventory.Package) string {
	switch {
	case !pkg.Installed:
		return "removed"
	case !pkg.Enabled:
		return "disabled"
	default:
		return "enabled"
	}
}

// RenderTierSummary renders a one-line count per recommendation tier.
// Format: "recommended: 31 · advanced: 12 · expert: 4 · unsafe: 2 · unlisted: 118"
func RenderTierSummary(packages []inventory.Package) string {
	counts := make(map[lists.Tier]int)
	for _, pkg := range packages {
		counts[pkg.Tier]++
	}

	order := []lists.Tier{
		lists.TierRecommended,
		lists.TierAdvanced,
		lists.TierExpert,
		lists.TierUnsafe,
		lists.TierUnlisted,
	}
	parts := make([]string, 0, len(order))
	for _, tier := range order {
		parts = append(parts, fmt.Sprintf("%s: %d", tierSprint(tier), counts[tier]))
	}
	return strings.Join(parts, " · ")
}

// RenderJournalTable renders action records, newest first.
func RenderJournalTable(records []*journal.Record) string {
	if len(records) == 0 {
		return "No actions recorded.\n"
	}

	sorted := make([]*journal.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %-36s %-10s %-10s %-14s %s\n",
		"ID", "Package", "Action", "Outcome", "When", "Detail"))
	sb.WriteString(strings.Repeat("─", 96))
	sb.WriteString("\n")

	for _, rec := range sorted {
		detail := rec.Error
		if detail == "" && rec.Retries > 0 {
			detail = fmt.Sprintf("%d retries", rec.Retries)
		}
		sb.WriteString(fmt.Sprintf("%-6d %-36s %-10s %-10s %-14s %s\n",
			rec.ID,
			truncate(rec.Package, 36),
			rec.Kind,
			outcomeSprint(rec.Outcome),
			relativeTime(rec.CreatedAt),
			truncate(detail, 40)))
	}
	return sb.String()
}

// RenderResultTable renders the terminal results of a batch session.
func RenderResultTable(results []session.Result) string {
	if len(results) == 0 {
		return "Nothing to do.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-36s %-10s %s\n",
		"Serial", "Package", "Action", "Outcome"))
	sb.WriteString(strings.Repeat("─", 88))
	sb.WriteString("\n")

	for _, res := range results {
		outcome := failColor.Sprint("no record")
		if res.Record != nil {
			outcome = outcomeSprint(res.Record.Outcome)
			if res.Record.Error != "" {
				outcome += dimColor.Sprintf(" (%s)", truncate(res.Record.Error, 40))
			}
		} else if res.Err != nil {
			outcome = failColor.Sprint(truncate(res.Err.Error(), 48))
		}
		sb.WriteString(fmt.Sprintf("%-24s %-36s %-10s %s\n",
			truncate(res.Request.Profile.Serial, 24),
			truncate(res.Request.Package.Name, 36),
			res.Request.Kind,
			outcome))
	}
	return sb.String()
}

// RenderSkips renders planner skips, one line each.
func RenderSkips(skips []planner.Skip) string {
	var sb strings.Builder
	for _, s := range skips {
		sb.WriteString(dimColor.Sprintf("skipped %s: %s\n", s.Package, s.Reason))
	}
	return sb.String()
}

// RenderProgressSummary renders the final line of a batch.
// Format: "12 succeeded · 1 failed · 2 cancelled (took 4s)"
func RenderProgressSummary(prog session.Progress, elapsed time.Duration) string {
	parts := []string{
		okColor.Sprintf("%d succeeded", prog.Succeeded),
	}
	if prog.Failed > 0 {
		parts = append(parts, failColor.Sprintf("%d failed", prog.Failed))
	}
	if prog.Cancelled > 0 {
		parts = append(parts, dimColor.Sprintf("%d cancelled", prog.Cancelled))
	}
	if prog.Skipped > 0 {
		parts = append(parts, dimColor.Sprintf("%d skipped", prog.Skipped))
	}
	return fmt.Sprintf("%s (took %s)",
		strings.Join(parts, " · "), elapsed.Round(time.Second))
}

func outcomeSprint(out journal.Outcome) string {
	switch out {
	case journal.OutcomeSucceeded:
		return okColor.Sprint(out)
	case journal.OutcomeFailed:
		return failColor.Sprint(out)
	default:
		return dimColor.Sprint(out)
	}
}

// relativeTime converts a timestamp to relative time (e.g. "2 days ago").
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
