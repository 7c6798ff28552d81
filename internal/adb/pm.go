package adb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const packagePrefix = "package:"

// ListPackages runs `pm list packages` for the given user and options and
// returns bare package identifiers with the "package:" prefix stripped.
// The result is unsorted and uniqueness is not guaranteed; "android" can
// appear even though it is not a valid application ID.
func (a *ADB) ListPackages(ctx context.Context, serial string, user uint16, opts ListOptions) ([]string, error) {
	command := "pm list packages"
	if opts.SystemOnly {
		command += " -s"
	}
	if f := opts.Filter.flag(); f != "" {
		command += " " + f
	}
	command += " --user " + strconv.Itoa(int(user))

	out, err := a.shell(ctx, serial, command)
	if err != nil {
		return nil, &CommandError{Verb: "list packages", Output: out, Err: err}
	}
	return parsePackageList(out), nil
}

func parsePackageList(out string) []string {
	var packages []string
	for _, line := range strings.Split(out, "\n") {
		pkg, ok := strings.CutPrefix(strings.TrimSpace(line), packagePrefix)
		if !ok {
			continue
		}
		packages = append(packages, pkg)
	}
	return packages
}

// ListUsers parses `pm list users` output. Expected line shape is
// "UserInfo{<id>:<name>:<flags>}[ running]"; parsing is defensive because
// OEMs reformat this output freely.
func (a *ADB) ListUsers(ctx context.Context, serial string) ([]UserInfo, error) {
	out, err := a.shell(ctx, serial, "pm list users")
	if err != nil {
		return nil, &CommandError{Verb: "list users", Output: out, Err: err}
	}
	return parseUsers(out), nil
}

func parseUsers(out string) []UserInfo {
	var users []UserInfo
	for i, line := range strings.Split(out, "\n") {
		if i == 0 {
			continue // "Users:" header
		}
		s := strings.TrimSpace(line)
		s = strings.TrimPrefix(s, "UserInfo{")
		s = strings.TrimSpace(strings.TrimSuffix(s, "running"))
		s = strings.TrimSuffix(s, "}")
		idText, _, ok := strings.Cut(s, ":")
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(idText, 10, 16)
		if err != nil {
			continue
		}
		users = append(users, UserInfo{ID: uint16(id)})
	}
	return users
}

// Uninstall removes a package for one user. System partitions are not
// touched; without root this only drops the user's copy and can be undone
// with InstallExisting.
func (a *ADB) Uninstall(ctx context.Context, serial string, user uint16, pkg string) error {
	return a.pmMutate(ctx, serial, "uninstall",
		fmt.Sprintf("pm uninstall --user %d %s", user, pkg), pkg, expectSuccess)
}

// Disable disables a package for one user, keeping its data.
func (a *ADB) Disable(ctx context.Context, serial string, user uint16, pkg string) error {
	return a.pmMutate(ctx, serial, "disable-user",
		fmt.Sprintf("pm disable-user --user %d %s", user, pkg), pkg, expectNewState)
}

// Enable re-enables a previously disabled package for one user.
func (a *ADB) Enable(ctx context.Context, serial string, user uint16, pkg string) error {
	return a.pmMutate(ctx, serial, "enable",
		fmt.Sprintf("pm enable --user %d %s", user, pkg), pkg, expectNewState)
}

// ClearData wipes a package's application data for one user.
func (a *ADB) ClearData(ctx context.Context, serial string, user uint16, pkg string) error {
	return a.pmMutate(ctx, serial, "clear",
		fmt.Sprintf("pm clear --user %d %s", user, pkg), pkg, expectSuccess)
}

// InstallExisting reinstalls a package that was uninstalled for the user
// but still lives on the system image.
func (a *ADB) InstallExisting(ctx context.Context, serial string, user uint16, pkg string) error {
	return a.pmMutate(ctx, serial, "install-existing",
		fmt.Sprintf("cmd package install-existing --user %d %s", user, pkg), pkg, expectSuccess)
}

// outputCheck validates a mutation's output beyond its exit status.
type outputCheck int

const (
	// expectSuccess: the verb prints "Success" on the happy path
	// (uninstall, clear, install-existing).
	expectSuccess outputCheck = iota
	// expectNewState: the verb prints "new state: ..." (disable-user,
	// enable) or nothing at all on some OEM builds.
	expectNewState
)

// pmMutate runs one mutating pm command and applies the double-check
// policy: a zero exit status alone does not count as success.
func (a *ADB) pmMutate(ctx context.Context, serial, verb, command, pkg string, check outputCheck) error {
	out, err := a.shell(ctx, serial, command)
	if err != nil {
		return &CommandError{Verb: verb, Package: pkg, Output: out, Err: err}
	}
	if err := checkMutationOutput(out, check); err != nil {
		return &CommandError{Verb: verb, Package: pkg, Output: out, Err: err}
	}
	return nil
}

func checkMutationOutput(out string, check outputCheck) error {
	if strings.Contains(out, "Failure") ||
		strings.Contains(out, "Failed") ||
		strings.Contains(out, "Error:") ||
		strings.Contains(out, "Exception") {
		return classifyOutput(out)
	}
	switch check {
	case expectSuccess:
		if !strings.Contains(out, "Success") {
			return classifyOutput(out)
		}
	case expectNewState:
		if out != "" && !strings.Contains(out, "new state:") {
			return classifyOutput(out)
		}
	}
	return nil
}
