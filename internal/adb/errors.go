package adb

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying transport failures. The executor's retry
// policy keys on these: ErrTransient is retried, everything else is
// terminal for the attempt.
var (
	// ErrDeviceUnavailable means the device disappeared or was never
	// reachable. Fatal to the in-flight action, not to the session.
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrTransient marks failures worth retrying: command timeouts and
	// momentary unauthorized states while the user accepts the prompt.
	ErrTransient = errors.New("transient transport failure")

	// ErrPermissionDenied means the package manager refused the operation.
	// Retrying cannot help without root.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrPackageNotFound means the target package is unknown to the device
	// or not installed for the requested user.
	ErrPackageNotFound = errors.New("package not found")
)

// CommandError is a failed package-manager command, carrying the raw device
// output for diagnostics. It wraps one of the sentinel errors above so
// callers can classify it with errors.Is without parsing output themselves.
type CommandError struct {
	Verb    string // pm verb, e.g. "uninstall"
	Package string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("pm %s %s: %v", e.Verb, e.Package, e.Err)
	}
	return fmt.Sprintf("pm %s %s: %v (output: %s)", e.Verb, e.Package, e.Err, e.Output)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// classifyOutput maps raw pm/adb failure text onto a sentinel error.
// This string matching is inherently adb-version specific, which is why it
// lives here and nowhere else: callers only ever see the sentinels.
func classifyOutput(out string) error {
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "not installed for"),
		strings.Contains(lower, "unknown package"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "delete_failed_internal_error"):
		return ErrPackageNotFound
	case strings.Contains(lower, "securityexception"),
		strings.Contains(lower, "permission"),
		strings.Contains(lower, "not allowed"),
		strings.Contains(lower, "delete_failed_device_policy_manager"):
		return ErrPermissionDenied
	case strings.Contains(lower, "device offline"),
		strings.Contains(lower, "device not found"),
		strings.Contains(lower, "no devices"),
		strings.Contains(lower, "connection reset"):
		return ErrDeviceUnavailable
	case strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "closed"):
		return ErrTransient
	default:
		return ErrTransient
	}
}

// classifyRunError maps process-level failures (adb binary missing, context
// cancellation) onto sentinels.
func classifyRunError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTransient
	case errors.Is(err, context.Canceled):
		return context.Canceled
	default:
		return ErrDeviceUnavailable
	}
}
