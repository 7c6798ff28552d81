// Package adb drives the system `adb` binary and interprets its output.
//
// Every method maps 1-to-1 onto a single adb invocation: no chaining, no
// custom shell pipelines. The package also owns success detection: pm's
// exit code is not reliable for all command forms, so a mutation only
// counts as successful when the exit status is zero AND the output carries
// no failure marker. That double check never leaks past this package;
// callers see typed errors only.
package adb

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// ADB wraps the system adb binary, keyed by device serial per call.
type ADB struct {
	path string
}

// New returns an ADB transport using the given binary path.
// An empty path falls back to "adb" resolved via PATH.
func New(path string) *ADB {
	if path == "" {
		path = "adb"
	}
	return &ADB{path: path}
}

// Devices returns the attached devices and their statuses, header stripped.
func (a *ADB) Devices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := a.run(ctx, "", "devices")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return parseDevices(out), nil
}

// parseDevices extracts serial/status pairs from header-prefixed
// `adb devices` output.
func parseDevices(out string) []DeviceInfo {
	var devices []DeviceInfo
	for i, line := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue // header or trailing blank
		}
		serial, status, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		devices = append(devices, DeviceInfo{
			Serial: strings.TrimSpace(serial),
			State:  ParseDeviceState(strings.TrimSpace(status)),
		})
	}
	return devices
}

// shell runs a command on the device's default shell and returns trimmed
// output. ADB sometimes writes errors to stdout instead of stderr, so on a
// nonzero exit the non-empty stream wins as the error text.
func (a *ADB) shell(ctx context.Context, serial, command string) (string, error) {
	args := []string{}
	if serial != "" {
		args = append(args, "-s", serial)
	}
	args = append(args, "shell", command)

	log.Debug().Str("serial", serial).Str("command", command).Msg("adb shell")

	cmd := exec.CommandContext(ctx, a.path, args...)
	stdout, err := cmd.Output()
	out := toTrimmedUTF8(stdout)
	if err != nil {
		if ctx.Err() != nil {
			return out, classifyRunError(ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			errText := out
			if errText == "" {
				errText = toTrimmedUTF8(exitErr.Stderr)
			}
			return out, classifyOutput(errText)
		}
		log.Error().Err(err).Msg("cannot run adb, likely not found")
		return out, classifyRunError(err)
	}
	return out, nil
}

// run executes a plain (non-shell) adb subcommand.
func (a *ADB) run(ctx context.Context, serial string, args ...string) (string, error) {
	full := []string{}
	if serial != "" {
		full = append(full, "-s", serial)
	}
	full = append(full, args...)

	log.Debug().Str("serial", serial).Strs("args", args).Msg("adb")

	cmd := exec.CommandContext(ctx, a.path, full...)
	stdout, err := cmd.Output()
	out := toTrimmedUTF8(stdout)
	if err != nil {
		if ctx.Err() != nil {
			return out, classifyRunError(ctx.Err())
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			errText := out
			if errText == "" {
				errText = toTrimmedUTF8(exitErr.Stderr)
			}
			return out, classifyOutput(errText)
		}
		return out, classifyRunError(err)
	}
	return out, nil
}

// toTrimmedUTF8 converts raw adb output to a trimmed string. Lossy
// conversion prevents garbage from OEM shells that emit non-UTF8 bytes.
func toTrimmedUTF8(b []byte) string {
	return strings.TrimRight(strings.ToValidUTF8(string(b), "�"), " \t\r\n")
}
