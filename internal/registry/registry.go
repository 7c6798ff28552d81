// Package registry tracks discovered devices, their user profiles and
// connection state.
//
// The registry is the exclusive owner of Device values; everything else
// refers to devices by serial and to profiles by (serial, user id), never
// by pointer, so there are no cyclic back-references to manage.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/rs/zerolog/log"

	"github.com/blackwell-systems/adbprune/internal/adb"
	"github.com/blackwell-systems/adbprune/internal/inventory"
)

// State is a device's position in the connection lifecycle:
// Disconnected → Connecting → {Connected, AuthorizationPending, Failed} →
// Disconnected.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	AuthorizationPending
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case AuthorizationPending:
		return "authorization pending"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Device is one discovered device and its ordered user profiles.
type Device struct {
	Serial   string
	State    State
	Profiles []inventory.Profile
}

// transport is the subset of the adb client the registry needs.
type transport interface {
	Devices(ctx context.Context) ([]adb.DeviceInfo, error)
	ListUsers(ctx context.Context, serial string) ([]adb.UserInfo, error)
}

// missedPollGrace is how many discovery polls a device may be absent from
// before it is dropped entirely. Absent devices are marked Disconnected in
// the meantime, tolerating transient transport flakiness.
const missedPollGrace = 3

type deviceEntry struct {
	device      Device
	missedPolls int
}

// Registry tracks devices across discovery polls.
type Registry struct {
	transport    transport
	clock        clock.Clock
	pollInterval time.Duration
	authTimeout  time.Duration

	mu      sync.RWMutex
	devices map[string]*deviceEntry
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock substitutes the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// WithAuthTimeout bounds how long Authorize waits for the on-device
// confirmation before reporting Failed.
func WithAuthTimeout(d time.Duration) Option {
	return func(r *Registry) { r.authTimeout = d }
}

// New creates a Registry polling devices through transport.
func New(t transport, opts ...Option) *Registry {
	r := &Registry{
		transport:    t,
		clock:        clock.WallClock,
		pollInterval: 2 * time.Second,
		authTimeout:  60 * time.Second,
		devices:      make(map[string]*deviceEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Discover polls the transport for attached devices and reconciles the
// registry. Idempotent and safe to call repeatedly. Devices not reported
// in a poll transition to Disconnected and are only dropped after the
// grace window, so a flaky cable does not erase journal-relevant context.
func (r *Registry) Discover(ctx context.Context) ([]Device, error) {
	reported, err := r.transport.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("device discovery failed: %w", err)
	}

	r.mu.Lock()
	seen := make(map[string]bool, len(reported))
	for _, info := range reported {
		seen[info.Serial] = true
		entry, ok := r.devices[info.Serial]
		if !ok {
			entry = &deviceEntry{device: Device{Serial: info.Serial, State: Connecting}}
			r.devices[info.Serial] = entry
			log.Info().Str("serial", info.Serial).Msg("device discovered")
		}
		entry.missedPolls = 0
		entry.device.State = stateFor(info.State)
	}

	for serial, entry := range r.devices {
		if seen[serial] {
			continue
		}
		entry.missedPolls++
		if entry.missedPolls > missedPollGrace {
			delete(r.devices, serial)
			log.Info().Str("serial", serial).Msg("device dropped from registry")
			continue
		}
		if entry.device.State != Disconnected {
			entry.device.State = Disconnected
			log.Warn().Str("serial", serial).Msg("device disconnected")
		}
	}
	r.mu.Unlock()

	// Profile listing needs a working shell, so it only runs for devices
	// that came up Connected.
	for _, d := range r.snapshot() {
		if d.State == Connected && len(d.Profiles) == 0 {
			if err := r.refreshProfiles(ctx, d.Serial); err != nil {
				log.Warn().Err(err).Str("serial", d.Serial).Msg("profile listing failed, assuming user 0")
				r.setProfiles(d.Serial, []inventory.Profile{{Serial: d.Serial, User: 0}})
			}
		}
	}

	return r.snapshot(), nil
}

// Authorize waits for a device to reach Connected, polling while the user
// confirms the debugging prompt on-device. It returns the final state:
// Connected on success, AuthorizationPending is never returned (it is the
// intermediate state), Failed when the bounded timeout elapses or the
// device vanishes.
func (r *Registry) Authorize(ctx context.Context, serial string) (State, error) {
	deadline := r.clock.Now().Add(r.authTimeout)
	for {
		reported, err := r.transport.Devices(ctx)
		if err != nil {
			r.setState(serial, Failed)
			return Failed, fmt.Errorf("device discovery failed during authorization: %w", err)
		}

		state := Disconnected
		for _, info := range reported {
			if info.Serial == serial {
				state = stateFor(info.State)
				break
			}
		}

		switch state {
		case Connected:
			r.setState(serial, Connected)
			if err := r.refreshProfiles(ctx, serial); err != nil {
				log.Warn().Err(err).Str("serial", serial).Msg("profile listing failed, assuming user 0")
				r.setProfiles(serial, []inventory.Profile{{Serial: serial, User: 0}})
			}
			return Connected, nil
		case Disconnected:
			r.setState(serial, Failed)
			return Failed, fmt.Errorf("device %s: %w", serial, adb.ErrDeviceUnavailable)
		default:
			r.setState(serial, AuthorizationPending)
		}

		if !r.clock.Now().Before(deadline) {
			r.setState(serial, Failed)
			return Failed, fmt.Errorf("device %s not authorized within %s", serial, r.authTimeout)
		}

		// Authorization waiting is a suspension point: cancellable, never
		// interrupting anything in flight.
		select {
		case <-ctx.Done():
			return AuthorizationPending, ctx.Err()
		case <-r.clock.After(r.pollInterval):
		}
	}
}

// Device returns the tracked device for a serial.
func (r *Registry) Device(serial string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.devices[serial]
	if !ok {
		return Device{}, false
	}
	return entry.device, true
}

// Connected returns the serials currently in the Connected state, sorted.
func (r *Registry) Connected() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var serials []string
	for serial, entry := range r.devices {
		if entry.device.State == Connected {
			serials = append(serials, serial)
		}
	}
	sort.Strings(serials)
	return serials
}

func (r *Registry) snapshot() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	devices := make([]Device, 0, len(r.devices))
	for _, entry := range r.devices {
		devices = append(devices, entry.device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Serial < devices[j].Serial })
	return devices
}

func (r *Registry) refreshProfiles(ctx context.Context, serial string) error {
	users, err := r.transport.ListUsers(ctx, serial)
	if err != nil {
		return err
	}
	profiles := make([]inventory.Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, inventory.Profile{Serial: serial, User: u.ID})
	}
	if len(profiles) == 0 {
		profiles = []inventory.Profile{{Serial: serial, User: 0}}
	}
	r.setProfiles(serial, profiles)
	return nil
}

func (r *Registry) setProfiles(serial string, profiles []inventory.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.devices[serial]; ok {
		entry.device.Profiles = profiles
	}
}

func (r *Registry) setState(serial string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.devices[serial]
	if !ok {
		entry = &deviceEntry{device: Device{Serial: serial}}
		r.devices[serial] = entry
	}
	entry.device.State = state
}

func stateFor(s adb.DeviceState) State {
	switch s {
	case adb.StateDevice:
		return Connected
	case adb.StateUnauthorized:
		return AuthorizationPending
	case adb.StateOffline:
		return Disconnected
	default:
		return Connecting
	}
}
