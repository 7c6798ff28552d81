// Package executor runs planned actions against the device transport.
//
// Each request issues one logical transport operation, retried on
// transient failures with bounded exponential backoff. The resulting
// ActionRecord is written to the undo journal before Execute returns, so
// a crash immediately after a mutation cannot lose the record of what was
// attempted.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"github.com/rs/zerolog/log"

	"github.com/blackwell-systems/adbprune/internal/adb"
	"github.com/blackwell-systems/adbprune/internal/inventory"
	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/planner"
)

// transport is the mutating subset of the adb client.
type transport interface {
	Uninstall(ctx context.Context, serial string, user uint16, pkg string) error
	Disable(ctx context.Context, serial string, user uint16, pkg string) error
	Enable(ctx context.Context, serial string, user uint16, pkg string) error
	ClearData(ctx context.Context, serial string, user uint16, pkg string) error
	InstallExisting(ctx context.Context, serial string, user uint16, pkg string) error
}

// recorder is the journal subset the executor needs.
type recorder interface {
	Record(rec *journal.Record) error
	RestoreState(serial string, user uint16, pkg string) (journal.PackageState, error)
}

// applier receives confirmed state changes, normally the inventory cache.
type applier interface {
	Apply(profile inventory.Profile, pkg string, state journal.PackageState)
}

// Executor executes one action at a time. Serialization per device is the
// session's responsibility; the executor itself is safe for concurrent
// use across devices because the journal never needs read-modify-write.
type Executor struct {
	transport transport
	journal   recorder
	inventory applier
	clock     clock.Clock

	maxAttempts    int
	retryDelay     time.Duration
	maxDelay       time.Duration
	commandTimeout time.Duration
}

// Option configures an Executor.
type Option func(*Executor)

// WithMaxAttempts bounds transport calls per action (default 3).
func WithMaxAttempts(n int) Option {
	return func(e *Executor) { e.maxAttempts = n }
}

// WithRetryDelay sets the initial backoff delay (doubled per retry).
func WithRetryDelay(d time.Duration) Option {
	return func(e *Executor) { e.retryDelay = d }
}

// WithCommandTimeout bounds a single transport attempt (default 2m).
func WithCommandTimeout(d time.Duration) Option {
	return func(e *Executor) { e.commandTimeout = d }
}

// WithClock substitutes the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Executor) { e.clock = c }
}

// WithInventory registers the inventory cache to receive confirmed state
// changes.
func WithInventory(a applier) Option {
	return func(e *Executor) { e.inventory = a }
}

// New creates an Executor writing through transport and journaling to j.
func New(t transport, j recorder, opts ...Option) *Executor {
	e := &Executor{
		transport:      t,
		journal:        j,
		clock:          clock.WallClock,
		maxAttempts:    3,
		retryDelay:     500 * time.Millisecond,
		maxDelay:       5 * time.Second,
		commandTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one request to a terminal outcome and returns its journal
// record. The record is durable before Execute returns; journal failure
// is the only case where no record exists, and it is returned as an error.
func (e *Executor) Execute(ctx context.Context, req planner.Request) (*journal.Record, error) {
	rec := &journal.Record{
		Serial:    req.Profile.Serial,
		User:      req.Profile.User,
		Package:   req.Package.Name,
		Kind:      req.Kind,
		Previous:  req.Package.State(),
		CreatedAt: e.clock.Now(),
	}

	op, next, err := e.operation(req)
	if err != nil {
		rec.Outcome = journal.OutcomeFailed
		rec.Error = err.Error()
		if recErr := e.journal.Record(rec); recErr != nil {
			return nil, fmt.Errorf("failed to journal action: %w", recErr)
		}
		return rec, nil
	}

	attempts := 0
	callErr := retry.Call(retry.CallArgs{
		Func: func() error {
			attempts++
			// The attempt runs detached from batch cancellation: a pm
			// command already issued must finish so the journal matches
			// what happened on the device. Cancellation only takes
			// effect between attempts, via Stop below.
			attemptCtx, done := context.WithTimeout(context.WithoutCancel(ctx), e.commandTimeout)
			defer done()
			return op(attemptCtx)
		},
		// Only transient transport failures are worth another attempt;
		// permanent errors and context cancellation end the loop.
		IsFatalError: func(err error) bool {
			return !errors.Is(err, adb.ErrTransient)
		},
		NotifyFunc: func(lastError error, attempt int) {
			log.Warn().Err(lastError).
				Str("package", req.Package.Name).
				Str("serial", req.Profile.Serial).
				Int("attempt", attempt).
				Msg("action attempt failed")
		},
		Attempts:    e.maxAttempts,
		Delay:       e.retryDelay,
		MaxDelay:    e.maxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       e.clock,
		Stop:        ctx.Done(),
	})
	if attempts > 0 {
		rec.Retries = attempts - 1
	}

	switch {
	case callErr == nil:
		rec.Outcome = journal.OutcomeSucceeded
	case retry.IsRetryStopped(callErr):
		// Cancelled at a suspension point between attempts. The command
		// already in flight was allowed to finish; nothing new was issued.
		rec.Outcome = journal.OutcomeCancelled
		rec.Error = context.Canceled.Error()
	case retry.IsAttemptsExceeded(callErr):
		rec.Outcome = journal.OutcomeFailed
		rec.Error = retry.LastError(callErr).Error()
	default:
		rec.Outcome = journal.OutcomeFailed
		rec.Error = callErr.Error()
	}

	if err := e.journal.Record(rec); err != nil {
		return nil, fmt.Errorf("failed to journal action for %s: %w", req.Package.Name, err)
	}

	if rec.Outcome == journal.OutcomeSucceeded && e.inventory != nil {
		e.inventory.Apply(req.Profile, req.Package.Name, next)
	}
	return rec, nil
}

// operation resolves a request to the transport call(s) to run and the
// package state a success results in.
func (e *Executor) operation(req planner.Request) (func(context.Context) error, journal.PackageState, error) {
	serial, user, pkg := req.Profile.Serial, req.Profile.User, req.Package.Name
	prev := req.Package.State()

	switch req.Kind {
	case journal.KindUninstall:
		return func(ctx context.Context) error {
			return e.transport.Uninstall(ctx, serial, user, pkg)
		}, journal.PackageState{Installed: false, Enabled: false, System: prev.System}, nil
	case journal.KindDisable:
		return func(ctx context.Context) error {
			return e.transport.Disable(ctx, serial, user, pkg)
		}, journal.PackageState{Installed: true, Enabled: false, System: prev.System}, nil
	case journal.KindEnable:
		return func(ctx context.Context) error {
			return e.transport.Enable(ctx, serial, user, pkg)
		}, journal.PackageState{Installed: true, Enabled: true, System: prev.System}, nil
	case journal.KindClearData:
		return func(ctx context.Context) error {
			return e.transport.ClearData(ctx, serial, user, pkg)
		}, prev, nil
	case journal.KindRestore:
		target, err := e.journal.RestoreState(serial, user, pkg)
		if err != nil {
			return nil, journal.PackageState{}, err
		}
		steps := restoreSteps(prev, target)
		return func(ctx context.Context) error {
			for _, step := range steps {
				if err := step(e.transport, ctx, serial, user, pkg); err != nil {
					return err
				}
			}
			return nil
		}, target, nil
	default:
		return nil, journal.PackageState{}, fmt.Errorf("unknown action kind %q", req.Kind)
	}
}

type restoreStep func(t transport, ctx context.Context, serial string, user uint16, pkg string) error

// restoreSteps computes the transport calls that take a package from its
// current state back to the recorded pre-debloat target.
func restoreSteps(current, target journal.PackageState) []restoreStep {
	var steps []restoreStep
	if target.Installed && !current.Installed {
		steps = append(steps, func(t transport, ctx context.Context, serial string, user uint16, pkg string) error {
			return t.InstallExisting(ctx, serial, user, pkg)
		})
	}
	if !target.Installed && current.Installed {
		steps = append(steps, func(t transport, ctx context.Context, serial string, user uint16, pkg string) error {
			return t.Uninstall(ctx, serial, user, pkg)
		})
	}
	if target.Installed && target.Enabled && !(current.Installed && current.Enabled) {
		steps = append(steps, func(t transport, ctx context.Context, serial string, user uint16, pkg string) error {
			return t.Enable(ctx, serial, user, pkg)
		})
	}
	if target.Installed && !target.Enabled && current.Installed && current.Enabled {
		steps = append(steps, func(t transport, ctx context.Context, serial string, user uint16, pkg string) error {
			return t.Disable(ctx, serial, user, pkg)
		})
	}
	return steps
}
