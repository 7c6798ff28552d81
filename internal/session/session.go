// Package session runs a batch of planned actions across devices.
//
// Actions targeting the same device run strictly in submission order over
// a single connection; distinct devices proceed in parallel up to a
// configurable bound. Cancellation is cooperative: the in-flight action
// on each device finishes, queued actions are journaled as cancelled.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/blackwell-systems/adbprune/internal/journal"
	"github.com/blackwell-systems/adbprune/internal/planner"
)

// runner executes a single action to a terminal outcome.
type runner interface {
	Execute(ctx context.Context, req planner.Request) (*journal.Record, error)
}

// recorder journals actions the session terminates without executing.
type recorder interface {
	Record(rec *journal.Record) error
}

// Progress is a point-in-time count of batch items by state. Skipped
// counts plan entries eliminated as no-ops before the batch started; it
// is fixed at Start and not part of Total.
type Progress struct {
	Pending   int
	Running   int
	Succeeded int
	Failed    int
	Cancelled int
	Skipped   int
}

// Total is the number of actions the batch was started with.
func (p Progress) Total() int {
	return p.Pending + p.Running + p.Succeeded + p.Failed + p.Cancelled
}

// Result pairs a request with its terminal journal record. Err is set
// only when journaling itself failed and no record exists.
type Result struct {
	Request planner.Request
	Record  *journal.Record
	Err     error
}

// Runner starts batch sessions.
type Runner struct {
	exec        runner
	journal     recorder
	maxParallel int64
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxDeviceParallel bounds how many devices mutate concurrently
// (default 4). Actions on one device are always serialized regardless.
func WithMaxDeviceParallel(n int) Option {
	return func(r *Runner) { r.maxParallel = int64(n) }
}

// New creates a session runner executing through exec.
func New(exec runner, j recorder, opts ...Option) *Runner {
	r := &Runner{exec: exec, journal: j, maxParallel: 4}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session is a running or finished batch.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	progress Progress
	results  []Result

	cancel context.CancelFunc
	done   chan struct{}
}

// Start launches the plan's requests and returns immediately. Skips in
// the plan are never queued; they only show up as the Skipped count.
func (r *Runner) Start(ctx context.Context, plan *planner.Plan) *Session {
	ctx, cancel := context.WithCancel(ctx)
	sess := &Session{
		ID:     uuid.New(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	sess.progress.Pending = len(plan.Requests)
	sess.progress.Skipped = len(plan.Skipped)

	queues := make(map[string][]planner.Request)
	var serials []string
	for _, req := range plan.Requests {
		if _, ok := queues[req.Profile.Serial]; !ok {
			serials = append(serials, req.Profile.Serial)
		}
		queues[req.Profile.Serial] = append(queues[req.Profile.Serial], req)
	}

	log.Info().
		Str("session", sess.ID.String()).
		Int("actions", len(plan.Requests)).
		Int("devices", len(serials)).
		Msg("starting batch")

	sem := semaphore.NewWeighted(r.maxParallel)
	var wg sync.WaitGroup
	for _, serial := range serials {
		wg.Add(1)
		go func(queue []planner.Request) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				r.drainCancelled(sess, queue)
				return
			}
			defer sem.Release(1)
			r.runQueue(ctx, sess, queue)
		}(queues[serial])
	}
	go func() {
		wg.Wait()
		cancel()
		close(sess.done)
	}()
	return sess
}

// runQueue executes one device's actions in order.
func (r *Runner) runQueue(ctx context.Context, sess *Session, queue []planner.Request) {
	for i, req := range queue {
		if ctx.Err() != nil {
			r.drainCancelled(sess, queue[i:])
			return
		}
		sess.setRunning()
		rec, err := r.exec.Execute(ctx, req)
		sess.finish(Result{Request: req, Record: rec, Err: err})
	}
}

// drainCancelled journals queued-but-never-started actions as cancelled
// so the batch leaves no unaccounted-for selections behind.
func (r *Runner) drainCancelled(sess *Session, queue []planner.Request) {
	for _, req := range queue {
		rec := &journal.Record{
			Serial:    req.Profile.Serial,
			User:      req.Profile.User,
			Package:   req.Package.Name,
			Kind:      req.Kind,
			Outcome:   journal.OutcomeCancelled,
			Previous:  req.Package.State(),
			Error:     "cancelled before execution",
			CreatedAt: time.Now().UTC(),
		}
		err := r.journal.Record(rec)
		if err != nil {
			log.Error().Err(err).Str("package", req.Package.Name).
				Msg("failed to journal cancelled action")
			rec = nil
		}
		sess.mu.Lock()
		sess.progress.Pending--
		sess.progress.Cancelled++
		sess.results = append(sess.results, Result{Request: req, Record: rec, Err: err})
		sess.mu.Unlock()
	}
}

func (s *Session) setRunning() {
	s.mu.Lock()
	s.progress.Pending--
	s.progress.Running++
	s.mu.Unlock()
}

func (s *Session) finish(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.Running--
	switch {
	case res.Err != nil:
		s.progress.Failed++
	case res.Record.Outcome == journal.OutcomeSucceeded:
		s.progress.Succeeded++
	case res.Record.Outcome == journal.OutcomeCancelled:
		s.progress.Cancelled++
	default:
		s.progress.Failed++
	}
	s.results = append(s.results, res)
}

// Cancel requests cooperative shutdown. In-flight actions finish;
// queued ones are journaled as cancelled. Wait still must be called.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed when every action has reached a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the batch finishes and returns the final counts.
func (s *Session) Wait() Progress {
	<-s.done
	return s.Progress()
}

// Progress returns a snapshot of the current counts.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

// Results returns the terminal results accumulated so far, in completion
// order per device.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}
