// Package engine wires the Event Index, Event Codec, Job State, State
// Machine, and Batch Engine components into the post_event pipeline of
// spec §4.3, plus the active-jobs lifecycle of spec §3.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/jobmgr/pkg/batch"
	"github.com/cuemby/jobmgr/pkg/collab"
	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/evx"
	"github.com/cuemby/jobmgr/pkg/job"
	"github.com/cuemby/jobmgr/pkg/jobtap"
	"github.com/cuemby/jobmgr/pkg/kvs"
	"github.com/cuemby/jobmgr/pkg/log"
	"github.com/cuemby/jobmgr/pkg/metrics"
	"github.com/cuemby/jobmgr/pkg/pubsub"
	"github.com/cuemby/jobmgr/pkg/statemachine"
)

// jobLogger returns the "engine" component logger with job_id chained on,
// for the handful of per-job error logs scattered through the post_event
// pipeline and its per-state actions.
func jobLogger(jobID uint64) zerolog.Logger {
	return log.WithComponent("engine").With().Uint64("job_id", jobID).Logger()
}

// Collaborators bundles the external collaborator implementations the
// engine drives (spec §6). Any field may be nil, in which case the
// corresponding action dispatch step is skipped.
type Collaborators struct {
	Journal   collab.Journal
	Scheduler collab.Scheduler
	Exec      collab.Exec
	Wait      collab.Wait
	Drain     collab.Drain
	Annotate  collab.Annotate
}

// Config configures an Engine.
type Config struct {
	BatchWindow time.Duration
	Fatal       batch.FatalFunc

	// PromoteCallbackErrorsToExceptions is the explicit policy seam of
	// spec §9: when true, a plugin hook callback error is turned into a
	// severity-1 "exception" event against the job instead of only being
	// logged and counted.
	PromoteCallbackErrorsToExceptions bool
}

// Engine is the job-manager event engine. All job-state and active-jobs
// mutation happens on its own single reactor goroutine (spec §5): PostEvent
// queues a closure and blocks its caller until the reactor runs it, and the
// recursive post_event calls that per-state actions make (spec §4.3 step
// 12) run as plain synchronous Go calls already on that goroutine, so they
// never re-enter the queue and cannot deadlock against it.
type Engine struct {
	evx        *evx.Index
	batch      *batch.Engine
	dispatcher *jobtap.Dispatcher
	collab     Collaborators

	activeJobs   map[uint64]*job.Job
	runningCount int

	ops     chan func()
	stopCh  chan struct{}
	stopped chan struct{}
}

// New creates an Engine with no plugin hooks registered. Use RegisterHook
// to add hooks before Start.
func New(kv kvs.KVS, pub pubsub.Publisher, collaborators Collaborators, cfg Config) *Engine {
	window := cfg.BatchWindow
	if window <= 0 {
		window = 10 * time.Millisecond
	}

	e := &Engine{
		evx:        evx.New(eventlog.KnownNames()...),
		activeJobs: make(map[uint64]*job.Job),
		collab:     collaborators,
		ops:        make(chan func()),
		stopCh:     make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	fatal := cfg.Fatal
	if fatal == nil {
		fatal = func(err *errs.Error) { log.Errorf("engine: fatal batch error", err) }
	}
	e.batch = batch.New(kv, pub, window, fatal)
	e.dispatcher = jobtap.NewDispatcher(e.hookErrorPolicy(cfg.PromoteCallbackErrorsToExceptions))

	return e
}

// RegisterHook adds h to the plugin dispatch list. Call before Start.
func (e *Engine) RegisterHook(h jobtap.Hook) {
	e.dispatcher.Register(h)
}

// Start launches the batch engine and the job-state reactor goroutine.
func (e *Engine) Start() {
	e.batch.Start()
	go e.run()
}

func (e *Engine) run() {
	for {
		select {
		case op := <-e.ops:
			op()
		case <-e.stopCh:
			close(e.stopped)
			return
		}
	}
}

// Shutdown stops accepting new events, flushes the batch engine, and stops
// the reactor goroutine.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.batch.Shutdown(ctx); err != nil {
		return err
	}
	close(e.stopCh)
	<-e.stopped
	return nil
}

// RespondOnCommit enqueues reply to be invoked only after the current
// batch commits successfully (spec §4.2).
func (e *Engine) RespondOnCommit(reply func()) {
	e.batch.Submit(batch.Submission{Reply: reply})
}

// PostEvent runs the full post_event pipeline of spec §4.3 for jobID. It
// is safe to call concurrently from any number of goroutines; calls are
// serialized onto the engine's reactor goroutine.
func (e *Engine) PostEvent(ctx context.Context, jobID uint64, name eventlog.Name, flags PostFlags, entryCtx map[string]any) error {
	resCh := make(chan error, 1)
	e.ops <- func() {
		resCh <- e.postEvent(ctx, jobID, name, flags, entryCtx)
	}
	select {
	case err := <-resCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunningCount returns the number of jobs in the running set (RUN or
// CLEANUP). Only meaningful when called from outside the reactor; callers
// should not assume strict freshness if events are in flight.
func (e *Engine) RunningCount() int {
	resCh := make(chan int, 1)
	e.ops <- func() { resCh <- e.runningCount }
	return <-resCh
}

// ActiveJobCount returns the number of jobs currently tracked in the
// active-jobs index.
func (e *Engine) ActiveJobCount() int {
	resCh := make(chan int, 1)
	e.ops <- func() { resCh <- len(e.activeJobs) }
	return <-resCh
}

// Job returns a snapshot pointer to jobID's Job record, or nil if it is
// not active. The pointer must only be read from outside the reactor.
func (e *Engine) Job(jobID uint64) *job.Job {
	resCh := make(chan *job.Job, 1)
	e.ops <- func() { resCh <- e.activeJobs[jobID] }
	return <-resCh
}

// postEvent implements spec §4.3 steps 1-13. It must only run on the
// reactor goroutine: either dispatched via the ops channel by PostEvent,
// or called directly (recursively) from within step 12's action dispatch.
func (e *Engine) postEvent(ctx context.Context, jobID uint64, name eventlog.Name, flags PostFlags, entryCtx map[string]any) error {
	j, ok := e.activeJobs[jobID]
	if !ok {
		j = job.NewJob(jobID)
		e.activeJobs[jobID] = j
	}

	// 1. Guard.
	if j.State == job.New && name != eventlog.Submit {
		return errs.New(errs.TryAgain, "job is still in NEW")
	}

	// 2. Encode.
	entry := eventlog.Entry{Timestamp: nowSeconds(), Name: name, Context: entryCtx}
	if err := entry.Validate(); err != nil {
		return errs.Wrap(errs.Malformed, "invalid event entry", err)
	}

	advancesSeq := !flags.Has(NoCommit) || flags.Has(ForceSequence)
	var assignedSeq int64 = -1
	if advancesSeq {
		assignedSeq = j.EventlogSeq + 1
	}

	// 3. Journal hook.
	if e.collab.Journal != nil {
		if err := e.collab.Journal.Record(ctx, jobID, entry, assignedSeq); err != nil {
			return errs.Wrap(errs.Downstream, "journal hook failed", err)
		}
	}

	// 4. Apply.
	prevState := j.State
	changed, err := statemachine.Apply(j, entry)
	if err != nil {
		return err
	}
	e.clearOutstandingOnApply(j, name, changed)

	// 5. Sequence.
	if advancesSeq {
		j.EventlogSeq = assignedSeq
	}

	// 6. Cache.
	evxID, err := e.evx.IndexOf(name)
	if err != nil {
		return err
	}
	cacheSeq := int64(-1)
	if advancesSeq {
		cacheSeq = assignedSeq
	}
	j.RecordLastEvent(evxID, cacheSeq)
	metrics.EVXNamesTotal.Set(float64(e.evx.Len()))

	// 7. Append.
	var appendPtr *kvs.Append
	if !flags.Has(NoCommit) {
		line, encErr := eventlog.Encode(entry)
		if encErr != nil {
			return encErr
		}
		appendPtr = &kvs.Append{Key: kvs.JobKey(jobID), Line: line}
	}

	// 8. Publish.
	var transitionPtr *pubsub.StateTransition
	if changed {
		transitionPtr = &pubsub.StateTransition{ID: jobID, State: string(j.State), TS: entry.Timestamp}
		metrics.TransitionsTotal.WithLabelValues(string(prevState), string(j.State)).Inc()
	}
	metrics.EventsAppendedTotal.WithLabelValues(string(name)).Inc()

	if appendPtr != nil || transitionPtr != nil {
		e.batch.Submit(batch.Submission{Append: appendPtr, Transition: transitionPtr})
	}

	// 9. Running counter.
	e.updateRunningCount(prevState, j.State)

	// 10. Reference.
	j.Incref()
	defer e.release(j)

	// 11. Plugin hook.
	e.dispatcher.DispatchEvent(j, entry)
	if changed {
		e.dispatcher.DispatchStateChange(j, entry, prevState)
	}
	if name == eventlog.Urgency {
		if newPriority, ok := e.dispatcher.Reprioritize(j); ok {
			j.Priority = newPriority
			if e.collab.Scheduler != nil {
				if err := e.collab.Scheduler.Reprioritize(ctx, jobID, newPriority); err != nil {
					jobLogger(jobID).Error().Err(err).Msg("scheduler reprioritize failed")
				}
			}
		}
	}
	if name == eventlog.Memo && e.collab.Annotate != nil {
		if err := e.collab.Annotate.Merge(ctx, jobID, entryCtx); err != nil {
			jobLogger(jobID).Error().Err(err).Msg("annotate merge failed")
		}
	}

	// 12. Action dispatch (may recurse into postEvent).
	e.runStateAction(ctx, j, name)

	// 13. Release happens via the deferred call above.
	return nil
}

// release drops the inbound reference taken in step 10 and, if it was the
// last one and the job has reached INACTIVE, removes it from the active
// set (spec §3 lifecycle, §4.3 reentrancy note).
func (e *Engine) release(j *job.Job) {
	if j.Decref() && j.State.Terminal() {
		delete(e.activeJobs, j.ID)
	}
}

func (e *Engine) updateRunningCount(prev, cur job.State) {
	wasRunning := prev.Running()
	isRunning := cur.Running()
	if wasRunning == isRunning {
		return
	}
	if isRunning {
		e.runningCount++
	} else {
		e.runningCount--
	}
	metrics.JobsRunning.Set(float64(e.runningCount))
}

// clearOutstandingOnApply clears the Outstanding bits whose in-flight
// interaction the just-applied event resolves. The spec names the bits
// (alloc_queued, alloc_pending, free_pending, start_pending) but leaves
// their exact clearing points to the implementation (§9); this engine
// clears alloc/start bits on entering CLEANUP (their collaborator
// requests are no longer meaningful once a job is winding down) and
// free_pending on a successful "free".
func (e *Engine) clearOutstandingOnApply(j *job.Job, name eventlog.Name, changed bool) {
	switch name {
	case eventlog.Alloc:
		j.Outstanding = j.Outstanding.With(job.AllocQueued, false).With(job.AllocPending, false)
	case eventlog.Free:
		j.Outstanding = j.Outstanding.With(job.FreePending, false)
	}
	if changed && j.State == job.Cleanup {
		j.Outstanding = j.Outstanding.
			With(job.AllocQueued, false).
			With(job.AllocPending, false).
			With(job.StartPending, false)
	}
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
