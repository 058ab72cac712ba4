package engine

import (
	"context"

	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/job"
	"github.com/cuemby/jobmgr/pkg/jobtap"
)

// runStateAction runs the per-state idempotent action of spec §4.3 step
// 12. Every branch guards on a flag or counter before acting a second
// time, so calling it twice in a row with no intervening event yields the
// same external effects as calling it once (spec testable property 4).
//
// cause is the name of the event whose pipeline is invoking this action.
// The DEPEND branch ignores the submit event itself: a freshly submitted
// job has dependency_count 0 before the dependency-resolution plugin has
// had a chance to register anything, and this is a fully synchronous,
// non-yielding reactor, so checking on submit's own pass would auto-post
// depend before any dependency-add event for the job could ever land
// (scenario S2). Any later event reaching DEPEND re-checks normally.
func (e *Engine) runStateAction(ctx context.Context, j *job.Job, cause eventlog.Name) {
	alog := jobLogger(j.ID)
	switch j.State {
	case job.Depend:
		if cause != eventlog.Submit && j.DependencyCount == 0 && !j.DependPosted {
			j.DependPosted = true
			e.postEvent(ctx, j.ID, eventlog.Depend, 0, nil)
		}

	case job.Priority:
		if e.collab.Scheduler != nil {
			if err := e.collab.Scheduler.DequeueAlloc(ctx, j.ID); err != nil {
				alog.Error().Err(err).Msg("dequeue stale alloc failed")
			}
		}

	case job.Sched:
		if e.collab.Scheduler == nil {
			return
		}
		if !j.Outstanding.Has(job.AllocQueued) {
			j.Outstanding = j.Outstanding.With(job.AllocQueued, true)
			if err := e.collab.Scheduler.EnqueueAlloc(ctx, j.ID); err != nil {
				alog.Error().Err(err).Msg("enqueue alloc failed")
			}
		}
		if err := e.collab.Scheduler.RecalculatePending(ctx); err != nil {
			alog.Error().Err(err).Msg("recalculate pending failed")
		}

	case job.Run:
		if j.PerilogActive == 0 && e.collab.Exec != nil && !j.Outstanding.Has(job.StartPending) {
			j.Outstanding = j.Outstanding.With(job.StartPending, true)
			if err := e.collab.Exec.SendStart(ctx, j.ID); err != nil {
				alog.Error().Err(err).Msg("send start failed")
			}
		}

	case job.Cleanup:
		e.runCleanupAction(ctx, j)

	case job.Inactive:
		if j.Flags.Has(job.Waitable) && e.collab.Wait != nil {
			if err := e.collab.Wait.NotifyDone(ctx, j.ID); err != nil {
				alog.Error().Err(err).Msg("notify wait failed")
			}
		}
		if e.collab.Drain != nil {
			if err := e.collab.Drain.Inform(ctx, j.ID); err != nil {
				alog.Error().Err(err).Msg("inform drain failed")
			}
		}

	case job.New:
		// Nothing to do.
	}
}

func (e *Engine) runCleanupAction(ctx context.Context, j *job.Job) {
	alog := jobLogger(j.ID)
	if e.collab.Scheduler != nil {
		if err := e.collab.Scheduler.DequeueAlloc(ctx, j.ID); err != nil {
			alog.Error().Err(err).Msg("dequeue alloc on cleanup failed")
		}
	}

	if j.HasResources && j.PerilogActive == 0 &&
		!j.Outstanding.Has(job.StartPending) && !j.Outstanding.Has(job.FreePending) &&
		!j.Outstanding.Has(job.AllocBypass) {
		j.Outstanding = j.Outstanding.With(job.FreePending, true)
		if e.collab.Scheduler != nil {
			if err := e.collab.Scheduler.SendFree(ctx, j.ID); err != nil {
				alog.Error().Err(err).Msg("send free failed")
			}
		}
	}

	idle := !j.Outstanding.Has(job.AllocQueued) &&
		!j.Outstanding.Has(job.AllocPending) &&
		!j.Outstanding.Has(job.FreePending) &&
		!j.Outstanding.Has(job.StartPending) &&
		!j.HasResources

	if idle {
		e.postEvent(ctx, j.ID, eventlog.Clean, 0, nil)
	}
}

// hookErrorPolicy implements the callback-error policy seam of spec §9:
// the source ignores plugin callback errors but its comments say they
// should become job exceptions. When promote is true this does exactly
// that; otherwise it returns nil and the dispatcher only logs and counts
// the error (the historical, unchanged policy).
func (e *Engine) hookErrorPolicy(promote bool) jobtap.CallbackErrorFunc {
	if !promote {
		return nil
	}
	return func(topic jobtap.Topic, j *job.Job, err error) {
		_ = e.postEvent(context.Background(), j.ID, eventlog.Exception, 0, map[string]any{
			"severity": 1,
			"reason":   "plugin callback error on " + string(topic) + ": " + err.Error(),
		})
	}
}
