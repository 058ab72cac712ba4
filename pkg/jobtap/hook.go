// Package jobtap specifies the plugin hook event-points the core emits
// into (spec §1: "only the event-points the core emits into it are
// specified"). The plugin hook system itself — loading, ordering, and
// executing plugins — is an external collaborator; this package is the
// narrow contract the engine drives it through.
package jobtap

import (
	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/job"
)

// Hook is implemented by a plugin. All methods may be called reentrantly:
// a hook is free to post new events against the same job during any of
// these calls (spec §4.3 step 11, §9 "Plugin hook reentrancy").
type Hook interface {
	// HandleEvent is invoked for every committed (or NO_COMMIT) event,
	// regardless of whether it changed state — the "all subscribers"
	// notification of spec §4.3 step 11.
	HandleEvent(j *job.Job, entry eventlog.Entry) error

	// HandleStateChange is invoked in addition to HandleEvent when the
	// event changed j.State, on the per-state topic
	// job.state.<new|depend|priority|sched|run|cleanup|inactive>.
	HandleStateChange(j *job.Job, entry eventlog.Entry, prevState job.State) error

	// Reprioritize is invoked only for "urgency" events, giving the hook
	// the chance to recompute a job's scheduler priority. changed
	// indicates whether newPriority should be applied and the job
	// reprioritized with the scheduler collaborator.
	Reprioritize(j *job.Job) (newPriority int64, changed bool, err error)
}

// Topic names a plugin notification channel (spec §6).
type Topic string

// StateTopic returns the per-state plugin notification topic for s.
func StateTopic(s job.State) Topic {
	switch s {
	case job.New:
		return "job.state.new"
	case job.Depend:
		return "job.state.depend"
	case job.Priority:
		return "job.state.priority"
	case job.Sched:
		return "job.state.sched"
	case job.Run:
		return "job.state.run"
	case job.Cleanup:
		return "job.state.cleanup"
	case job.Inactive:
		return "job.state.inactive"
	default:
		return Topic("job.state." + string(s))
	}
}

// EventTopic returns the per-event-name plugin notification topic.
func EventTopic(name eventlog.Name) Topic {
	return Topic("job.event." + string(name))
}
