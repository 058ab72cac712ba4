// Package statemachine implements the State Machine (SM): a pure function
// mapping (JobState, Event) to a new JobState, per the transition table of
// spec §4.3. It performs no I/O and calls no collaborator — the per-state
// actions that follow a transition, and any collaborator calls they make,
// live in pkg/engine.
package statemachine

import (
	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/job"
)

// Apply runs entry against j's transition table, mutating j in place.
// changed reports whether j.State differs from before the call (spec
// §4.3 step 8, "if job.state changed"). An illegal transition leaves j
// untouched and returns InvalidTransition.
func Apply(j *job.Job, entry eventlog.Entry) (changed bool, err error) {
	prev := j.State

	switch entry.Name {
	case eventlog.Submit:
		if j.State != job.New {
			return false, illegal(entry.Name, j.State)
		}
		j.TSubmit = entry.Timestamp
		j.Urgency = int32(ctxInt(entry.Context, "urgency", 0))
		j.UserID = uint32(ctxInt(entry.Context, "userid", 0))
		for _, name := range ctxStringSlice(entry.Context, "flags") {
			if f, ok := job.FlagByName(name); ok {
				j.Flags = j.Flags.Union(f)
			}
		}
		j.State = job.Depend

	case eventlog.DependencyAdd:
		if j.State != job.Depend {
			return false, illegal(entry.Name, j.State)
		}
		j.AddDependency(ctxString(entry.Context, "description", ""))

	case eventlog.DependencyRemove:
		if j.State != job.Depend {
			return false, illegal(entry.Name, j.State)
		}
		j.RemoveDependency(ctxString(entry.Context, "description", ""))

	case eventlog.SetFlags:
		for _, name := range ctxStringSlice(entry.Context, "flags") {
			if f, ok := job.FlagByName(name); ok {
				j.Flags = j.Flags.Union(f)
			}
		}

	case eventlog.Memo:
		// Annotation merge is persisted by the Annotate collaborator
		// (pkg/collab); the state machine itself has nothing to mutate.

	case eventlog.Depend:
		if j.State != job.Depend {
			return false, illegal(entry.Name, j.State)
		}
		j.State = job.Priority

	case eventlog.Priority:
		if j.State != job.Priority && j.State != job.Sched {
			return false, illegal(entry.Name, j.State)
		}
		j.Priority = ctxInt64(entry.Context, "priority", job.UnsetPriority)
		j.State = job.Sched

	case eventlog.Urgency:
		if j.State.Terminal() {
			return false, illegal(entry.Name, j.State)
		}
		j.Urgency = int32(ctxInt(entry.Context, "urgency", int(j.Urgency)))

	case eventlog.Exception:
		if j.State == job.New || j.State == job.Inactive {
			return false, illegal(entry.Name, j.State)
		}
		if ctxInt(entry.Context, "severity", 0) == 0 {
			j.SetEndEvent(entry)
			j.State = job.Cleanup
		}

	case eventlog.Alloc:
		if j.State != job.Sched && j.State != job.Cleanup {
			return false, illegal(entry.Name, j.State)
		}
		j.HasResources = true
		if j.State == job.Sched {
			j.State = job.Run
		}

	case eventlog.Free:
		if j.State != job.Cleanup {
			return false, illegal(entry.Name, j.State)
		}
		if !j.HasResources {
			return false, errs.New(errs.InvalidTransition, "free requires has_resources")
		}
		j.HasResources = false

	case eventlog.Finish:
		if j.State != job.Run && j.State != job.Cleanup {
			return false, illegal(entry.Name, j.State)
		}
		if j.State == job.Run {
			j.SetEndEvent(entry)
			j.State = job.Cleanup
		}

	case eventlog.Release:
		if j.State != job.Run && j.State != job.Cleanup {
			return false, illegal(entry.Name, j.State)
		}
		if ctxBool(entry.Context, "final", false) && j.State == job.Run {
			return false, errs.New(errs.InvalidTransition, "final release not allowed in RUN")
		}

	case eventlog.Clean:
		if j.State != job.Cleanup {
			return false, illegal(entry.Name, j.State)
		}
		j.State = job.Inactive

	case eventlog.PrologStart, eventlog.PrologFinish:
		if j.Outstanding.Has(job.StartPending) {
			return false, illegal(entry.Name, j.State)
		}
		if entry.Name == eventlog.PrologStart {
			j.IncPerilog()
		} else {
			j.DecPerilog()
		}

	case eventlog.EpilogStart, eventlog.EpilogFinish:
		if j.State != job.Cleanup {
			return false, illegal(entry.Name, j.State)
		}
		if entry.Name == eventlog.EpilogStart {
			j.IncPerilog()
		} else {
			j.DecPerilog()
		}

	case eventlog.FluxRestart:
		if j.State != job.Sched {
			return false, illegal(entry.Name, j.State)
		}
		j.State = job.Priority

	default:
		// Unknown event names are committed and cached but never change
		// state (spec §4.3 "All other names", §9 closed-enum design note).
	}

	return j.State != prev, nil
}

func illegal(name eventlog.Name, from job.State) error {
	return errs.New(errs.InvalidTransition, "event "+string(name)+" not allowed from state "+string(from))
}
