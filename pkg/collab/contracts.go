// Package collab specifies the narrow contracts the event engine drives
// its external collaborators through (spec §1, §6): the scheduler
// ("alloc"), the shell-launch subsystem ("start"), and the
// journal/wait/drain/annotate collaborators. Full implementations of these
// subsystems are out of scope; this package only states what the core
// calls and supplies minimal in-process implementations so the engine can
// be driven end-to-end in tests and by cmd/jobmgrd (spec §C "Demo external
// collaborators").
package collab

import (
	"context"

	"github.com/cuemby/jobmgr/pkg/eventlog"
)

// Journal receives every event entry and the sequence the engine intends
// to assign it (or -1, per spec §4.3 step 3) before the state machine
// applies it.
type Journal interface {
	Record(ctx context.Context, jobID uint64, entry eventlog.Entry, seq int64) error
}

// Scheduler is the "alloc" collaborator.
type Scheduler interface {
	// EnqueueAlloc requests resources for jobID (SCHED entry action).
	EnqueueAlloc(ctx context.Context, jobID uint64) error
	// DequeueAlloc cancels any outstanding alloc request for jobID
	// (PRIORITY and CLEANUP entry actions).
	DequeueAlloc(ctx context.Context, jobID uint64) error
	// RecalculatePending asks the scheduler to recompute its pending
	// queue (SCHED entry action).
	RecalculatePending(ctx context.Context) error
	// SendFree releases jobID's held resources back to the scheduler
	// (CLEANUP entry action).
	SendFree(ctx context.Context, jobID uint64) error
	// Reprioritize informs the scheduler that jobID's priority changed.
	Reprioritize(ctx context.Context, jobID uint64, priority int64) error
}

// Exec is the "start" (shell-launch) collaborator.
type Exec interface {
	// SendStart requests the shell-launch of jobID (RUN entry action).
	SendStart(ctx context.Context, jobID uint64) error
}

// Wait notifies clients blocked on a waitable job's completion.
type Wait interface {
	NotifyDone(ctx context.Context, jobID uint64) error
}

// Drain informs the drain collaborator that a job has left the active set.
type Drain interface {
	Inform(ctx context.Context, jobID uint64) error
}

// Annotate persists user-supplied annotations merged by a "memo" event.
type Annotate interface {
	Merge(ctx context.Context, jobID uint64, annotations map[string]any) error
}
