package collab

import (
	"context"
	"sync"

	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/log"
	"github.com/rs/zerolog"
)

// DemoJournal logs every entry instead of writing it to a real annotate
// journal. Grounded on the teacher's component-logger idiom
// (pkg/log.WithComponent).
type DemoJournal struct {
	logger zerolog.Logger
}

// NewDemoJournal creates a DemoJournal.
func NewDemoJournal() *DemoJournal {
	return &DemoJournal{logger: log.WithComponent("journal")}
}

// Record implements Journal.
func (j *DemoJournal) Record(ctx context.Context, jobID uint64, entry eventlog.Entry, seq int64) error {
	j.logger.Debug().
		Uint64("job_id", jobID).
		Str("name", string(entry.Name)).
		Int64("seq", seq).
		Msg("journal record")
	return nil
}

// DemoScheduler is an in-memory stand-in for the real alloc subsystem,
// modeled on the teacher's pkg/scheduler ticking-collaborator shape minus
// its resource-matching logic (that belongs to the real scheduler, which
// is out of scope here).
type DemoScheduler struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	queued  map[uint64]bool
	granted map[uint64]bool
}

// NewDemoScheduler creates a DemoScheduler that records the alloc requests
// it is asked to enqueue. It never grants them itself: no alloc event is
// posted on its behalf.
func NewDemoScheduler() *DemoScheduler {
	return &DemoScheduler{
		logger:  log.WithComponent("scheduler"),
		queued:  make(map[uint64]bool),
		granted: make(map[uint64]bool),
	}
}

func (s *DemoScheduler) EnqueueAlloc(ctx context.Context, jobID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued[jobID] = true
	s.logger.Debug().Uint64("job_id", jobID).Msg("alloc enqueued")
	return nil
}

func (s *DemoScheduler) DequeueAlloc(ctx context.Context, jobID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queued, jobID)
	s.logger.Debug().Uint64("job_id", jobID).Msg("alloc dequeued")
	return nil
}

func (s *DemoScheduler) RecalculatePending(ctx context.Context) error {
	s.logger.Debug().Msg("recalculating pending allocations")
	return nil
}

func (s *DemoScheduler) SendFree(ctx context.Context, jobID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.granted, jobID)
	s.logger.Debug().Uint64("job_id", jobID).Msg("resources freed")
	return nil
}

func (s *DemoScheduler) Reprioritize(ctx context.Context, jobID uint64, priority int64) error {
	s.logger.Debug().Uint64("job_id", jobID).Int64("priority", priority).Msg("reprioritized")
	return nil
}

// IsQueued reports whether jobID currently has an outstanding alloc
// request, for test assertions.
func (s *DemoScheduler) IsQueued(jobID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queued[jobID]
}

// DemoExec is an in-memory stand-in for the real shell-launch subsystem.
type DemoExec struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	started map[uint64]bool
}

// NewDemoExec creates a DemoExec.
func NewDemoExec() *DemoExec {
	return &DemoExec{logger: log.WithComponent("exec"), started: make(map[uint64]bool)}
}

func (e *DemoExec) SendStart(ctx context.Context, jobID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.started[jobID] = true
	e.logger.Debug().Uint64("job_id", jobID).Msg("shell launch requested")
	return nil
}

// Started reports whether jobID was asked to start, for test assertions.
func (e *DemoExec) Started(jobID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started[jobID]
}

// DemoWait is an in-memory stand-in for the wait collaborator.
type DemoWait struct {
	mu     sync.Mutex
	logger zerolog.Logger
	done   map[uint64]bool
}

func NewDemoWait() *DemoWait {
	return &DemoWait{logger: log.WithComponent("wait"), done: make(map[uint64]bool)}
}

func (w *DemoWait) NotifyDone(ctx context.Context, jobID uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done[jobID] = true
	w.logger.Debug().Uint64("job_id", jobID).Msg("waiters notified")
	return nil
}

func (w *DemoWait) Notified(jobID uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done[jobID]
}

// DemoDrain is an in-memory stand-in for the drain collaborator.
type DemoDrain struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	drained map[uint64]bool
}

func NewDemoDrain() *DemoDrain {
	return &DemoDrain{logger: log.WithComponent("drain"), drained: make(map[uint64]bool)}
}

func (d *DemoDrain) Inform(ctx context.Context, jobID uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drained[jobID] = true
	d.logger.Debug().Uint64("job_id", jobID).Msg("drain informed")
	return nil
}

func (d *DemoDrain) Informed(jobID uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drained[jobID]
}

// DemoAnnotate is an in-memory stand-in for the annotate collaborator.
type DemoAnnotate struct {
	mu          sync.Mutex
	logger      zerolog.Logger
	annotations map[uint64]map[string]any
}

func NewDemoAnnotate() *DemoAnnotate {
	return &DemoAnnotate{logger: log.WithComponent("annotate"), annotations: make(map[uint64]map[string]any)}
}

func (a *DemoAnnotate) Merge(ctx context.Context, jobID uint64, annotations map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	existing := a.annotations[jobID]
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range annotations {
		existing[k] = v
	}
	a.annotations[jobID] = existing
	a.logger.Debug().Uint64("job_id", jobID).Msg("annotations merged")
	return nil
}

func (a *DemoAnnotate) Annotations(jobID uint64) map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.annotations[jobID]
}
