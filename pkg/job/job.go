package job

import (
	"sync"

	"github.com/cuemby/jobmgr/pkg/eventlog"
)

// Job is the authoritative in-memory record for one job (spec §3). All
// mutation happens from the reactor goroutine (spec §5); the mutex guards
// only the refcount, which callers outside the reactor (e.g. a deferred
// reply callback) may touch.
type Job struct {
	mu sync.Mutex

	ID    uint64
	State State

	TSubmit  float64
	Urgency  int32
	Priority int64
	UserID   uint32
	Flags    Flags

	HasResources bool
	Outstanding  Outstanding
	PerilogActive uint8

	DependPosted    bool
	dependencies    map[string]struct{}
	DependencyCount uint32

	EndEvent *eventlog.Entry

	EventlogSeq   int64
	lastEventByID map[int32]int64

	refcount uint32
}

// NewJob creates a job in state NEW with priority unset (spec §3).
func NewJob(id uint64) *Job {
	return &Job{
		ID:            id,
		State:         New,
		Priority:      UnsetPriority,
		dependencies:  make(map[string]struct{}),
		lastEventByID: make(map[int32]int64),
	}
}

// AddDependency registers description as outstanding, incrementing
// DependencyCount only the first time a given description is seen (spec
// §4.3: "dependency-add ... inc ... keyed by description").
func (j *Job) AddDependency(description string) {
	if _, exists := j.dependencies[description]; exists {
		return
	}
	j.dependencies[description] = struct{}{}
	j.DependencyCount++
}

// RemoveDependency clears description if outstanding, decrementing
// DependencyCount. Removing an unknown description is a no-op.
func (j *Job) RemoveDependency(description string) {
	if _, exists := j.dependencies[description]; !exists {
		return
	}
	delete(j.dependencies, description)
	j.DependencyCount--
}

// RecordLastEvent caches the last sequence a given EVX id was observed at
// (spec §4.3 step 6: "Cache"). seq is the sentinel -1 for events that were
// not assigned a sequence.
func (j *Job) RecordLastEvent(evxID int32, seq int64) {
	j.lastEventByID[evxID] = seq
}

// LastEvent returns the last recorded sequence for evxID and whether the
// job has ever observed that event.
func (j *Job) LastEvent(evxID int32) (int64, bool) {
	seq, ok := j.lastEventByID[evxID]
	return seq, ok
}

// SetEndEvent latches entry as the job's end event, but only if one is not
// already set (spec invariant 6 / testable property 7: "first fatal
// exception wins over later finish").
func (j *Job) SetEndEvent(entry eventlog.Entry) {
	if j.EndEvent != nil {
		return
	}
	j.EndEvent = &entry
}

// IncPerilog records one more in-flight prolog/epilog script, saturating
// at the field's u8 range rather than wrapping (spec invariant 4).
func (j *Job) IncPerilog() {
	if j.PerilogActive < 255 {
		j.PerilogActive++
	}
}

// DecPerilog records one fewer in-flight prolog/epilog script, never
// going below zero (spec invariant 4).
func (j *Job) DecPerilog() {
	if j.PerilogActive > 0 {
		j.PerilogActive--
	}
}

// Incref acquires an inbound reference (spec §4.3 step 10).
func (j *Job) Incref() {
	j.mu.Lock()
	j.refcount++
	j.mu.Unlock()
}

// Decref releases an inbound reference (spec §4.3 step 13) and reports
// whether the job has reached zero references, meaning it is safe to
// remove from the active set if it is also INACTIVE.
func (j *Job) Decref() (zero bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.refcount > 0 {
		j.refcount--
	}
	return j.refcount == 0
}

// Refcount returns the current inbound reference count.
func (j *Job) Refcount() uint32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.refcount
}
