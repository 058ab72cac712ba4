package jobtap

import (
	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/job"
	"github.com/cuemby/jobmgr/pkg/log"
	"github.com/cuemby/jobmgr/pkg/metrics"
)

// CallbackErrorFunc is invoked whenever a hook callback returns an error.
// The engine wires this to its configurable policy seam (spec §9: "leave a
// clearly-marked seam and not silently change the policy" — see
// engine.hookErrorPolicy).
type CallbackErrorFunc func(topic Topic, j *job.Job, err error)

// Dispatcher fans a single event out to every registered Hook, in
// registration order.
type Dispatcher struct {
	hooks   []Hook
	onError CallbackErrorFunc
}

// NewDispatcher creates a Dispatcher. onError may be nil, in which case
// callback errors are only logged (the historical policy described in
// spec §9).
func NewDispatcher(onError CallbackErrorFunc) *Dispatcher {
	return &Dispatcher{onError: onError}
}

// Register appends h to the dispatch list.
func (d *Dispatcher) Register(h Hook) {
	d.hooks = append(d.hooks, h)
}

// DispatchEvent calls HandleEvent on every hook (spec §4.3 step 11, "all
// subscribers").
func (d *Dispatcher) DispatchEvent(j *job.Job, entry eventlog.Entry) {
	topic := EventTopic(entry.Name)
	for _, h := range d.hooks {
		if err := h.HandleEvent(j, entry); err != nil {
			d.reportError(topic, j, err)
		}
	}
}

// DispatchStateChange calls HandleStateChange on every hook when state
// changed (spec §4.3 step 11).
func (d *Dispatcher) DispatchStateChange(j *job.Job, entry eventlog.Entry, prevState job.State) {
	topic := StateTopic(j.State)
	for _, h := range d.hooks {
		if err := h.HandleStateChange(j, entry, prevState); err != nil {
			d.reportError(topic, j, err)
		}
	}
}

// Reprioritize asks every hook for a new priority on an "urgency" event
// and returns the last non-zero-change answer (plugins are expected not
// to disagree in practice; the engine applies whichever hook last voted
// to change the priority).
func (d *Dispatcher) Reprioritize(j *job.Job) (newPriority int64, changed bool) {
	for _, h := range d.hooks {
		p, ch, err := h.Reprioritize(j)
		if err != nil {
			d.reportError("job.event.urgency", j, err)
			continue
		}
		if ch {
			newPriority, changed = p, true
		}
	}
	return newPriority, changed
}

func (d *Dispatcher) reportError(topic Topic, j *job.Job, err error) {
	metrics.PluginCallbackErrorsTotal.WithLabelValues(string(topic)).Inc()
	log.WithComponent("jobtap").Warn().
		Err(err).
		Uint64("job_id", j.ID).
		Str("topic", string(topic)).
		Msg("plugin hook callback failed")

	if d.onError != nil {
		d.onError(topic, j, err)
	}
}
