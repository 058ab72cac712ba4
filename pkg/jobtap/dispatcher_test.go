package jobtap

import (
	"errors"
	"testing"

	"github.com/cuemby/jobmgr/pkg/eventlog"
	"github.com/cuemby/jobmgr/pkg/job"
	"github.com/stretchr/testify/assert"
)

type recordingHook struct {
	events        []eventlog.Name
	stateChanges  int
	reprioritize  func(j *job.Job) (int64, bool, error)
	eventErr      error
	stateErr      error
}

func (h *recordingHook) HandleEvent(j *job.Job, entry eventlog.Entry) error {
	h.events = append(h.events, entry.Name)
	return h.eventErr
}

func (h *recordingHook) HandleStateChange(j *job.Job, entry eventlog.Entry, prev job.State) error {
	h.stateChanges++
	return h.stateErr
}

func (h *recordingHook) Reprioritize(j *job.Job) (int64, bool, error) {
	if h.reprioritize != nil {
		return h.reprioritize(j)
	}
	return 0, false, nil
}

func TestDispatchEventNotifiesAllHooks(t *testing.T) {
	d := NewDispatcher(nil)
	h1, h2 := &recordingHook{}, &recordingHook{}
	d.Register(h1)
	d.Register(h2)

	j := job.NewJob(1)
	d.DispatchEvent(j, eventlog.Entry{Name: eventlog.Submit})

	assert.Equal(t, []eventlog.Name{eventlog.Submit}, h1.events)
	assert.Equal(t, []eventlog.Name{eventlog.Submit}, h2.events)
}

func TestDispatchStateChangeOnlyCallsStateHandler(t *testing.T) {
	d := NewDispatcher(nil)
	h := &recordingHook{}
	d.Register(h)

	j := job.NewJob(1)
	j.State = job.Depend
	d.DispatchStateChange(j, eventlog.Entry{Name: eventlog.Submit}, job.New)

	assert.Equal(t, 1, h.stateChanges)
	assert.Empty(t, h.events)
}

func TestDispatchEventErrorInvokesPolicySeam(t *testing.T) {
	var gotTopic Topic
	var gotErr error
	d := NewDispatcher(func(topic Topic, j *job.Job, err error) {
		gotTopic = topic
		gotErr = err
	})
	d.Register(&recordingHook{eventErr: errors.New("boom")})

	j := job.NewJob(1)
	d.DispatchEvent(j, eventlog.Entry{Name: eventlog.Finish})

	assert.Equal(t, EventTopic(eventlog.Finish), gotTopic)
	assert.EqualError(t, gotErr, "boom")
}

func TestReprioritizeUsesLastChangingVote(t *testing.T) {
	d := NewDispatcher(nil)
	d.Register(&recordingHook{reprioritize: func(j *job.Job) (int64, bool, error) {
		return 5, true, nil
	}})
	d.Register(&recordingHook{reprioritize: func(j *job.Job) (int64, bool, error) {
		return 0, false, nil
	}})

	j := job.NewJob(1)
	p, changed := d.Reprioritize(j)
	assert.True(t, changed)
	assert.Equal(t, int64(5), p)
}
