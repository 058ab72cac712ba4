package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuemby/jobmgr/pkg/errs"
	"github.com/cuemby/jobmgr/pkg/kvs"
	"github.com/cuemby/jobmgr/pkg/log"
	"github.com/cuemby/jobmgr/pkg/metrics"
	"github.com/cuemby/jobmgr/pkg/pubsub"
)

// FatalFunc is invoked when a commit or publish fails; per spec §7 both
// CommitFailed and PubFailed are fatal and stop the reactor from making
// further progress on the affected batch's job state.
type FatalFunc func(err *errs.Error)

// Engine is the Batch Engine (BE): spec §5 calls for "single-threaded
// cooperative" semantics with no locks. This implementation achieves that
// intent idiomatically: all batch-lifecycle state lives on one reactor
// goroutine and is only ever touched by closures sent over ops, so no
// mutex guards it. Submit blocks its caller until the reactor has applied
// the submission, which serializes concurrent callers exactly as a single
// execution context would, while letting post_event's recursive calls
// (spec §4.3 step 12) proceed on the caller's own goroutine without ever
// re-entering the reactor loop itself.
type Engine struct {
	kv     kvs.KVS
	pub    pubsub.Publisher
	window time.Duration
	fatal  FatalFunc

	ops     chan func(*reactorState)
	stopCh  chan struct{}
	stopped chan struct{}

	commitWG sync.WaitGroup
	pubWG    sync.WaitGroup
}

type reactorState struct {
	current *Batch
	timerC  <-chan time.Time
}

// New creates an Engine. window is the batch accumulation window (spec
// §4.2 default 10ms). fatal is invoked exactly once per fatal error and
// must not block.
func New(kv kvs.KVS, pub pubsub.Publisher, window time.Duration, fatal FatalFunc) *Engine {
	return &Engine{
		kv:      kv,
		pub:     pub,
		window:  window,
		fatal:   fatal,
		ops:     make(chan func(*reactorState)),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start launches the reactor goroutine.
func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) run() {
	state := &reactorState{}
	for {
		select {
		case op := <-e.ops:
			op(state)
		case <-state.timerC:
			e.fire(state)
		case <-e.stopCh:
			close(e.stopped)
			return
		}
	}
}

// Submit adds one caller's append/transition/reply to the current batch,
// creating one if none is Accumulating (Idle -> Accumulating, spec §4.2).
// It blocks until the reactor goroutine has recorded the submission.
func (e *Engine) Submit(s Submission) {
	if s.empty() {
		return
	}
	done := make(chan struct{})
	e.ops <- func(rs *reactorState) {
		if rs.current == nil {
			rs.current = newBatch(uuid.NewString())
			timer := time.NewTimer(e.window)
			rs.timerC = timer.C
		}
		b := rs.current
		if s.Append != nil {
			b.Appends = append(b.Appends, *s.Append)
		}
		if s.Transition != nil {
			b.Transitions = append(b.Transitions, *s.Transition)
		}
		if s.Reply != nil {
			b.Replies = append(b.Replies, s.Reply)
		}
		close(done)
	}
	<-done
}

// fire transitions Accumulating -> Committing for the current batch and
// arms no new timer until the next Submit starts one (spec §4.2: a batch
// is Idle between windows).
func (e *Engine) fire(state *reactorState) {
	b := state.current
	state.current = nil
	state.timerC = nil
	if b == nil {
		return
	}
	e.commit(b)
}

// commit drives one batch through Committing -> {Done | Failed}. If the
// batch has no KVS appends (pub-only or reply-only), it skips straight to
// post-commit actions on the reactor goroutine; otherwise the KVS round
// trip runs on its own goroutine and bounces its result back through ops
// so reactor state is only ever mutated on the reactor goroutine.
func (e *Engine) commit(b *Batch) {
	b.State = Committing
	if len(b.Appends) == 0 {
		e.onCommitDone(b, nil)
		return
	}

	e.commitWG.Add(1)
	timer := metrics.NewTimer()
	go func() {
		defer e.commitWG.Done()
		err := e.kv.AppendBatch(context.Background(), b.Appends)
		applied := make(chan struct{})
		e.ops <- func(*reactorState) {
			timer.ObserveDuration(metrics.BatchCommitDuration)
			e.onCommitDone(b, err)
			close(applied)
		}
		// Stay counted in commitWG until the post-commit actions (and any
		// publish they start) are registered, so Shutdown waits for them.
		<-applied
	}()
}

// onCommitDone applies the commit result and, on success, runs the
// post-commit action sequence of spec §4.2: publish once, then send
// deferred replies in enqueue order, then destroy the batch. A commit
// failure is fatal and the batch's transitions/replies are dropped.
func (e *Engine) onCommitDone(b *Batch, err error) {
	if err != nil {
		b.State = Failed
		metrics.BatchCommitFailuresTotal.Inc()
		e.reportFatal(b.ID, errs.Wrap(errs.CommitFailed, "batch commit failed", err))
		return
	}

	b.State = Done
	metrics.BatchCommitsTotal.Inc()
	metrics.BatchSize.Observe(float64(len(b.Appends)))

	if len(b.Transitions) > 0 {
		e.publishTransitions(b.ID, b.Transitions)
	}
	for _, reply := range b.Replies {
		reply()
	}
}

func (e *Engine) publishTransitions(batchID string, transitions []pubsub.StateTransition) {
	payload := pubsub.StateTransitionsPayload{Transitions: transitions}
	future := e.pub.Publish(context.Background(), pubsub.Message{
		Topic:   pubsub.JobStateTopic,
		Payload: payload,
	})

	e.pubWG.Add(1)
	go func() {
		defer e.pubWG.Done()
		if err := <-future; err != nil {
			e.reportFatal(batchID, errs.Wrap(errs.PubFailed, "job-state publish failed", err))
		}
	}()
}

func (e *Engine) reportFatal(batchID string, err *errs.Error) {
	logger := log.WithComponent("batch")
	if batchID != "" {
		logger = logger.With().Str("batch_id", batchID).Logger()
	}
	logger.Error().Err(err).Msg("fatal batch error")
	if e.fatal != nil {
		e.fatal(err)
	}
}

// Shutdown forces an immediate commit of any Accumulating batch (the
// window timer cannot otherwise be cancelled externally), then waits for
// every in-flight commit and publish to finish before returning.
func (e *Engine) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	e.ops <- func(rs *reactorState) {
		e.fire(rs)
		close(done)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	waitDone := make(chan struct{})
	go func() {
		e.commitWG.Wait()
		e.pubWG.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(e.stopCh)
	<-e.stopped
	return nil
}
