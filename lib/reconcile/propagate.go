package reconcile

import (
	"context"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"sync"
	"time"
)

// DefaultPushTimeout bounds a single propagation
const DefaultPushTimeout = 15 * time.Second

// PushOutcome is the result of a propagation
type PushOutcome int

const (
	PushSucceeded           PushOutcome = iota // the remote accepted the write
	PushSkippedNoCredential                    // the remote needs a token that is not configured
	PushSkippedUnsupported                     // the backend cannot be written to
	PushFailed                                 // the remote rejected the write or was unreachable
)

func (o PushOutcome) String() string {
	switch o {
	case PushSucceeded:
		return "succeeded"
	case PushSkippedNoCredential:
		return "skipped_no_credential"
	case PushSkippedUnsupported:
		return "skipped_unsupported"
	case PushFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PushResult describes a finished propagation
type PushResult struct {
	Outcome  PushOutcome
	Err      error
	Duration time.Duration
}

// PushTask is a propagation running in the background
type PushTask struct {
	done   chan struct{}
	result PushResult
}

// Done is closed when the task has finished
func (t *PushTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task has finished and returns its result
func (t *PushTask) Wait() PushResult {
	<-t.done
	return t.result
}

func finished(result PushResult) *PushTask {
	t := &PushTask{done: make(chan struct{}), result: result}
	close(t.done)
	return t
}

// Propagator pushes local writes to the backend without blocking the writer.
// There is no retry; a failed push is repaired by a later push of the same posts.
type Propagator struct {
	backend store.IBackend

	// Timeout bounds a single propagation, DefaultPushTimeout if zero
	Timeout time.Duration

	wg sync.WaitGroup
}

// NewPropagator creates a propagator for backend
func NewPropagator(backend store.IBackend) *Propagator {
	return &Propagator{backend: backend, Timeout: DefaultPushTimeout}
}

// Propagate pushes posts on its own goroutine. Cancelling ctx does not stop the push.
func (p *Propagator) Propagate(ctx context.Context, posts []post.Post) *PushTask {
	if !p.backend.SupportsFeature(store.FeaturePush) {
		countPush(PushSkippedUnsupported)
		return finished(PushResult{Outcome: PushSkippedUnsupported})
	}
	posts = post.CloneAll(posts)
	return p.run(ctx, func(ctx context.Context) error {
		return p.backend.Push(ctx, posts)
	})
}

// PropagateRemove deletes id remotely. Backends that cannot remove single posts get the
// remaining collection pushed instead.
func (p *Propagator) PropagateRemove(ctx context.Context, id string, remaining []post.Post) *PushTask {
	if p.backend.SupportsFeature(store.FeatureRemove) {
		return p.run(ctx, func(ctx context.Context) error {
			return p.backend.Remove(ctx, id)
		})
	}
	return p.Propagate(ctx, remaining)
}

// Wait blocks until all started propagations have finished
func (p *Propagator) Wait() {
	p.wg.Wait()
}

func (p *Propagator) run(ctx context.Context, push func(ctx context.Context) error) *PushTask {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	task := &PushTask{done: make(chan struct{})}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(task.done)
		defer cancel()

		var err error
		d := timed(pushTimer, func() {
			err = push(ctx)
		})

		task.result = PushResult{Outcome: outcomeOf(err), Err: err, Duration: d}
		countPush(task.result.Outcome)
		switch task.result.Outcome {
		case PushSucceeded:
			Logger.Debugf("propagated write in %s", d)
		case PushFailed:
			Logger.Warningf("propagation failed, the local write is kept: %v", err)
		default:
			Logger.Infof("propagation skipped: %v", err)
		}
	}()
	return task
}

func outcomeOf(err error) PushOutcome {
	switch {
	case err == nil:
		return PushSucceeded
	case store.IsCode(err, store.RetCNoCredential):
		return PushSkippedNoCredential
	case store.IsCode(err, store.RetCUnsupportedOperation):
		return PushSkippedUnsupported
	default:
		return PushFailed
	}
}
