package pipeline

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("pipeline: queue closed")

// RunFunc executes one frame.
type RunFunc func(ctx context.Context, in *FrameInput) error

// Queue is a bounded FIFO of frames with a single consumer goroutine.
// Submit returns as soon as the frame is queued; frames run in submission
// order. The first frame error stops the consumer and is reported by every
// later Submit, Flush and Close.
type Queue struct {
	run  RunFunc
	jobs chan job
	wg   sync.WaitGroup

	// send is held shared by senders and exclusively by Close, so jobs is
	// never closed under a pending send.
	send   sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error

	ctx    context.Context
	cancel context.CancelFunc
}

type job struct {
	in    FrameInput
	flush chan struct{}
}

// NewQueue starts a consumer running frames through run. depth bounds the
// number of frames waiting; values below 1 mean 1.
func NewQueue(depth int, run RunFunc) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		run:    run,
		jobs:   make(chan job, max(depth, 1)),
		ctx:    ctx,
		cancel: cancel,
	}
	q.wg.Add(1)
	go q.consume()
	return q
}

func (q *Queue) consume() {
	defer q.wg.Done()
	for j := range q.jobs {
		if j.flush != nil {
			close(j.flush)
			continue
		}
		if q.Err() != nil {
			continue
		}
		if err := q.run(q.ctx, &j.in); err != nil {
			q.errMu.Lock()
			if q.err == nil {
				q.err = err
			}
			q.errMu.Unlock()
		}
	}
}

// Err returns the first frame error, if any.
func (q *Queue) Err() error {
	q.errMu.Lock()
	defer q.errMu.Unlock()
	return q.err
}

// Submit queues a frame, blocking while the queue is full or until ctx is
// done.
func (q *Queue) Submit(ctx context.Context, in FrameInput) error {
	return q.push(ctx, job{in: in})
}

func (q *Queue) push(ctx context.Context, j job) error {
	q.send.RLock()
	defer q.send.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}
	if err := q.Err(); err != nil {
		return err
	}
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush waits until every frame submitted before it has run.
func (q *Queue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	if err := q.push(ctx, job{flush: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return q.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting frames, lets the queued ones finish and returns
// the first frame error. Close is idempotent.
func (q *Queue) Close() error {
	q.send.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.send.Unlock()

	q.wg.Wait()
	q.cancel()
	return q.Err()
}
