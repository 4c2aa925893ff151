// Package parallel runs the host-side compute passes on a pool of
// goroutines.
//
// A pass is expressed as a dispatch of n independent invocations. Dispatch
// returns only after every invocation finished, which gives successive
// passes the same full-barrier guarantee a GPU queue gives successive
// dispatches. Invocations inside one dispatch run in no particular order.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a fixed set of worker goroutines with per-worker queues.
// An idle worker steals from its siblings before blocking, which keeps
// the pool busy when invocations have uneven cost (walkers that escape
// the view early, rows with few hits).
//
// Pool is safe for concurrent use, but dispatches from several goroutines
// interleave their invocations.
type Pool struct {
	workers int
	queues  []chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	// mu orders enqueues against Close so no work lands in a queue
	// whose worker already exited.
	mu sync.RWMutex
}

// NewPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	depth := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range p.queues {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.loop(i)
	}
	return p
}

func (p *Pool) loop(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			drain(own)
			return
		case fn := <-own:
			fn()
			continue
		default:
		}

		if fn := p.steal(id); fn != nil {
			fn()
			continue
		}

		select {
		case <-p.done:
			drain(own)
			return
		case fn := <-own:
			fn()
		}
	}
}

func drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			fn()
		default:
			return
		}
	}
}

func (p *Pool) steal(id int) func() {
	for i := 1; i < p.workers; i++ {
		select {
		case fn := <-p.queues[(id+i)%p.workers]:
			return fn
		default:
		}
	}
	return nil
}

// Dispatch runs fn(0) .. fn(n-1) on the pool and waits for all of them.
// If the pool is closed, the invocations run on the calling goroutine so
// that a pass is never silently skipped.
func (p *Pool) Dispatch(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	p.mu.RLock()
	if !p.running.Load() {
		p.mu.RUnlock()
		for i := range n {
			fn(i)
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		p.queues[i%p.workers] <- func() {
			defer wg.Done()
			fn(i)
		}
	}
	p.mu.RUnlock()
	wg.Wait()
}

// DispatchRange splits [0, total) into chunks of at most size elements and
// runs fn(lo, hi) for each chunk, waiting for all of them.
func (p *Pool) DispatchRange(total, size int, fn func(lo, hi int)) {
	if total <= 0 {
		return
	}
	if size <= 0 {
		size = total
	}
	chunks := (total + size - 1) / size
	p.Dispatch(chunks, func(c int) {
		lo := c * size
		fn(lo, min(lo+size, total))
	})
}

// Close stops the workers after the queued work has run.
// Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.mu.Unlock()
		return
	}
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

// Running reports whether the pool still accepts work.
func (p *Pool) Running() bool { return p.running.Load() }
