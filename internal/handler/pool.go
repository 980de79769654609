package handler

import (
	"context"
	"errors"
	"sync"
)

var (
	errQueueFull  = errors.New("task queue full")
	errPoolClosed = errors.New("pool shut down")
)

// pool runs tasks on a fixed number of goroutines fed by a bounded queue
type pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newPool(workers, queueSize int) *pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &pool{tasks: make(chan func(), queueSize)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *pool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// submit queues task without blocking. It fails with errQueueFull or
// errPoolClosed.
func (p *pool) submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errPoolClosed
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return errQueueFull
	}
}

// shutdown stops intake and waits for queued and running tasks
func (p *pool) shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
