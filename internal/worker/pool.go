// Package worker runs jobs on a fixed set of goroutines.
package worker

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("worker pool closed")

type Job[T any] func(ctx context.Context) (T, error)

type Result[T any] struct {
	JobID  string
	Output T
	Err    error
}

// Pool executes submitted jobs with a bounded number of workers. Each
// submission gets its own reply channel, so concurrent callers never see each
// other's results.
type Pool[T any] struct {
	jobs chan jobWrapper[T]

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type jobWrapper[T any] struct {
	ctx   context.Context
	id    string
	fn    Job[T]
	reply chan Result[T]
}

func NewPool[T any](workerCount int, bufferSize int) *Pool[T] {
	if workerCount < 1 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	p := &Pool[T]{
		jobs: make(chan jobWrapper[T], bufferSize),
	}

	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}

	return p
}

func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		var res Result[T]
		res.JobID = job.id
		if err := job.ctx.Err(); err != nil {
			res.Err = err
		} else {
			res.Output, res.Err = job.fn(job.ctx)
		}
		job.reply <- res
	}
}

// Submit queues fn and returns the channel its result will be sent on. The
// channel is buffered, so an abandoned result never blocks a worker.
func (p *Pool[T]) Submit(ctx context.Context, id string, fn Job[T]) (<-chan Result[T], error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrClosed
	}

	reply := make(chan Result[T], 1)
	select {
	case p.jobs <- jobWrapper[T]{ctx: ctx, id: id, fn: fn, reply: reply}:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run submits every job and waits for all of them. The first job error is
// returned after all results are in.
func (p *Pool[T]) Run(ctx context.Context, jobs map[string]Job[T]) (map[string]T, error) {
	replies := make([]<-chan Result[T], 0, len(jobs))
	for id, fn := range jobs {
		reply, err := p.Submit(ctx, id, fn)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}

	out := make(map[string]T, len(jobs))
	var firstErr error
	for _, reply := range replies {
		res := <-reply
		if res.Err != nil {
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		out[res.JobID] = res.Output
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
