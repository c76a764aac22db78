package utils

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned when a task is submitted after Close.
	ErrPoolClosed = errors.New("worker pool is closed")
	// ErrPoolFull is returned by TrySubmit when the queue has no room.
	ErrPoolFull = errors.New("worker pool queue is full")
)

// ParallelTask represents a task that can be executed in parallel
type ParallelTask[T any] func(ctx context.Context) (T, error)

// RunParallel executes tasks concurrently. Results and errors are reported
// at the index of the task that produced them.
func RunParallel[T any](ctx context.Context, tasks []ParallelTask[T]) ([]T, []error) {
	var wg sync.WaitGroup
	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))

	wg.Add(len(tasks))
	for i, task := range tasks {
		go func(index int, t ParallelTask[T]) {
			defer wg.Done()
			results[index], errs[index] = t(ctx)
		}(i, task)
	}

	wg.Wait()
	return results, errs
}

// WorkerPool runs submitted tasks on a fixed number of goroutines
type WorkerPool struct {
	mu       sync.RWMutex
	closed   bool
	taskChan chan func()
	wg       sync.WaitGroup
	workers  sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	pool := &WorkerPool{
		taskChan: make(chan func(), maxWorkers*2),
	}

	pool.workers.Add(maxWorkers)
	for i := 0; i < maxWorkers; i++ {
		go pool.worker()
	}

	return pool
}

func (p *WorkerPool) worker() {
	defer p.workers.Done()
	for task := range p.taskChan {
		p.run(task)
	}
}

func (p *WorkerPool) run(task func()) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("worker pool task panicked", zap.Any("panic", r))
		}
	}()
	task()
}

// Submit queues task. It blocks while the queue is full.
func (p *WorkerPool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	p.taskChan <- task
	return nil
}

// TrySubmit queues task without waiting. It returns ErrPoolFull when the
// queue is full.
func (p *WorkerPool) TrySubmit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	select {
	case p.taskChan <- task:
		return nil
	default:
		p.wg.Done()
		return ErrPoolFull
	}
}

// Wait blocks until every submitted task has finished.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close stops accepting tasks and waits for the queued ones to finish.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.taskChan)
	p.mu.Unlock()

	p.workers.Wait()
}
