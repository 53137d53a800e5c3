// Package worker runs deferred jobs off the request path.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one unit of background work. Tasks must be safe to retry.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

const maxAttempts = 3

// Pool is a bounded single-consumer task queue. Enqueue never blocks the
// caller; when the queue is full the task is dropped and logged.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup
}

// NewPool creates a Pool with the given queue capacity.
func NewPool(queueSize int) *Pool {
	return &Pool{tasks: make(chan Task, queueSize)}
}

// Start launches the consumer. It drains the queue after ctx is cancelled so
// accepted tasks still run during shutdown.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case task := <-p.tasks:
				p.run(ctx, task)
			case <-ctx.Done():
				for {
					select {
					case task := <-p.tasks:
						p.run(context.WithoutCancel(ctx), task)
					default:
						return
					}
				}
			}
		}
	}()
}

// Enqueue submits a task. Returns false when the queue is full.
func (p *Pool) Enqueue(name string, run func(ctx context.Context) error) bool {
	task := Task{Name: name, Run: run}
	select {
	case p.tasks <- task:
		return true
	default:
		slog.Warn("task queue full, dropping task", "task", task.Name)
		return false
	}
}

// Wait blocks until the consumer has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, task Task) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = task.Run(ctx); err == nil {
			return
		}
		slog.Warn("task attempt failed", "task", task.Name, "attempt", attempt, "error", err)
		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
			}
		}
	}
	slog.Error("task failed permanently", "task", task.Name, "error", err)
}
