package channel

import (
	"log/slog"
	"sync"
)

// Executor runs submitted tasks one at a time, in submission order, on a
// single goroutine. Submit never blocks; Call blocks until the task has run.
//
// Tasks must not Call into the same executor they run on.
type Executor struct {
	name   string
	mu     sync.Mutex
	tasks  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewExecutor starts an executor goroutine
func NewExecutor(name string) *Executor {
	e := &Executor{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go e.run()

	slog.Debug("executor started", "executor", name)
	return e
}

// Submit enqueues a task. It returns false once the executor is shut down.
func (e *Executor) Submit(task func()) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		slog.Debug("task rejected by closed executor", "executor", e.name)
		return false
	}
	e.tasks = append(e.tasks, task)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// Call enqueues a task and waits for it to complete.
// It returns false without running the task if the executor is shut down.
func (e *Executor) Call(task func()) bool {
	finished := make(chan struct{})
	if !e.Submit(func() {
		defer close(finished)
		task()
	}) {
		return false
	}
	<-finished
	return true
}

// Shutdown stops accepting tasks, runs everything already queued and waits
// for the executor goroutine to exit. It is safe to call more than once.
func (e *Executor) Shutdown() {
	e.mu.Lock()
	alreadyClosed := e.closed
	e.closed = true
	pending := len(e.tasks)
	e.mu.Unlock()

	if !alreadyClosed {
		slog.Debug("executor shutting down", "executor", e.name, "pending_tasks", pending)
		select {
		case e.wake <- struct{}{}:
		default:
		}
	}

	<-e.done
}

func (e *Executor) run() {
	defer close(e.done)

	for {
		e.mu.Lock()
		if len(e.tasks) == 0 {
			if e.closed {
				e.mu.Unlock()
				slog.Debug("executor drained", "executor", e.name)
				return
			}
			e.mu.Unlock()
			<-e.wake
			continue
		}
		task := e.tasks[0]
		e.tasks[0] = nil
		e.tasks = e.tasks[1:]
		e.mu.Unlock()

		e.runTask(task)
	}
}

// runTask keeps the queue alive when a task panics
func (e *Executor) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("executor task panicked", "executor", e.name, "panic", r)
		}
	}()
	task()
}

// callResult runs fn on the executor and returns its result, or fallback if
// the executor is shut down.
func callResult[T any](e *Executor, fallback T, fn func() T) T {
	result := fallback
	if !e.Call(func() { result = fn() }) {
		return fallback
	}
	return result
}
