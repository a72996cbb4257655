// Package tasks runs cancellable background requests owned by a session.
package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Func is the body of a task. It must return promptly once ctx is done.
type Func func(ctx context.Context)

type task struct {
	sessionID uuid.UUID
	cancel    context.CancelFunc
	done      chan struct{}
}

// Registry tracks running tasks by request ID.
type Registry struct {
	mu     sync.Mutex
	tasks  map[uuid.UUID]*task
	closed bool
	wg     sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[uuid.UUID]*task)}
}

// Start runs fn in a goroutine under a context derived from parent and
// returns the request ID. The task deregisters itself when fn returns.
// After Close, fn runs with an already cancelled context.
func (r *Registry) Start(parent context.Context, sessionID uuid.UUID, fn Func) uuid.UUID {
	return r.StartWithID(parent, uuid.New(), sessionID, fn)
}

// StartWithID is Start with a caller-chosen request ID, so the ID can be
// recorded in view state before the task can finish.
func (r *Registry) StartWithID(parent context.Context, id, sessionID uuid.UUID, fn Func) uuid.UUID {
	ctx, cancel := context.WithCancel(parent)
	t := &task{sessionID: sessionID, cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	if r.closed {
		cancel()
	}
	if prev, ok := r.tasks[id]; ok {
		prev.cancel()
	}
	r.tasks[id] = t
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer close(t.done)
		defer func() {
			cancel()
			r.mu.Lock()
			if r.tasks[id] == t {
				delete(r.tasks, id)
			}
			r.mu.Unlock()
		}()
		fn(ctx)
	}()

	log.Debug().
		Str("request_id", id.String()).
		Str("session_id", sessionID.String()).
		Msg("Task started")

	return id
}

// Cancel cancels the task with the given ID. It reports whether the task was running.
func (r *Registry) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	t, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	log.Debug().Str("request_id", id.String()).Msg("Task cancelled")
	return true
}

// CancelSession cancels every task owned by sessionID and returns how many were cancelled.
func (r *Registry) CancelSession(sessionID uuid.UUID) int {
	r.mu.Lock()
	var cancels []context.CancelFunc
	for _, t := range r.tasks {
		if t.sessionID == sessionID {
			cancels = append(cancels, t.cancel)
		}
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// Wait blocks until the task finishes or ctx is done. Unknown IDs return immediately.
func (r *Registry) Wait(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	t, ok := r.tasks[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the number of live tasks.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Close cancels all tasks and waits for them to return.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	for _, t := range r.tasks {
		t.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
	log.Info().Msg("Task registry closed")
}
