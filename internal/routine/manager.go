package routine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Handler is the body of a routine. It must return once ctx is done.
type Handler func(ctx context.Context) error

var (
	ErrEmptyID         = errors.New("routine manager: empty id")
	ErrNilHandler      = errors.New("routine manager: nil handler")
	ErrRoutineExists   = errors.New("routine manager: routine already running")
	ErrRoutineNotFound = errors.New("routine manager: routine not found")
	ErrNilTask         = errors.New("routine manager: nil task")
)

// Manager owns a set of named goroutines derived from one base context.
type Manager struct {
	baseCtx context.Context
	mu      sync.RWMutex
	tasks   map[string]*Task
}

// Task wraps a handler with optional lifecycle hooks.
type Task struct {
	ID      string
	Handler Handler

	OnStart func(string)
	OnDone  func(string)
	OnError func(string, error)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(ctx context.Context) *Manager {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Manager{
		baseCtx: ctx,
		tasks:   make(map[string]*Task),
	}
}

func (m *Manager) Run(id string, handler Handler) error {
	return m.RunTask(&Task{ID: id, Handler: handler})
}

func (m *Manager) RunTask(task *Task) error {
	if task == nil {
		return ErrNilTask
	}
	if task.ID == "" {
		return ErrEmptyID
	}
	if task.Handler == nil {
		return ErrNilHandler
	}

	m.mu.Lock()
	if _, exists := m.tasks[task.ID]; exists {
		m.mu.Unlock()
		return ErrRoutineExists
	}
	ctx, cancel := context.WithCancel(m.baseCtx)
	task.cancel = cancel
	task.done = make(chan struct{})
	m.tasks[task.ID] = task
	m.mu.Unlock()

	go m.run(ctx, task)
	return nil
}

// Running returns the ids of live routines, sorted.
func (m *Manager) Running() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Shutdown cancels one routine and waits for it to return.
func (m *Manager) Shutdown(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	m.mu.RLock()
	task, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return ErrRoutineNotFound
	}
	task.cancel()
	<-task.done
	return nil
}

// ShutdownAll cancels every routine and waits for all of them.
func (m *Manager) ShutdownAll() {
	m.mu.RLock()
	tasks := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.RUnlock()

	for _, t := range tasks {
		t.cancel()
	}
	for _, t := range tasks {
		<-t.done
	}
}

func (m *Manager) run(ctx context.Context, task *Task) {
	defer func() {
		task.cancel()
		m.cleanup(task)
		close(task.done)
		if task.OnDone != nil {
			task.OnDone(task.ID)
		}
	}()
	if task.OnStart != nil {
		task.OnStart(task.ID)
	}
	if err := task.Handler(ctx); err != nil && task.OnError != nil {
		task.OnError(task.ID, err)
	}
}

func (m *Manager) cleanup(task *Task) {
	m.mu.Lock()
	if current, ok := m.tasks[task.ID]; ok && current == task {
		delete(m.tasks, task.ID)
	}
	m.mu.Unlock()
}

// Every builds a handler that calls fn immediately and then on each tick
// until ctx is done. Errors from fn go to onErr and do not stop the loop.
func Every(interval time.Duration, fn Handler, onErr func(error)) Handler {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := fn(ctx); err != nil && onErr != nil && ctx.Err() == nil {
				onErr(err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
}
