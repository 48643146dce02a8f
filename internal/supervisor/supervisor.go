// Package supervisor runs long-lived background tasks and shuts them down
// when the process is asked to stop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler is the body of a task. It must return once ctx is cancelled.
type Handler func(ctx context.Context) error

// State is a task's terminal state.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

var (
	ErrEmptyID       = errors.New("supervisor: empty id")
	ErrNilHandler    = errors.New("supervisor: nil handler")
	ErrTaskExists    = errors.New("supervisor: task already running")
	ErrTaskNotFound  = errors.New("supervisor: task not found")
	ErrTaskCompleted = errors.New("supervisor: task exited before shutdown")
)

// Task wraps a handler, its runtime state, and lifecycle callbacks.
type Task struct {
	ID      string
	Handler Handler
	// Stage orders shutdown: tasks with a higher Stage are stopped and
	// awaited before any task with a lower one is cancelled.
	Stage int

	OnStart func(string)
	OnDone  func(string, State)

	cancel context.CancelFunc
	done   chan struct{}
	state  State
	err    error
}

type Supervisor struct {
	log       *zap.Logger
	heartbeat time.Duration

	baseCtx context.Context
	stop    context.CancelFunc
	mu      sync.RWMutex
	tasks   map[string]*Task
	exited  chan *Task
}

// New creates a Supervisor whose idle loop ticks every heartbeat.
func New(log *zap.Logger, heartbeat time.Duration) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		log:       log,
		heartbeat: heartbeat,
		baseCtx:   ctx,
		stop:      cancel,
		tasks:     make(map[string]*Task),
		exited:    make(chan *Task, 16),
	}
}

// Go starts a task with the bare id/handler pair.
func (s *Supervisor) Go(id string, h Handler) error {
	return s.Start(&Task{ID: id, Handler: h})
}

// Start launches task in its own goroutine with a cancellable context.
func (s *Supervisor) Start(task *Task) error {
	if task == nil || task.Handler == nil {
		return ErrNilHandler
	}
	if task.ID == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	if _, exists := s.tasks[task.ID]; exists {
		s.mu.Unlock()
		return ErrTaskExists
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	task.cancel = cancel
	task.done = make(chan struct{})
	task.state = StateRunning
	s.tasks[task.ID] = task
	s.mu.Unlock()

	go s.run(ctx, task)
	return nil
}

func (s *Supervisor) run(ctx context.Context, task *Task) {
	if task.OnStart != nil {
		task.OnStart(task.ID)
	}
	err := task.Handler(ctx)

	state := StateCompleted
	switch {
	case ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)):
		state, err = StateCancelled, nil
	case err != nil:
		state = StateFailed
	}

	s.mu.Lock()
	task.state, task.err = state, err
	s.mu.Unlock()
	close(task.done)

	if task.OnDone != nil {
		task.OnDone(task.ID, state)
	}
	if state != StateCancelled {
		select {
		case s.exited <- task:
		default:
		}
	}
}

// State reports the current state of the named task.
func (s *Supervisor) State(id string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return "", ErrTaskNotFound
	}
	return task.state, nil
}

// Shutdown cancels one task and waits for it to finish.
func (s *Supervisor) Shutdown(id string) error {
	s.mu.RLock()
	task, ok := s.tasks[id]
	s.mu.RUnlock()
	if !ok {
		return ErrTaskNotFound
	}
	task.cancel()
	<-task.done

	s.mu.RLock()
	defer s.mu.RUnlock()
	if task.state == StateFailed {
		return fmt.Errorf("task %s: %w", id, task.err)
	}
	return nil
}

// ShutdownAll stops tasks stage by stage, highest first. Tasks within a
// stage are cancelled concurrently. Every stage is stopped even if an
// earlier one reports a failure; the first failure is returned.
func (s *Supervisor) ShutdownAll() error {
	s.mu.RLock()
	stages := make(map[int][]string)
	for id, task := range s.tasks {
		stages[task.Stage] = append(stages[task.Stage], id)
	}
	s.mu.RUnlock()

	order := make([]int, 0, len(stages))
	for stage := range stages {
		order = append(order, stage)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(order)))

	var first error
	for _, stage := range order {
		if err := s.shutdownStage(stages[stage]); err != nil && first == nil {
			first = err
		}
	}
	s.stop()
	return first
}

func (s *Supervisor) shutdownStage(ids []string) error {
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			err := s.Shutdown(id)
			if err != nil {
				s.log.Error("task failed during shutdown", zap.String("task", id), zap.Error(err))
			} else {
				s.log.Info("task stopped", zap.String("task", id))
			}
			return err
		})
	}
	return g.Wait()
}

// Run idles until ctx is cancelled or a task exits on its own, then shuts
// every task down. Cancellation is not an error; a task failure is.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("shutdown requested, stopping tasks")
			return s.ShutdownAll()
		case task := <-s.exited:
			s.mu.RLock()
			state, err := task.state, task.err
			s.mu.RUnlock()
			s.log.Error("task exited unexpectedly",
				zap.String("task", task.ID),
				zap.String("state", string(state)),
				zap.Error(err))
			if err := s.ShutdownAll(); err != nil {
				return err
			}
			return fmt.Errorf("task %s: %w", task.ID, ErrTaskCompleted)
		case <-ticker.C:
			s.log.Debug("supervisor heartbeat")
		}
	}
}
