package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kntaj/ocrflow/internal/drivers"
	"github.com/kntaj/ocrflow/pkg/models"
	"github.com/rs/zerolog/log"
)

// TaskFunc is the unit of work a queue's workers execute: run once, return
// an error if it didn't succeed, and let the shell decide whether to retry.
type TaskFunc func(ctx context.Context) error

// Task tracks one enqueued unit of work through its retry lifecycle.
type Task struct {
	ID         string
	Queue      QueueName
	RetryCount int
	LastError  string
}

// DeadLetter is what a task becomes once retries are exhausted — the Go
// analogue of a Celery dead-letter payload, carrying enough to diagnose and
// potentially replay the task by hand.
type DeadLetter struct {
	TaskID     string
	Queue      QueueName
	RetryCount int
	Error      string
	FailedAt   time.Time
}

// Shell runs named queues, each with its own worker pool, following the
// teacher's process-manager lifecycle-tracking pattern: a mutex-guarded map
// of in-flight tasks plus named channels per queue.
type Shell struct {
	concurrencyPerQueue int
	maxRetries          int
	retryPolicy         models.RetryPolicy

	mu          sync.Mutex
	queues      map[QueueName]chan queuedTask
	deadLetters []DeadLetter
	progress    map[string]chan models.ProgressEvent
}

type queuedTask struct {
	task Task
	fn   TaskFunc
}

// NewShell builds a task shell and starts workers for every named queue.
func NewShell(ctx context.Context, concurrencyPerQueue, maxRetries int) *Shell {
	s := &Shell{
		concurrencyPerQueue: concurrencyPerQueue,
		maxRetries:          maxRetries,
		retryPolicy:         models.RetryPolicy{MaxRetries: maxRetries, BackoffFactor: 2.0, MaxBackoffSeconds: 300},
		queues:              make(map[QueueName]chan queuedTask),
		progress:            make(map[string]chan models.ProgressEvent),
	}
	for _, q := range AllQueues {
		s.queues[q] = make(chan queuedTask, 256)
		for i := 0; i < concurrencyPerQueue; i++ {
			go s.worker(ctx, q)
		}
	}
	return s
}

// Enqueue submits fn to the named queue and returns a channel the caller
// can watch for progress events until the task settles (completes, or is
// recorded in DeadLetters once retries are exhausted).
func (s *Shell) Enqueue(queue QueueName, fn TaskFunc) (taskID string, progress <-chan models.ProgressEvent) {
	id := uuid.NewString()
	ch := make(chan models.ProgressEvent, 8)
	s.mu.Lock()
	s.progress[id] = ch
	s.mu.Unlock()

	s.queues[queue] <- queuedTask{task: Task{ID: id, Queue: queue}, fn: fn}
	return id, ch
}

func (s *Shell) worker(ctx context.Context, queue QueueName) {
	for {
		select {
		case <-ctx.Done():
			return
		case qt, ok := <-s.queues[queue]:
			if !ok {
				return
			}
			s.process(ctx, qt)
		}
	}
}

func (s *Shell) process(ctx context.Context, qt queuedTask) {
	s.publish(qt.task.ID, models.ProgressEvent{Message: "started", Progress: 0})

	err := drivers.WithRetry(ctx, s.retryPolicy, func() error {
		return qt.fn(ctx)
	})

	if err == nil {
		s.publish(qt.task.ID, models.ProgressEvent{Message: "completed", Progress: 1})
		s.closeProgress(qt.task.ID)
		return
	}

	s.mu.Lock()
	s.deadLetters = append(s.deadLetters, DeadLetter{
		TaskID: qt.task.ID, Queue: qt.task.Queue, RetryCount: s.maxRetries,
		Error: err.Error(), FailedAt: time.Now(),
	})
	s.mu.Unlock()

	s.publish(qt.task.ID, models.ProgressEvent{Message: fmt.Sprintf("moved to %s: %v", QueueFailedTasks, err), Progress: 1})
	s.closeProgress(qt.task.ID)
	log.Warn().Str("task_id", qt.task.ID).Str("queue", string(qt.task.Queue)).Err(err).Msg("task exhausted retries, moved to dead-letter queue")
}

func (s *Shell) publish(taskID string, ev models.ProgressEvent) {
	s.mu.Lock()
	ch, ok := s.progress[taskID]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}

func (s *Shell) closeProgress(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.progress[taskID]; ok {
		close(ch)
		delete(s.progress, taskID)
	}
}

// DeadLetters returns a snapshot of every task that exhausted its retries.
func (s *Shell) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.deadLetters))
	copy(out, s.deadLetters)
	return out
}
