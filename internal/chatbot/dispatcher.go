package chatbot

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a unit of deferred work executed off the request path
type Task func(ctx context.Context)

// Dispatcher is a small fire-and-forget task queue. Post-turn
// conversation upkeep goes through it so that a user receives their
// reply without waiting on title or summary generation.
type Dispatcher struct {
	tasks   chan Task
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	once    sync.Once
	mu      sync.Mutex
	stopped bool
	log     *logrus.Logger
}

// NewDispatcher creates a dispatcher with the given queue capacity and
// worker count.
func NewDispatcher(size, workers int, log *logrus.Logger) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		tasks:  make(chan Task, size),
		cancel: cancel,
		log:    log,
	}

	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}

	return d
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for task := range d.tasks {
		select {
		case <-ctx.Done():
			return
		default:
		}
		task(ctx)
	}
}

// Enqueue submits a task without blocking. A full or stopped queue
// drops the task; this path is best-effort by contract.
func (d *Dispatcher) Enqueue(task Task) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.log.Warn("background task queue stopped, dropping task")
		return false
	}

	select {
	case d.tasks <- task:
		return true
	default:
		d.log.Warn("background task queue full, dropping task")
		return false
	}
}

// Stop drains the queue and waits for workers to finish, or gives up
// when ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		close(d.tasks)
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
