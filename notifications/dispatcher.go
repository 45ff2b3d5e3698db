package notifications

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/anjiri1684/matchchat/errors"
)

type Job struct {
	ReceiverID uuid.UUID
	SenderName string
	Content    string
}

// Dispatcher runs fallback notifications off the request path. The queue is
// bounded and Submit never blocks: when it is full the job is dropped.
type Dispatcher struct {
	notifier Notifier
	queue    chan Job
	workers  int
	timeout  time.Duration
	log      *slog.Logger
}

func NewDispatcher(notifier Notifier, workers, queueSize int, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		notifier: notifier,
		queue:    make(chan Job, queueSize),
		workers:  workers,
		timeout:  timeout,
		log:      log,
	}
}

func (d *Dispatcher) Submit(job Job) error {
	select {
	case d.queue <- job:
		return nil
	default:
		d.log.Warn("Notification queue full, job dropped", "receiver_id", job.ReceiverID)
		return apperrors.ErrQueueFull
	}
}

// Run starts the workers and blocks until ctx is done. Jobs still queued at
// that point are abandoned.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			d.work(ctx, worker)
		}(i)
	}
	wg.Wait()
	return nil
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Stopping notification worker", "worker", worker)
			return
		case job := <-d.queue:
			d.deliver(ctx, job)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Notification worker panic", "receiver_id", job.ReceiverID, "panic", r)
		}
	}()

	jobCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.notifier.NotifyNewMessage(jobCtx, job.ReceiverID, job.SenderName, job.Content); err != nil {
		d.log.Error("Notification dispatch failed", "receiver_id", job.ReceiverID, "error", err)
	}
}

// Len reports how many jobs are waiting.
func (d *Dispatcher) Len() int {
	return len(d.queue)
}
