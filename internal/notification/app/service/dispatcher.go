package service

import (
	"context"
	"sync"
	"time"

	"github.com/motortribe/motortribe/internal/notification/domain/model"
	"github.com/motortribe/motortribe/internal/notification/domain/repository"
	"github.com/motortribe/motortribe/internal/platform/logger"
	"github.com/motortribe/motortribe/internal/platform/metrics"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultSendTimeout = 5 * time.Second
)

// Dispatcher delivers push notifications asynchronously through a bounded
// worker pool. Sends are single-attempt with an explicit timeout. Delivery
// failures are logged, never surfaced to the caller: by the time a job is
// enqueued the triggering operation has already committed.
type Dispatcher struct {
	sender      repository.PushSender
	jobs        chan model.PushNotification
	workers     sync.WaitGroup
	sendTimeout time.Duration
	metrics     *metrics.Metrics
	logger      logger.Logger

	mu      sync.Mutex
	started bool
	closed  bool
}

// DispatcherOptions tune the worker pool
type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// NewDispatcher creates a dispatcher with its worker pool already running
func NewDispatcher(sender repository.PushSender, opts DispatcherOptions, m *metrics.Metrics, log logger.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}

	d := &Dispatcher{
		sender:      sender,
		jobs:        make(chan model.PushNotification, opts.QueueSize),
		sendTimeout: opts.SendTimeout,
		metrics:     m,
		logger:      log,
	}

	d.start(opts.Workers)
	return d
}

func (d *Dispatcher) start(workers int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true

	for i := 0; i < workers; i++ {
		d.workers.Add(1)
		go d.worker()
	}
}

// Enqueue submits a notification for asynchronous delivery. It never
// blocks: when the queue is full the job is dropped and counted.
func (d *Dispatcher) Enqueue(notification model.PushNotification) bool {
	if notification.DeviceToken == "" {
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}

	select {
	case d.jobs <- notification:
		d.mu.Unlock()
		return true
	default:
		d.mu.Unlock()
		if d.metrics != nil {
			d.metrics.PushDropped.Inc()
		}
		d.logger.Warn("push queue full, dropping notification", "title", notification.Title)
		return false
	}
}

// Close stops accepting jobs and waits for in-flight sends to finish
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) worker() {
	defer d.workers.Done()

	for notification := range d.jobs {
		d.send(notification)
	}
}

func (d *Dispatcher) send(notification model.PushNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if d.metrics != nil {
		d.metrics.PushDispatched.Inc()
	}

	if err := d.sender.Send(ctx, notification); err != nil {
		if d.metrics != nil {
			d.metrics.PushFailures.Inc()
		}
		d.logger.Error("push delivery failed",
			"title", notification.Title,
			"error", err,
		)
		return
	}

	d.logger.Debug("push delivered", "title", notification.Title)
}
