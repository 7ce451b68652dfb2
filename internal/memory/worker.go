package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gigabhai/gigabhai/internal/observability"
)

// Job identifies one conversation due for recompaction.
type Job struct {
	OwnerKey       string
	ConversationID string
}

// RecompactFunc performs the actual compaction for one conversation.
type RecompactFunc func(ctx context.Context, job Job) error

// Worker runs compaction jobs off the response path. The queue is bounded and
// enqueues drop when it is full: compressed memory is a cache, and the next
// turn on a dropped conversation re-enqueues it anyway.
type Worker struct {
	run     RecompactFunc
	metrics *observability.Metrics
	timeout time.Duration

	queue chan Job
	wg    sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// WorkerOptions tune the worker pool. Zero values take defaults.
type WorkerOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

func NewWorker(run RecompactFunc, metrics *observability.Metrics, opts WorkerOptions) *Worker {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	w := &Worker{
		run:     run,
		metrics: metrics,
		timeout: opts.Timeout,
		queue:   make(chan Job, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		w.wg.Add(1)
		go w.loop()
	}
	return w
}

// Enqueue schedules a recompaction. It never blocks; when the queue is full
// or the worker is stopped the job is dropped.
func (w *Worker) Enqueue(job Job) bool {
	if job.OwnerKey == "" || job.ConversationID == "" {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	select {
	case w.queue <- job:
		return true
	default:
		if w.metrics != nil {
			w.metrics.ObserveCompaction("dropped")
		}
		log.Warn().Str("conversation_id", job.ConversationID).Msg("compaction queue full, dropping job")
		return false
	}
}

// Stop drains the queue and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for job := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.run(ctx, job)
		cancel()

		if err != nil {
			if w.metrics != nil {
				w.metrics.ObserveCompaction("error")
			}
			log.Warn().Err(err).Str("conversation_id", job.ConversationID).Msg("background compaction failed")
			continue
		}
		if w.metrics != nil {
			w.metrics.ObserveCompaction("ok")
		}
	}
}
