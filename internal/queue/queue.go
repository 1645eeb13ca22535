// Package queue runs background jobs (catalog refreshes) on an autoscaling worker pool fed
// by a non-blocking in-memory backlog.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
)

// Job is a unit of background work. Sequence is assigned on submission and increases
// monotonically across all jobs of a Manager.
type Job struct {
	Sequence uint64
	Key      string
	Run      func(ctx context.Context)
	// Supersede replaces a job with the same Key that is still waiting in the backlog.
	Supersede bool
}

// Queue holds submitted jobs in an unbounded backlog and hands them to workers through
// a small buffered channel.
type Queue struct {
	mu      sync.Mutex
	backlog []Job
	wake    chan struct{}
	ready   chan Job
	closed  atomic.Bool

	enqueued  atomic.Uint64
	processed atomic.Uint64
	coalesced atomic.Uint64
}

// New creates a Queue whose ready channel buffers up to readyBuffer jobs.
func New(readyBuffer int) *Queue {
	if readyBuffer <= 0 {
		readyBuffer = 64
	}
	return &Queue{
		wake:  make(chan struct{}, 1),
		ready: make(chan Job, readyBuffer),
	}
}

// Start runs the dispatcher until ctx is done. A positive highWatermark logs a warning
// whenever the backlog grows past it.
func (q *Queue) Start(ctx context.Context, highWatermark int) {
	go q.dispatch(ctx, highWatermark)
}

func (q *Queue) dispatch(ctx context.Context, highWatermark int) {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		pending := q.promote()
		if highWatermark > 0 && pending > highWatermark {
			obs.Logger.WithFields(logrus.Fields{
				"backlog_size":   pending,
				"high_watermark": highWatermark,
			}).Warn("job_backlog_high_watermark")
		}
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		case <-tick.C:
		}
	}
}

// promote moves as many backlog jobs as fit into the ready channel and returns what is
// left behind.
func (q *Queue) promote() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for n < len(q.backlog) && len(q.ready) < cap(q.ready) {
		q.ready <- q.backlog[n]
		n++
	}
	q.backlog = q.backlog[n:]
	return len(q.backlog)
}

// Enqueue adds job to the backlog without blocking. It returns false once intake is
// closed.
func (q *Queue) Enqueue(job Job) bool {
	if q.closed.Load() {
		return false
	}
	q.enqueued.Add(1)
	q.mu.Lock()
	replaced := false
	if job.Supersede {
		for i := range q.backlog {
			if q.backlog[i].Key == job.Key {
				q.backlog[i] = job
				replaced = true
				break
			}
		}
	}
	if !replaced {
		q.backlog = append(q.backlog, job)
	}
	q.mu.Unlock()
	if replaced {
		q.coalesced.Add(1)
	}
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Ready is the channel workers receive jobs from.
func (q *Queue) Ready() <-chan Job { return q.ready }

// BacklogSize returns the number of jobs not yet handed to the ready channel.
func (q *Queue) BacklogSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// QueueDepth returns backlog plus jobs waiting in the ready channel.
func (q *Queue) QueueDepth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog) + len(q.ready)
}

func (q *Queue) MarkProcessed() { q.processed.Add(1) }

// Coalesced counts jobs dropped because a newer job with the same key replaced them.
func (q *Queue) Coalesced() uint64 { return q.coalesced.Load() }

// Settled reports whether every accepted job has either run or been superseded.
func (q *Queue) Settled() bool {
	return q.enqueued.Load() == q.processed.Load()+q.coalesced.Load() && q.QueueDepth() == 0
}

// Metrics returns counters and sizes for observability.
func (q *Queue) Metrics() (enq, proc uint64, backlog, depth int) {
	return q.enqueued.Load(), q.processed.Load(), q.BacklogSize(), q.QueueDepth()
}

// CloseIntake rejects every later Enqueue.
func (q *Queue) CloseIntake() { q.closed.Store(true) }

func (q *Queue) IsShuttingDown() bool { return q.closed.Load() }
