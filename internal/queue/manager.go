package queue

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fairyhunter13/sneaker-drop-storefront/internal/config"
	"github.com/fairyhunter13/sneaker-drop-storefront/internal/obs"
)

// Manager coordinates workers running queued jobs and scales them with the backlog.
type Manager struct {
	cfg    config.Config
	q      *Queue
	seq    Sequencer
	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	workerCancels []context.CancelFunc
}

// NewManager constructs a Manager with the given config and queue.
func NewManager(cfg config.Config, q *Queue) *Manager {
	if cfg.WorkerMin < 1 {
		cfg.WorkerMin = 1
	}
	if cfg.WorkerMax < cfg.WorkerMin {
		cfg.WorkerMax = cfg.WorkerMin
	}
	if cfg.InitialWorkerCount < cfg.WorkerMin {
		cfg.InitialWorkerCount = cfg.WorkerMin
	}
	if cfg.ScaleInterval <= 0 {
		cfg.ScaleInterval = 500 * time.Millisecond
	}
	return &Manager{cfg: cfg, q: q}
}

// Start begins processing and autoscaling in the background.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.q.Start(m.ctx, m.cfg.QueueHighWatermark)
	m.addWorkers(m.cfg.InitialWorkerCount)
	go m.scaler()
}

// Stop cancels background routines and stops workers. Jobs still running see their
// context cancelled.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Lock()
	for _, c := range m.workerCancels {
		c()
	}
	m.workerCancels = nil
	m.mu.Unlock()
}

func (m *Manager) scaler() {
	t := time.NewTicker(m.cfg.ScaleInterval)
	defer t.Stop()
	idleTicks := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-t.C:
			backlog := m.q.BacklogSize()
			wc := m.WorkerCount()
			if backlog > wc*m.cfg.ScaleUpBacklogPerWorker && wc < m.cfg.WorkerMax {
				m.addWorkers(1)
				idleTicks = 0
				continue
			}
			if backlog == 0 {
				idleTicks++
				if idleTicks >= m.cfg.ScaleDownIdleTicks && wc > m.cfg.WorkerMin {
					m.removeWorkers(1)
					idleTicks = 0
				}
			} else {
				idleTicks = 0
			}
		}
	}
}

func (m *Manager) addWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		wctx, cancel := context.WithCancel(m.ctx)
		m.workerCancels = append(m.workerCancels, cancel)
		go m.worker(wctx)
	}
	obs.Logger.WithField("worker_count", len(m.workerCancels)).Info("workers_scaled")
}

func (m *Manager) removeWorkers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > len(m.workerCancels) {
		n = len(m.workerCancels)
	}
	for i := 0; i < n; i++ {
		c := m.workerCancels[len(m.workerCancels)-1]
		m.workerCancels = m.workerCancels[:len(m.workerCancels)-1]
		c()
	}
	obs.Logger.WithField("worker_count", len(m.workerCancels)).Info("workers_scaled")
}

// worker runs jobs until its own context is cancelled. Jobs run under the manager
// context so that scaling down never interrupts one mid-flight.
func (m *Manager) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-m.q.Ready():
			m.run(job)
			m.q.MarkProcessed()
		}
	}
}

func (m *Manager) run(job Job) {
	defer func() {
		if r := recover(); r != nil {
			obs.Logger.WithFields(logrus.Fields{
				"job_key":  job.Key,
				"sequence": job.Sequence,
				"panic":    r,
			}).Error("job_panicked")
		}
	}()
	if job.Run != nil {
		job.Run(m.ctx)
	}
}

// Submit assigns the next sequence number to a job for key and enqueues it. ok is false
// once intake is closed.
func (m *Manager) Submit(key string, run func(ctx context.Context)) (seq uint64, ok bool) {
	seq = m.seq.Next()
	return seq, m.q.Enqueue(Job{Sequence: seq, Key: key, Run: run})
}

// SubmitLatest is Submit for work where only the newest job per key matters: a job with
// the same key still waiting in the backlog is replaced instead of run.
func (m *Manager) SubmitLatest(key string, run func(ctx context.Context)) (seq uint64, ok bool) {
	seq = m.seq.Next()
	return seq, m.q.Enqueue(Job{Sequence: seq, Key: key, Run: run, Supersede: true})
}

// BacklogSize returns pending items in the queue.
func (m *Manager) BacklogSize() int { return m.q.BacklogSize() }

// QueueDepth returns backlog plus buffered output items.
func (m *Manager) QueueDepth() int { return m.q.QueueDepth() }

// WorkerCount returns the current number of workers.
func (m *Manager) WorkerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workerCancels)
}

func (m *Manager) IsShuttingDown() bool { return m.q.IsShuttingDown() }

// CloseIntake disallows future submissions.
func (m *Manager) CloseIntake() { m.q.CloseIntake() }

// QueueMetrics exposes the underlying queue metrics.
func (m *Manager) QueueMetrics() (enq, proc uint64, backlog, depth int) {
	return m.q.Metrics()
}

// Coalesced counts superseded jobs.
func (m *Manager) Coalesced() uint64 { return m.q.Coalesced() }

// DrainUntil blocks until every accepted job has run or been superseded, or ctx is done.
func (m *Manager) DrainUntil(ctx context.Context) bool {
	for {
		if m.q.Settled() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(50 * time.Millisecond):
		}
	}
}
