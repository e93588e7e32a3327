package rpools

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrPoolClosed is returned by Execute after Close has been called.
	ErrPoolClosed = fmt.Errorf("rpools: pool is closed")
	// ErrNoWorkers is returned when a pool is constructed with less than one worker.
	ErrNoWorkers = fmt.Errorf("rpools: pool needs at least one worker")
)

// Job is a unit of work executed exactly once by exactly one worker.
// A Job takes no arguments and returns nothing; callers that need results
// must wire their own channel or shared state inside the job body.
type Job func()

// Options configurates the WorkerPool.
type Options struct {
	// Workers is the number of persistent workers, fixed for the pool's life.
	// It must be at least 1.
	Workers int
	// Logger receives worker lifecycle and recovered panic entries.
	// Defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
	// Metrics, if non-nil, receives pool instrumentation. See NewMetrics.
	Metrics *Metrics
}

// WorkerPool owns a fixed set of persistent worker goroutines consuming
// jobs from an unbounded dispatch queue. Submission never blocks; Close
// drains every queued job and joins all workers before returning.
type WorkerPool struct {
	size    int
	queue   *jobQueue
	logger  logrus.FieldLogger
	metrics *Metrics

	nworkers  atomic.Int32
	executed  atomic.Uint64
	recovered atomic.Uint64
	closed    atomic.Bool
	workers   WaitGroup
}

// New creates a pool with nworkers persistent workers.
// It returns ErrNoWorkers if nworkers is less than 1.
func New(nworkers int) (*WorkerPool, error) {
	return NewWith(Options{Workers: nworkers})
}

// NewWith creates a pool configured by opts.
// It returns ErrNoWorkers if opts.Workers is less than 1.
func NewWith(opts Options) (*WorkerPool, error) {
	if opts.Workers < 1 {
		return nil, ErrNoWorkers
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := &WorkerPool{
		size:    opts.Workers,
		queue:   newJobQueue(),
		logger:  logger,
		metrics: opts.Metrics,
	}
	for id := 0; id < opts.Workers; id++ {
		p.nworkers.Add(1)
		p.workers.Add(1)
		go p.work(id)
	}
	return p, nil
}

// Stats contains a snapshot of the pool counters.
type Stats struct {
	// Workers is the number of live workers, equal to the construction size
	// until Close completes.
	Workers int
	// Pending is the number of jobs queued but not yet picked up.
	Pending int
	// Executed is the number of jobs that have finished running,
	// recovered panics included.
	Executed uint64
	// Recovered is the number of job panics recovered by workers.
	Recovered uint64
}

// Stats returns the current stats.
func (p *WorkerPool) Stats() Stats {
	return Stats{
		Workers:   int(p.nworkers.Load()),
		Pending:   p.queue.len(),
		Executed:  p.executed.Load(),
		Recovered: p.recovered.Load(),
	}
}

// Size returns the number of workers the pool was constructed with.
func (p *WorkerPool) Size() int {
	return p.size
}

// Execute enqueues job for execution by exactly one worker and returns
// immediately. It returns ErrPoolClosed if Close has been called.
func (p *WorkerPool) Execute(job Job) error {
	if !p.queue.push(job) {
		return ErrPoolClosed
	}
	p.metrics.submitted()
	return nil
}

// Close shuts the pool down: no further jobs are accepted, workers drain
// every job already queued, and Close blocks until all workers have exited.
// Subsequent calls return nil without effect.
func (p *WorkerPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.queue.close()
	p.workers.Wait()
	return nil
}

func (p *WorkerPool) work(id int) {
	defer func() {
		p.nworkers.Add(-1)
		p.workers.Done()
	}()

	log := p.logger.WithField("worker", id)
	log.Debug("worker started")
	for {
		job, ok := p.queue.pop()
		if !ok {
			log.Debug("worker stopped")
			return
		}
		p.run(log, job)
	}
}

// run executes a single job, isolating any panic to this iteration so the
// worker keeps serving and the pool never shrinks.
func (p *WorkerPool) run(log logrus.FieldLogger, job Job) {
	p.metrics.busy(1)
	start := time.Now()
	defer func() {
		p.executed.Add(1)
		if v := recover(); v != nil {
			p.recovered.Add(1)
			p.metrics.recoveredPanic()
			log.WithField("panic", v).Error("recovered panic in job")
		} else {
			p.metrics.completed(time.Since(start))
		}
		p.metrics.busy(-1)
	}()

	job()
}

// jobQueue is an unbounded FIFO shared by all workers. Producers never
// block; workers block until a job arrives or the queue is closed and
// drained. Each job is handed to exactly one worker.
type jobQueue struct {
	mu     sync.Mutex
	cond   sync.Cond
	jobs   []Job
	closed bool
}

func newJobQueue() *jobQueue {
	q := &jobQueue{}
	q.cond.L = &q.mu
	return q
}

// push appends job and reports whether the queue is still open.
func (q *jobQueue) push(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, job)
	q.cond.Signal()
	return true
}

// pop blocks until a job is available or the queue is closed and empty.
func (q *jobQueue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.jobs) == 0 {
		return nil, false
	}
	job := q.jobs[0]
	q.jobs[0] = nil
	q.jobs = q.jobs[1:]
	return job, true
}

func (q *jobQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

func (q *jobQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
