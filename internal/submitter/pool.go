package submitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"graphload/pkg/graph"
	"graphload/pkg/logger"
	"graphload/pkg/progress"
	"graphload/pkg/ratelimit"
)

// Job is one batch of parsed elements from a single input source.
type Job struct {
	Kind     graph.Kind
	Source   progress.SourceKey
	Elements []graph.Element
	// Records holds the raw input lines behind Elements, kept for failure
	// capture when the whole batch is rejected.
	Records []string
	// Bytes is the number of consumed input bytes this batch covers,
	// including skipped and failed lines since the previous batch.
	Bytes int64

	reply chan Result
}

// Result is the outcome of one submitted batch.
type Result struct {
	Job      Job
	Inserted int
	Success  bool
	Error    error
	Duration time.Duration
}

// BatchInserter submits element batches to the graph server.
type BatchInserter interface {
	InsertBatch(kind graph.Kind, elements []graph.Element) (int, error)
}

// Pool manages concurrent batch submission workers. Batches from different
// sources interleave freely; each source keeps its own order by waiting for
// a batch result before submitting the next one.
type Pool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      BatchInserter
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewPool creates a new submission worker pool
func NewPool(
	numWorkers int,
	client BatchInserter,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2), // Buffer size = 2x workers
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (p *Pool) Start() {
	p.logger.InfoWithFields("Starting submitter pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop gracefully shuts down the pool. Jobs already queued are still
// processed and delivered before the result channel closes.
func (p *Pool) Stop() {
	p.logger.Info("Stopping submitter pool...")

	close(p.jobQueue)

	// Wait for all workers to finish processing remaining jobs
	p.wg.Wait()

	close(p.resultQueue)

	p.cancel()

	p.logger.Info("Submitter pool stopped")
}

// Submit adds a batch job to the queue without waiting for its result.
// Submit must not be called once Stop has begun.
func (p *Pool) Submit(job Job) error {
	select {
	case p.jobQueue <- job:
		p.logger.DebugWithFields("Batch submitted to queue", map[string]interface{}{
			"kind":   job.Kind.String(),
			"source": string(job.Source),
			"size":   len(job.Elements),
		})
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("submitter pool is shutting down")
	}
}

// Process submits a batch job and blocks until its result arrives. The
// result is also delivered on the shared Results channel.
func (p *Pool) Process(job Job) (Result, error) {
	job.reply = make(chan Result, 1)
	if err := p.Submit(job); err != nil {
		return Result{}, err
	}
	return <-job.reply, nil
}

// Results returns the result channel for consuming batch outcomes
func (p *Pool) Results() <-chan Result {
	return p.resultQueue
}

// worker is the main worker routine
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.DebugWithFields("Worker started", map[string]interface{}{
		"worker_id": id,
	})

	for job := range p.jobQueue {
		// Check if context is cancelled
		select {
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker stopping - context cancelled", map[string]interface{}{
				"worker_id": id,
			})
			return
		default:
		}

		result := p.processJob(job, id)

		// The reply channel is buffered so a waiting Process call never
		// blocks the worker.
		if job.reply != nil {
			job.reply <- result
		}

		select {
		case p.resultQueue <- result:
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}

	p.logger.DebugWithFields("Worker stopping - job queue closed", map[string]interface{}{
		"worker_id": id,
	})
}

// processJob handles a single batch submission
func (p *Pool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{
		Job:     job,
		Success: false,
	}

	p.logger.DebugWithFields("Worker processing batch", map[string]interface{}{
		"worker_id": workerID,
		"kind":      job.Kind.String(),
		"source":    string(job.Source),
		"size":      len(job.Elements),
	})

	// Wait for rate limit
	if !p.rateLimiter.Allow() {
		p.logger.DebugWithFields("Worker waiting for rate limit", map[string]interface{}{
			"worker_id": workerID,
			"source":    string(job.Source),
		})
		p.rateLimiter.Wait()
	}

	inserted, err := p.client.InsertBatch(job.Kind, job.Elements)
	if err != nil {
		result.Error = fmt.Errorf("batch insert failed: %w", err)
		result.Duration = time.Since(start)

		p.logger.ErrorWithFields("Worker failed to insert batch", map[string]interface{}{
			"worker_id": workerID,
			"kind":      job.Kind.String(),
			"source":    string(job.Source),
			"size":      len(job.Elements),
			"error":     err.Error(),
			"duration":  result.Duration,
		})

		return result
	}

	result.Inserted = inserted
	result.Success = true
	result.Duration = time.Since(start)

	p.logger.DebugWithFields("Worker completed batch", map[string]interface{}{
		"worker_id": workerID,
		"kind":      job.Kind.String(),
		"source":    string(job.Source),
		"inserted":  inserted,
		"duration":  result.Duration,
	})

	return result
}

// QueueSize returns the current number of jobs in the queue
func (p *Pool) QueueSize() int {
	return len(p.jobQueue)
}

// Workers returns the number of pool workers
func (p *Pool) Workers() int {
	return p.numWorkers
}
