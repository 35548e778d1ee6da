package correlation

import (
	"context"
	"sync"
)

// Job is a unit of work processed by a WorkerPool under its own correlation.
type Job struct {
	Index int
	// CorrelationID of the job; a new id is generated when empty.
	CorrelationID string
	Work          func(ctx context.Context) error

	ctx context.Context
	// reply receives the result instead of the shared results channel.
	reply chan<- JobResult
}

// JobResult reports the outcome of a Job.
type JobResult struct {
	Index               int
	ParentCorrelationID string
	CorrelationID       string
	Error               error
}

// WorkerPool processes jobs concurrently. Every job runs nested under the
// correlation that was ambient when it was submitted.
type WorkerPool struct {
	workerCount int
	manager     *Manager
	jobChan     chan Job
	resultChan  chan JobResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	stopOnce    sync.Once
}

// NewWorkerPool creates a new worker pool for correlated jobs
func NewWorkerPool(ctx context.Context, workerCount int, manager *Manager) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		manager:     manager,
		jobChan:     make(chan Job, workerCount*2),
		resultChan:  make(chan JobResult, workerCount*2),
		ctx:         poolCtx,
		cancel:      cancel,
	}
}

// Start starts the worker pool with the specified number of workers
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop cancels the pool and waits for the workers to exit. Queued jobs that
// no worker picked up are dropped. The job channel is never closed, so a
// concurrent Submit returns an error instead of panicking.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		close(p.resultChan)
	})
}

// Submit queues job. ctx is the submitter's context; the job inherits its
// ambient correlation and its cancellation. The result is delivered on
// Results.
func (p *WorkerPool) Submit(ctx context.Context, job Job) error {
	job.reply = nil
	return p.enqueue(ctx, job)
}

func (p *WorkerPool) enqueue(ctx context.Context, job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	job.ctx = ctx
	select {
	case p.jobChan <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Results returns the channel for receiving the results of Submit. It is
// closed by Stop.
func (p *WorkerPool) Results() <-chan JobResult {
	return p.resultChan
}

// RunAll submits jobs, waits for all of them and returns their results in
// submission order. The pool must have been started. Each call collects its
// results on its own channel, so concurrent callers never see each other's
// jobs.
func (p *WorkerPool) RunAll(ctx context.Context, jobs []Job) ([]JobResult, error) {
	// Buffered for every job so workers never block on a caller that left early.
	replies := make(chan JobResult, len(jobs))
	submitErr := make(chan error, 1)
	go func(out chan<- error) {
		for i, job := range jobs {
			job.Index = i
			job.reply = replies
			if err := p.enqueue(ctx, job); err != nil {
				out <- err
				return
			}
		}
		out <- nil
	}(submitErr)

	results := make([]JobResult, len(jobs))
	for pending := len(jobs); pending > 0; {
		select {
		case r := <-replies:
			results[r.Index] = r
			pending--
		case err := <-submitErr:
			if err != nil {
				return nil, err
			}
			submitErr = nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.ctx.Done():
			return nil, p.ctx.Err()
		}
	}
	return results, nil
}

// worker processes jobs from the job channel
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobChan:
			result := p.process(job)
			if job.reply != nil {
				job.reply <- result
				continue
			}

			select {
			case p.resultChan <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

func (p *WorkerPool) process(job Job) JobResult {
	ctx := job.ctx
	if ctx == nil {
		ctx = p.ctx
	}

	result := JobResult{Index: job.Index}
	if parent := p.manager.accessor.Current(ctx); parent != nil {
		result.ParentCorrelationID = parent.CorrelationID
	}

	id := job.CorrelationID
	if id == "" {
		id = p.manager.idFactory.Create(ctx)
	}
	result.CorrelationID = id

	result.Error = p.manager.Correlate(ctx, id, func(ctx context.Context) error {
		if job.Work == nil {
			return nil
		}
		return job.Work(ctx)
	}, nil)
	if result.Error != nil {
		p.manager.log.DebugContext(ctx, "correlated job failed",
			"job", job.Index,
			"correlation_id", id,
			"error", result.Error,
		)
	}
	return result
}
