// Package scanjob implements C13: a job-oriented façade that drives the
// enumerator (C2) through a worker pool into the aggregator (C6) and the
// action executor (C11), reporting throttled progress and honoring
// cooperative cancellation. The worker-pool-over-a-channel shape is
// grounded on mutagen's synchronization loop pattern of fanning a stream
// of paths out to a bounded number of goroutines and collecting results
// under a single lock.
package scanjob

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/action"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/aggregator"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/enumerate"
	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/scan"
)

// progressEmitInterval bounds how often progress events are emitted, per
// spec.md §4.13 ("at most ~10 Hz").
const progressEmitInterval = 100 * time.Millisecond

// Status classifies a job's lifecycle state.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusComplete  Status = "Complete"
	StatusCancelled Status = "Cancelled"
)

// Progress is a snapshot of one job's counters.
type Progress struct {
	JobID     string
	Status    Status
	Total     int
	Scanned   int
	Threats   int
	Errors    int
	StartedAt time.Time
}

// Job tracks one on-demand scan started through StartScan.
type Job struct {
	id        string
	startedAt time.Time

	mu       sync.Mutex
	status   Status
	total    int
	scanned  int
	threats  int
	errors   int
	cancel   chan struct{}
	cancelMu sync.Once
}

func newJob(total int) *Job {
	return &Job{
		id:        uuid.Must(uuid.NewV7()).String(),
		startedAt: time.Now(),
		status:    StatusRunning,
		total:     total,
		cancel:    make(chan struct{}),
	}
}

func (j *Job) snapshot() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Progress{
		JobID: j.id, Status: j.status, Total: j.total,
		Scanned: j.scanned, Threats: j.threats, Errors: j.errors,
		StartedAt: j.startedAt,
	}
}

func (j *Job) cancelled() bool {
	select {
	case <-j.cancel:
		return true
	default:
		return false
	}
}

func (j *Job) requestCancel() {
	j.cancelMu.Do(func() { close(j.cancel) })
}

// Controller owns the set of in-flight and completed jobs.
type Controller struct {
	aggregator *aggregator.Aggregator
	executor   *action.Executor
	workers    int
	maxFileMB  int64

	onProgress func(Progress)

	mu           sync.Mutex
	jobs         map[string]*Job
	lastEmitMu   sync.Mutex
	lastEmitTime map[string]time.Time
}

// Option configures a Controller at construction time.
type Option func(*Controller)

// WithWorkers overrides the worker pool size (default: available
// parallelism).
func WithWorkers(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxFileSizeMB skips files larger than the given size, per the
// max_file_size_mb configuration option.
func WithMaxFileSizeMB(mb int64) Option {
	return func(c *Controller) { c.maxFileMB = mb }
}

// WithProgressHandler registers a callback invoked (at most ~10 Hz per
// job) with progress snapshots, intended for C12's broadcast layer.
func WithProgressHandler(handler func(Progress)) Option {
	return func(c *Controller) { c.onProgress = handler }
}

// New creates a Controller.
func New(agg *aggregator.Aggregator, executor *action.Executor, opts ...Option) *Controller {
	c := &Controller{
		aggregator:   agg,
		executor:     executor,
		workers:      runtime.GOMAXPROCS(0),
		jobs:         make(map[string]*Job),
		lastEmitTime: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartScan enumerates roots (recursively, if requested) and scans every
// file through a worker pool, returning the job's id immediately; the
// scan proceeds in the background.
func (c *Controller) StartScan(ctx context.Context, roots []string, recursive bool) string {
	mode := enumerate.ModeDirectory
	if recursive {
		mode = enumerate.ModeDirectoryRecursive
	}

	total := enumerate.EstimateCount(roots, mode)
	job := newJob(total)

	c.mu.Lock()
	c.jobs[job.id] = job
	c.mu.Unlock()

	go c.run(ctx, job, roots, mode)

	return job.id
}

func (c *Controller) run(ctx context.Context, job *Job, roots []string, mode enumerate.Mode) {
	done := make(chan struct{})
	entries := enumerate.Roots(done, roots, mode)
	defer close(done)

	paths := make(chan string)
	go func() {
		defer close(paths)
		for entry := range entries {
			if job.cancelled() {
				return
			}
			if c.maxFileMB > 0 && entry.Size > c.maxFileMB*1024*1024 {
				continue
			}
			select {
			case paths <- entry.Path:
			case <-job.cancel:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	lastEmit := make(chan struct{}, 1)
	lastEmit <- struct{}{}

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				if job.cancelled() {
					return
				}
				c.scanOne(ctx, job, path)
				c.maybeEmitProgress(job, lastEmit)
			}
		}()
	}
	wg.Wait()

	job.mu.Lock()
	if job.status == StatusRunning {
		if job.cancelled() {
			job.status = StatusCancelled
		} else {
			job.status = StatusComplete
		}
	}
	job.mu.Unlock()

	if c.onProgress != nil {
		c.onProgress(job.snapshot())
	}

	c.lastEmitMu.Lock()
	delete(c.lastEmitTime, job.id)
	c.lastEmitMu.Unlock()
}

func (c *Controller) scanOne(ctx context.Context, job *Job, path string) {
	scanCtx, result := c.aggregator.ScanWithContext(ctx, path)

	job.mu.Lock()
	job.scanned++
	if erroredScan(result) {
		job.errors++
	} else if result.Verdict != scan.Allow {
		job.threats++
	}
	job.mu.Unlock()

	if c.executor != nil {
		c.executor.Handle(ctx, scanCtx, result)
	}
}

// erroredScan reports whether result carries an Error-verdict engine
// outcome, meaning the file itself couldn't be evaluated (e.g. it
// disappeared before it could be scanned) rather than being classified
// clean or threatening.
func erroredScan(result scan.AggregatedResult) bool {
	for _, engineResult := range result.Engines {
		if engineResult.Verdict == scan.Error {
			return true
		}
	}
	return false
}

// maybeEmitProgress emits a progress snapshot for job at most once per
// progressEmitInterval, serialized by gate so concurrent workers don't
// race on the decision.
func (c *Controller) maybeEmitProgress(job *Job, gate chan struct{}) {
	if c.onProgress == nil {
		return
	}
	select {
	case <-gate:
	default:
		return
	}
	defer func() { gate <- struct{}{} }()

	now := time.Now()
	c.lastEmitMu.Lock()
	last, seen := c.lastEmitTime[job.id]
	if seen && now.Sub(last) < progressEmitInterval {
		c.lastEmitMu.Unlock()
		return
	}
	c.lastEmitTime[job.id] = now
	c.lastEmitMu.Unlock()

	c.onProgress(job.snapshot())
}

// GetProgress returns the current progress for jobID, if it exists.
func (c *Controller) GetProgress(jobID string) (Progress, bool) {
	c.mu.Lock()
	job, ok := c.jobs[jobID]
	c.mu.Unlock()
	if !ok {
		return Progress{}, false
	}
	return job.snapshot(), true
}

// Cancel requests cancellation of jobID. Workers honor it between files;
// it is not an error to cancel a job that has already finished.
func (c *Controller) Cancel(jobID string) {
	c.mu.Lock()
	job, ok := c.jobs[jobID]
	c.mu.Unlock()
	if ok {
		job.requestCancel()
	}
}
