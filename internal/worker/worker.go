package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DukeRupert/hookscope/internal/domain"
	"github.com/DukeRupert/hookscope/internal/metrics"
	"github.com/DukeRupert/hookscope/internal/repository"
	"github.com/robfig/cron/v3"
	"github.com/sqlc-dev/pqtype"
)

// RunStore records job definitions and their executions.
// *repository.Queries satisfies it.
type RunStore interface {
	UpsertCronJob(ctx context.Context, arg repository.UpsertCronJobParams) (int64, error)
	StartCronJobRun(ctx context.Context, arg repository.StartCronJobRunParams) (int64, error)
	FinishCronJobRun(ctx context.Context, arg repository.FinishCronJobRunParams) error
}

// scheduledJob is a registered handler and its bookkeeping.
type scheduledJob struct {
	handler  JobHandler
	schedule string
	jobID    int64
	running  atomic.Bool
}

// Worker runs registered jobs on cron schedules and records every run.
type Worker struct {
	store  RunStore
	config Config
	logger *slog.Logger
	cron   *cron.Cron
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*scheduledJob

	// Synchronization. Scheduled runs are tracked by cron itself; wg covers
	// RunNow.
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new Worker with the given configuration.
// Jobs are added with Register; the worker must be started with Start() and
// stopped with Stop().
func New(store RunStore, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		store:  store,
		config: config,
		logger: logger,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		now:    time.Now,
		jobs:   make(map[string]*scheduledJob),
	}, nil
}

// Register validates the schedule, records the job definition, and adds the
// handler to the scheduler. Call this before Start().
func (w *Worker) Register(ctx context.Context, handler JobHandler, schedule string) error {
	jobType := handler.Type()

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule for %s: %w", jobType, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.jobs[jobType]; exists {
		return fmt.Errorf("job %s already registered", jobType)
	}

	jobID, err := w.store.UpsertCronJob(ctx, repository.UpsertCronJobParams{
		JobName:  jobType,
		Schedule: schedule,
	})
	if err != nil {
		return fmt.Errorf("record job %s: %w", jobType, err)
	}

	job := &scheduledJob{
		handler:  handler,
		schedule: schedule,
		jobID:    jobID,
	}
	if _, err := w.cron.AddFunc(schedule, func() { w.tick(job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", jobType, err)
	}
	w.jobs[jobType] = job

	w.logger.Info("Registered job", "job_type", jobType, "schedule", schedule, "job_id", jobID)
	return nil
}

// Start begins firing registered jobs on their schedules.
// Runs use a context derived from ctx that is canceled if Stop times out.
func (w *Worker) Start(ctx context.Context) {
	w.baseCtx, w.cancel = context.WithCancel(ctx)
	w.cron.Start()
	w.logger.Info("Worker started", "jobs", len(w.jobs))
}

// Stop halts the scheduler and waits for in-flight runs to finish.
// It respects the configured ShutdownTimeout.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	scheduled := w.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-scheduled.Done()
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, canceling running jobs")
	}

	if w.cancel != nil {
		w.cancel()
	}
}

// RunNow executes a registered job immediately and waits for it to finish.
// It returns the handler's error, if any. Concurrent runs of the same job are
// rejected.
func (w *Worker) RunNow(ctx context.Context, jobType string) error {
	w.mu.Lock()
	job, ok := w.jobs[jobType]
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("no job registered with type %s", jobType)
	}

	if !job.running.CompareAndSwap(false, true) {
		return fmt.Errorf("job %s is already running", jobType)
	}
	defer job.running.Store(false)

	w.wg.Add(1)
	defer w.wg.Done()

	return w.execute(ctx, job)
}

// tick is invoked by the scheduler. Overlapping runs of the same job are skipped.
func (w *Worker) tick(job *scheduledJob) {
	jobType := job.handler.Type()

	if !job.running.CompareAndSwap(false, true) {
		w.logger.Warn("Skipping run, previous run still active", "job_type", jobType)
		metrics.JobSkipped(jobType)
		return
	}
	defer job.running.Store(false)

	ctx := w.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	if err := w.execute(ctx, job); err != nil {
		w.logger.Error("Scheduled job failed", "job_type", jobType, "error", err)
	}
}

// execute records a run row, runs the handler under JobTimeout, and records
// the outcome. The handler's error is returned.
func (w *Worker) execute(ctx context.Context, job *scheduledJob) error {
	jobType := job.handler.Type()
	logger := w.logger.With("job_type", jobType, "job_id", job.jobID)

	start := w.now().UTC()
	runID, err := w.store.StartCronJobRun(ctx, repository.StartCronJobRunParams{
		Jobid:     job.jobID,
		StartTime: start,
	})
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	logger = logger.With("run_id", runID)
	logger.Info("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	result, jobErr := job.handler.Handle(jobCtx)
	cancel()

	end := w.now().UTC()
	duration := end.Sub(start)

	params := repository.FinishCronJobRunParams{
		Runid:        runID,
		Status:       domain.CronRunSucceeded,
		EndTime:      sql.NullTime{Time: end, Valid: true},
		RowsDeleted:  result.RowsDeleted,
		RowsArchived: result.RowsArchived,
		DurationMs:   duration.Milliseconds(),
		Details:      encodeDetails(result.Details),
	}
	if jobErr != nil {
		params.Status = domain.CronRunFailed
		params.ReturnMessage = jobErr.Error()
		logger.Error("Job failed", "error", jobErr, "duration_ms", params.DurationMs)
		metrics.JobFailed(jobType, duration)
	} else {
		params.ReturnMessage = fmt.Sprintf("deleted %d rows, archived %d", result.RowsDeleted, result.RowsArchived)
		logger.Info("Job completed",
			"rows_deleted", result.RowsDeleted,
			"rows_archived", result.RowsArchived,
			"duration_ms", params.DurationMs,
		)
		metrics.JobCompleted(jobType, duration)
	}

	// The run row must be closed even if the caller's context was canceled.
	if err := w.store.FinishCronJobRun(context.WithoutCancel(ctx), params); err != nil {
		logger.Error("Failed to record run outcome", "error", err)
	}

	return jobErr
}

// encodeDetails converts run details to a JSONB value. Empty or unencodable
// details are stored as NULL.
func encodeDetails(details map[string]any) pqtype.NullRawMessage {
	if len(details) == 0 {
		return pqtype.NullRawMessage{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return pqtype.NullRawMessage{}
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}
}
