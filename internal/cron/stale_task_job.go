package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/metrics"
)

const (
	defaultStaleTaskAfter = 30 * time.Minute
	staleFailureMessage   = "task stalled in processing and was reaped"
)

type staleTaskRepo interface {
	FindStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.GenerationTask, error)
	MarkTaskFailed(ctx context.Context, id uuid.UUID, message string, now time.Time) error
}

// StaleTaskJobParams configure the stale generation task reaper.
type StaleTaskJobParams struct {
	Logger     *logger.Logger
	Repo       staleTaskRepo
	Metrics    *metrics.PipelineMetrics
	StaleAfter time.Duration
}

// NewStaleTaskJob builds the cron job that fails generation tasks stuck in
// processing. A worker crash between claim and completion leaves the row in
// processing forever; once the lease TTL has long passed, failing the task
// makes it claimable again.
func NewStaleTaskJob(params StaleTaskJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("task repository required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleTaskAfter
	}
	return &staleTaskJob{
		logg:       params.Logger,
		repo:       params.Repo,
		metrics:    params.Metrics,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type staleTaskJob struct {
	logg       *logger.Logger
	repo       staleTaskRepo
	metrics    *metrics.PipelineMetrics
	staleAfter time.Duration
	now        func() time.Time
}

func (j *staleTaskJob) Name() string { return "stale-task-reaper" }

func (j *staleTaskJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	tasks, err := j.repo.FindStaleProcessing(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale processing tasks: %w", err)
	}

	var errs []error
	reaped := 0
	for _, task := range tasks {
		if err := j.repo.MarkTaskFailed(ctx, task.ID, staleFailureMessage, j.now().UTC()); err != nil {
			errs = append(errs, fmt.Errorf("reap task %s: %w", task.ID, err))
			continue
		}
		j.metrics.IncOutcome(task.TaskType.String(), "reaped")
		reaped++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"scanned": len(tasks), "reaped": reaped})
	j.logg.Info(logCtx, "stale task reap loop complete")
	return multierr.Combine(errs...)
}
