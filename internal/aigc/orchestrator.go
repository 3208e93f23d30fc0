package aigc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/config"
	"github.com/musebox/musebox-backend/pkg/dashscope"
	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/metrics"
)

type nowFunc func() time.Time

func defaultNow() time.Time {
	return time.Now().UTC()
}

type generationProvider interface {
	GenerateImages(ctx context.Context, req dashscope.ImageRequest) ([]string, error)
	GenerateText(ctx context.Context, req dashscope.TextRequest) (string, error)
	GenerateVideo(ctx context.Context, req dashscope.VideoRequest) (string, error)
}

type commentReader interface {
	FindForSummary(ctx context.Context, songID uuid.UUID, commentRange enums.CommentRange, limit int) ([]models.Comment, error)
}

type leaseManager interface {
	AcquireTaskLease(ctx context.Context, taskID, owner string, ttl time.Duration) (bool, error)
	ReleaseTaskLease(ctx context.Context, taskID, owner string) error
}

// Orchestrator drives one generation task through its workflow with bounded
// retries.
type Orchestrator struct {
	repo     Repository
	songs    songReader
	comments commentReader
	provider generationProvider
	store    artifactStore
	fetcher  artifactFetcher
	leases   leaseManager
	prompts  promptBuilder
	logg     *logger.Logger
	metrics  *metrics.PipelineMetrics
	cfg      config.PipelineConfig
	workerID string
	now      nowFunc
	wait     func(ctx context.Context, d time.Duration) error
}

// OrchestratorParams configure the orchestrator.
type OrchestratorParams struct {
	Repo     Repository
	Songs    songReader
	Comments commentReader
	Provider generationProvider
	Store    artifactStore
	Fetcher  artifactFetcher
	Leases   leaseManager
	Logger   *logger.Logger
	Metrics  *metrics.PipelineMetrics
	Config   config.PipelineConfig
	WorkerID string
}

// NewOrchestrator builds an orchestrator, applying pipeline defaults.
func NewOrchestrator(params OrchestratorParams) (*Orchestrator, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("aigc repository required")
	}
	if params.Songs == nil {
		return nil, fmt.Errorf("song reader required")
	}
	if params.Comments == nil {
		return nil, fmt.Errorf("comment reader required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("generation provider required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	if params.Leases == nil {
		return nil, fmt.Errorf("lease manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	cfg := params.Config
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = time.Minute
	}
	if cfg.ClaimLeaseTTL <= 0 {
		cfg.ClaimLeaseTTL = 10 * time.Minute
	}
	fetcher := params.Fetcher
	if fetcher == nil {
		fetcher = newHTTPFetcher()
	}
	workerID := params.WorkerID
	if workerID == "" {
		workerID = uuid.NewString()
	}

	return &Orchestrator{
		repo:     params.Repo,
		songs:    params.Songs,
		comments: params.Comments,
		provider: params.Provider,
		store:    params.Store,
		fetcher:  fetcher,
		leases:   params.Leases,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      cfg,
		workerID: workerID,
		now:      defaultNow,
		wait:     waitFor,
	}, nil
}

// Run executes the task with bounded retries and linear backoff. Attempt n
// waits n times the backoff step before re-entering.
func (o *Orchestrator) Run(ctx context.Context, taskID uuid.UUID) error {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		err := o.Execute(ctx, taskID)
		if err == nil {
			return nil
		}
		lastErr = err

		// A state conflict means another worker holds the task; re-entering
		// from here would only contend with its attempt. Every other failure,
		// validation included, consumes an attempt.
		if pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
			return err
		}
		if attempt == o.cfg.MaxAttempts {
			break
		}

		backoff := time.Duration(attempt) * o.cfg.BackoffStep
		logCtx := o.logg.WithFields(ctx, map[string]any{
			"task_id":    taskID.String(),
			"attempt":    attempt,
			"backoff_ms": backoff.Milliseconds(),
		})
		o.logg.Warn(logCtx, "generation attempt failed; backing off")
		if err := o.wait(ctx, backoff); err != nil {
			return err
		}
	}
	return lastErr
}

// Execute claims the task and runs its workflow exactly once. The task ends
// in completed or failed; a failure is also returned to the caller so the
// retry runner can decide to re-enter.
func (o *Orchestrator) Execute(ctx context.Context, taskID uuid.UUID) error {
	logCtx := o.logg.WithTaskID(ctx, taskID.String())

	acquired, err := o.leases.AcquireTaskLease(ctx, taskID.String(), o.workerID, o.cfg.ClaimLeaseTTL)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire task lease")
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "task lease held by another worker")
	}
	defer func() {
		if relErr := o.leases.ReleaseTaskLease(ctx, taskID.String(), o.workerID); relErr != nil {
			o.logg.Error(logCtx, "failed to release task lease", relErr)
		}
	}()

	claimed, err := o.repo.ClaimTask(ctx, taskID, o.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim task")
	}
	if !claimed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "task is not claimable")
	}

	task, err := o.repo.FindTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "generation task not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load generation task")
	}

	logCtx = o.logg.WithFields(logCtx, map[string]any{
		"task_type": task.TaskType.String(),
		"song_id":   task.SongID.String(),
		"attempt":   task.Attempts,
	})
	o.logg.Info(logCtx, "generation task claimed")
	o.metrics.IncAttempt(task.TaskType.String())

	// Retry re-entry: discard partial artifacts from the prior attempt.
	if task.Attempts > 1 {
		if err := o.repo.DeleteTaskContents(ctx, task.ID); err != nil {
			return o.fail(logCtx, task, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear prior attempt contents"))
		}
	}

	song, err := o.songs.FindByID(ctx, task.SongID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return o.fail(logCtx, task, pkgerrors.New(pkgerrors.CodeNotFound, "song not found"))
		}
		return o.fail(logCtx, task, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load song"))
	}

	start := o.now()
	err = o.dispatch(logCtx, task, song)
	o.metrics.ObserveDuration(task.TaskType.String(), o.now().Sub(start))
	if err != nil {
		return o.fail(logCtx, task, err)
	}

	if err := o.repo.MarkTaskCompleted(ctx, task.ID, o.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark task completed")
	}
	o.metrics.IncOutcome(task.TaskType.String(), enums.TaskStatusCompleted.String())
	o.logg.Info(logCtx, "generation task completed")
	return nil
}

func (o *Orchestrator) dispatch(ctx context.Context, task *models.GenerationTask, song *models.Song) error {
	switch task.TaskType {
	case enums.TaskTypeLyricImage:
		return o.runLyricImage(ctx, task, song)
	case enums.TaskTypeCommentSummary:
		return o.runCommentSummary(ctx, task, song)
	case enums.TaskTypeLyricVideo:
		return o.runLyricVideo(ctx, task, song)
	case enums.TaskTypeTextToVideo:
		return o.runTextToVideo(ctx, task, song)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported task type %q", task.TaskType))
	}
}

func (o *Orchestrator) fail(ctx context.Context, task *models.GenerationTask, cause error) error {
	if err := o.repo.MarkTaskFailed(ctx, task.ID, cause.Error(), o.now()); err != nil {
		o.logg.Error(ctx, "failed to mark task failed", err)
	}
	o.metrics.IncOutcome(task.TaskType.String(), enums.TaskStatusFailed.String())
	o.logg.Error(ctx, "generation task failed", cause)
	return cause
}

func waitFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
