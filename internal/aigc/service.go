package aigc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/pagination"
	"github.com/musebox/musebox-backend/pkg/types"
)

type songReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Song, error)
}

type userReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type taskPublisher interface {
	PublishTask(ctx context.Context, taskID uuid.UUID) error
}

// Service exposes the generation task surface used by the API.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.GenerationTask, error)
	GetTask(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	ListTasks(ctx context.Context, input ListTasksInput) ([]models.GenerationTask, string, error)
	ListContents(ctx context.Context, input ListContentsInput) ([]models.GeneratedContent, string, error)
	SongContent(ctx context.Context, songID uuid.UUID) (map[enums.TaskType][]models.GeneratedContent, error)

	ReviewContent(ctx context.Context, input ReviewInput) (*models.GeneratedContent, error)
	PublishContent(ctx context.Context, contentID uuid.UUID) (*models.GeneratedContent, error)
	RecordUsage(ctx context.Context, contentID uuid.UUID) error
}

type service struct {
	repo      Repository
	songs     songReader
	users     userReader
	publisher taskPublisher
	logg      *logger.Logger
	now       nowFunc
}

// NewService constructs the generation task service.
func NewService(repo Repository, songs songReader, users userReader, publisher taskPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("aigc repository required")
	}
	if songs == nil {
		return nil, fmt.Errorf("song reader required")
	}
	if users == nil {
		return nil, fmt.Errorf("user reader required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("task publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		songs:     songs,
		users:     users,
		publisher: publisher,
		logg:      logg,
		now:       defaultNow,
	}, nil
}

// SubmitInput models a generation request.
type SubmitInput struct {
	TaskType   enums.TaskType
	SongID     uuid.UUID
	OperatorID *uuid.UUID
	Parameters types.JSONMap
}

// ListTasksInput filters the task listing.
type ListTasksInput struct {
	TaskType *enums.TaskType
	Status   *enums.TaskStatus
	SongID   *uuid.UUID
	Page     pagination.Params
}

// ListContentsInput filters the content listing.
type ListContentsInput struct {
	ContentType *enums.ContentType
	Status      *enums.ContentStatus
	SongID      *uuid.UUID
	TaskID      *uuid.UUID
	Page        pagination.Params
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.GenerationTask, error) {
	if !input.TaskType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid task type %q", input.TaskType))
	}
	if input.SongID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "song id is required")
	}
	if err := validateParameters(input.TaskType, input.Parameters); err != nil {
		return nil, err
	}

	song, err := s.songs.FindByID(ctx, input.SongID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "song not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load song")
	}
	if !song.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "song is not active")
	}

	task := &models.GenerationTask{
		ID:         uuid.New(),
		TaskType:   input.TaskType,
		SongID:     input.SongID,
		OperatorID: input.OperatorID,
		Status:     enums.TaskStatusPending,
		Parameters: input.Parameters,
	}
	if err := s.repo.CreateTask(ctx, task); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create generation task")
	}

	if err := s.publisher.PublishTask(ctx, task.ID); err != nil {
		// The task row stays pending; the stale-task reaper or a manual
		// republish picks it up.
		logCtx := s.logg.WithTaskID(ctx, task.ID.String())
		s.logg.Error(logCtx, "failed to publish generation task", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue generation task")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"task_id":   task.ID.String(),
		"task_type": task.TaskType.String(),
		"song_id":   task.SongID.String(),
	})
	s.logg.Info(logCtx, "generation task submitted")
	return task, nil
}

func (s *service) GetTask(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	task, err := s.repo.FindTaskWithContents(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generation task not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load generation task")
	}
	return task, nil
}

func (s *service) ListTasks(ctx context.Context, input ListTasksInput) ([]models.GenerationTask, string, error) {
	cursor, err := pagination.ParseCursor(input.Page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	tasks, next, err := s.repo.ListTasks(ctx, listTasksParams{
		TaskType: input.TaskType,
		Status:   input.Status,
		SongID:   input.SongID,
		Limit:    input.Page.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list generation tasks")
	}
	return tasks, encodeCursor(next), nil
}

func (s *service) ListContents(ctx context.Context, input ListContentsInput) ([]models.GeneratedContent, string, error) {
	cursor, err := pagination.ParseCursor(input.Page.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	contents, next, err := s.repo.ListContents(ctx, listContentsParams{
		ContentType: input.ContentType,
		Status:      input.Status,
		SongID:      input.SongID,
		TaskID:      input.TaskID,
		Limit:       input.Page.Limit,
		Cursor:      cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list generated contents")
	}
	return contents, encodeCursor(next), nil
}

func (s *service) SongContent(ctx context.Context, songID uuid.UUID) (map[enums.TaskType][]models.GeneratedContent, error) {
	if songID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "song id is required")
	}
	contents, err := s.repo.ListPublishedBySong(ctx, songID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list published contents")
	}
	grouped := make(map[enums.TaskType][]models.GeneratedContent)
	for _, content := range contents {
		if content.Task == nil {
			continue
		}
		grouped[content.Task.TaskType] = append(grouped[content.Task.TaskType], content)
	}
	return grouped, nil
}

func encodeCursor(cursor *pagination.Cursor) string {
	if cursor == nil {
		return ""
	}
	return pagination.EncodeCursor(*cursor)
}
