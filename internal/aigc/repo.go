package aigc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	"github.com/musebox/musebox-backend/pkg/pagination"
)

// Repository exposes persistence helpers for generation tasks and content.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTask(ctx context.Context, task *models.GenerationTask) error
	FindTask(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	FindTaskWithContents(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error)
	ClaimTask(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkTaskCompleted(ctx context.Context, id uuid.UUID, now time.Time) error
	MarkTaskFailed(ctx context.Context, id uuid.UUID, message string, now time.Time) error
	ListTasks(ctx context.Context, params listTasksParams) ([]models.GenerationTask, *pagination.Cursor, error)
	FindStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.GenerationTask, error)

	CreateContent(ctx context.Context, content *models.GeneratedContent) error
	FindContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error)
	DeleteTaskContents(ctx context.Context, taskID uuid.UUID) error
	ListContents(ctx context.Context, params listContentsParams) ([]models.GeneratedContent, *pagination.Cursor, error)
	ListPublishedBySong(ctx context.Context, songID uuid.UUID) ([]models.GeneratedContent, error)
	LatestPublishedImage(ctx context.Context, songID uuid.UUID) (*models.GeneratedContent, error)
	UpdateContent(ctx context.Context, id uuid.UUID, updates map[string]any) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an aigc repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listTasksParams struct {
	TaskType *enums.TaskType
	Status   *enums.TaskStatus
	SongID   *uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
}

type listContentsParams struct {
	ContentType *enums.ContentType
	Status      *enums.ContentStatus
	SongID      *uuid.UUID
	TaskID      *uuid.UUID
	Limit       int
	Cursor      *pagination.Cursor
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) CreateTask(ctx context.Context, task *models.GenerationTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *repositoryImpl) FindTask(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	var task models.GenerationTask
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *repositoryImpl) FindTaskWithContents(ctx context.Context, id uuid.UUID) (*models.GenerationTask, error) {
	var task models.GenerationTask
	if err := r.db.WithContext(ctx).
		Preload("Contents", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ClaimTask moves a pending or failed task into processing and counts the
// attempt. RowsAffected zero means another worker won or the task is in a
// state that cannot be claimed.
func (r *repositoryImpl) ClaimTask(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ? AND status IN ?", id, []enums.TaskStatus{enums.TaskStatusPending, enums.TaskStatusFailed}).
		UpdateColumns(map[string]any{
			"status":        enums.TaskStatusProcessing,
			"attempts":      gorm.Expr("attempts + 1"),
			"error_message": nil,
			"completed_at":  nil,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) MarkTaskCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ? AND status = ?", id, enums.TaskStatusProcessing).
		UpdateColumns(map[string]any{
			"status":       enums.TaskStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

func (r *repositoryImpl) MarkTaskFailed(ctx context.Context, id uuid.UUID, message string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.GenerationTask{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"status":        enums.TaskStatusFailed,
			"error_message": message,
			"completed_at":  now,
			"updated_at":    now,
		}).Error
}

func (r *repositoryImpl) ListTasks(ctx context.Context, params listTasksParams) ([]models.GenerationTask, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.GenerationTask{})
	if params.TaskType != nil {
		query = query.Where("task_type = ?", *params.TaskType)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.SongID != nil {
		query = query.Where("song_id = ?", *params.SongID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var tasks []models.GenerationTask
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&tasks).Error; err != nil {
		return nil, nil, err
	}

	if len(tasks) > normalized {
		tasks = tasks[:normalized]
		// Cursor marks the last returned row; the next page filters strictly
		// below it.
		last := tasks[normalized-1]
		return tasks, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return tasks, nil, nil
}

func (r *repositoryImpl) FindStaleProcessing(ctx context.Context, cutoff time.Time) ([]models.GenerationTask, error) {
	var tasks []models.GenerationTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.TaskStatusProcessing, cutoff).
		Order("updated_at ASC").
		Find(&tasks).Error
	return tasks, err
}

func (r *repositoryImpl) CreateContent(ctx context.Context, content *models.GeneratedContent) error {
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *repositoryImpl) FindContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	var content models.GeneratedContent
	if err := r.db.WithContext(ctx).First(&content, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &content, nil
}

// DeleteTaskContents clears prior-attempt artifacts before a retry reruns the
// workflow.
func (r *repositoryImpl) DeleteTaskContents(ctx context.Context, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Delete(&models.GeneratedContent{}).Error
}

func (r *repositoryImpl) ListContents(ctx context.Context, params listContentsParams) ([]models.GeneratedContent, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.GeneratedContent{})
	if params.ContentType != nil {
		query = query.Where("content_type = ?", *params.ContentType)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.TaskID != nil {
		query = query.Where("task_id = ?", *params.TaskID)
	}
	if params.SongID != nil {
		query = query.Where("task_id IN (?)", r.db.Model(&models.GenerationTask{}).Select("id").Where("song_id = ?", *params.SongID))
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var contents []models.GeneratedContent
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&contents).Error; err != nil {
		return nil, nil, err
	}

	if len(contents) > normalized {
		contents = contents[:normalized]
		last := contents[normalized-1]
		return contents, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return contents, nil, nil
}

func (r *repositoryImpl) ListPublishedBySong(ctx context.Context, songID uuid.UUID) ([]models.GeneratedContent, error) {
	var contents []models.GeneratedContent
	err := r.db.WithContext(ctx).
		Joins("JOIN generation_tasks ON generation_tasks.id = generated_contents.task_id").
		Where("generation_tasks.song_id = ? AND generated_contents.status = ?", songID, enums.ContentStatusPublished).
		Order("generated_contents.published_at DESC").
		Preload("Task").
		Find(&contents).Error
	return contents, err
}

func (r *repositoryImpl) LatestPublishedImage(ctx context.Context, songID uuid.UUID) (*models.GeneratedContent, error) {
	var content models.GeneratedContent
	err := r.db.WithContext(ctx).
		Joins("JOIN generation_tasks ON generation_tasks.id = generated_contents.task_id").
		Where("generation_tasks.song_id = ?", songID).
		Where("generated_contents.content_type = ? AND generated_contents.status = ?", enums.ContentTypeImage, enums.ContentStatusPublished).
		Order("generated_contents.published_at DESC").
		First(&content).Error
	if err != nil {
		return nil, err
	}
	return &content, nil
}

func (r *repositoryImpl) UpdateContent(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.GeneratedContent{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repositoryImpl) IncrementUsage(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.GeneratedContent{}).
		Where("id = ?", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}
