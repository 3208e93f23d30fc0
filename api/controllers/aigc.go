package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/musebox/musebox-backend/api/responses"
	"github.com/musebox/musebox-backend/api/validators"
	"github.com/musebox/musebox-backend/internal/aigc"
	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/logger"
	"github.com/musebox/musebox-backend/pkg/pagination"
	"github.com/musebox/musebox-backend/pkg/types"
)

type submitTaskRequest struct {
	TaskType   string        `json:"task_type" validate:"required"`
	SongID     string        `json:"song_id" validate:"required"`
	OperatorID string        `json:"operator_id"`
	Parameters types.JSONMap `json:"parameters"`
}

func (r submitTaskRequest) toInput() (aigc.SubmitInput, error) {
	taskType, err := enums.ParseTaskType(strings.TrimSpace(r.TaskType))
	if err != nil {
		return aigc.SubmitInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid task type")
	}

	songID, err := uuid.Parse(strings.TrimSpace(r.SongID))
	if err != nil {
		return aigc.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid song_id")
	}

	input := aigc.SubmitInput{
		TaskType:   taskType,
		SongID:     songID,
		Parameters: r.Parameters,
	}
	if trimmed := strings.TrimSpace(r.OperatorID); trimmed != "" {
		operatorID, err := uuid.Parse(trimmed)
		if err != nil {
			return aigc.SubmitInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid operator_id")
		}
		input.OperatorID = &operatorID
	}
	return input, nil
}

// SubmitGenerationTask accepts a generation request and enqueues it.
func SubmitGenerationTask(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		var payload submitTaskRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		task, err := svc.Submit(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, taskResponseFromModel(task))
	}
}

// GetGenerationTask returns one task with its generated contents.
func GetGenerationTask(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		taskID, err := pathUUID(r, "taskId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		task, err := svc.GetTask(r.Context(), taskID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, taskResponseFromModel(task))
	}
}

// ListGenerationTasks returns a filtered, cursor-paginated task page.
func ListGenerationTasks(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		input := aigc.ListTasksInput{}

		if raw := strings.TrimSpace(r.URL.Query().Get("task_type")); raw != "" {
			taskType, err := enums.ParseTaskType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid task_type filter"))
				return
			}
			input.TaskType = &taskType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseTaskStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			input.Status = &status
		}
		songID, err := queryUUID(r, "song_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.SongID = songID

		input.Page, err = pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tasks, next, err := svc.ListTasks(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]taskResponse, 0, len(tasks))
		for i := range tasks {
			items = append(items, taskResponseFromModel(&tasks[i]))
		}
		responses.WriteSuccess(w, listEnvelope[taskResponse]{Items: items, NextCursor: next})
	}
}

// ListGeneratedContents returns a filtered, cursor-paginated content page.
func ListGeneratedContents(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		input := aigc.ListContentsInput{}

		if raw := strings.TrimSpace(r.URL.Query().Get("content_type")); raw != "" {
			contentType, err := enums.ParseContentType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid content_type filter"))
				return
			}
			input.ContentType = &contentType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseContentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			input.Status = &status
		}
		songID, err := queryUUID(r, "song_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.SongID = songID

		taskID, err := queryUUID(r, "task_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.TaskID = taskID

		input.Page, err = pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		contents, next, err := svc.ListContents(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]contentResponse, 0, len(contents))
		for i := range contents {
			items = append(items, contentResponseFromModel(&contents[i]))
		}
		responses.WriteSuccess(w, listEnvelope[contentResponse]{Items: items, NextCursor: next})
	}
}

type reviewContentRequest struct {
	Decision   string  `json:"decision" validate:"required"`
	ReviewerID string  `json:"reviewer_id" validate:"required"`
	Notes      *string `json:"notes"`
}

// ReviewGeneratedContent applies an approve/reject verdict to pending content.
func ReviewGeneratedContent(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		contentID, err := pathUUID(r, "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload reviewContentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reviewerID, err := uuid.Parse(strings.TrimSpace(payload.ReviewerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reviewer_id"))
			return
		}

		content, err := svc.ReviewContent(r.Context(), aigc.ReviewInput{
			ContentID:  contentID,
			ReviewerID: reviewerID,
			Decision:   aigc.ReviewDecision(strings.TrimSpace(payload.Decision)),
			Notes:      payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, contentResponseFromModel(content))
	}
}

// PublishGeneratedContent makes approved content publicly visible.
func PublishGeneratedContent(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		contentID, err := pathUUID(r, "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		content, err := svc.PublishContent(r.Context(), contentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, contentResponseFromModel(content))
	}
}

// RecordContentUsage bumps the usage counter for one content row.
func RecordContentUsage(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		contentID, err := pathUUID(r, "contentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RecordUsage(r.Context(), contentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "recorded"})
	}
}

// SongGeneratedContent returns a song's published content grouped by task type.
func SongGeneratedContent(svc aigc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "generation service unavailable"))
			return
		}

		songID, err := pathUUID(r, "songId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		grouped, err := svc.SongContent(r.Context(), songID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := make(map[string][]contentResponse, len(grouped))
		for taskType, contents := range grouped {
			items := make([]contentResponse, 0, len(contents))
			for i := range contents {
				items = append(items, contentResponseFromModel(&contents[i]))
			}
			payload[taskType.String()] = items
		}
		responses.WriteSuccess(w, payload)
	}
}

type listEnvelope[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type taskResponse struct {
	ID           uuid.UUID         `json:"id"`
	TaskType     enums.TaskType    `json:"task_type"`
	SongID       uuid.UUID         `json:"song_id"`
	OperatorID   *uuid.UUID        `json:"operator_id,omitempty"`
	Status       enums.TaskStatus  `json:"status"`
	Parameters   types.JSONMap     `json:"parameters,omitempty"`
	Attempts     int               `json:"attempts"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	Contents     []contentResponse `json:"contents,omitempty"`
}

func taskResponseFromModel(m *models.GenerationTask) taskResponse {
	resp := taskResponse{
		ID:           m.ID,
		TaskType:     m.TaskType,
		SongID:       m.SongID,
		OperatorID:   m.OperatorID,
		Status:       m.Status,
		Parameters:   m.Parameters,
		Attempts:     m.Attempts,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		CompletedAt:  m.CompletedAt,
	}
	for i := range m.Contents {
		resp.Contents = append(resp.Contents, contentResponseFromModel(&m.Contents[i]))
	}
	return resp
}

type contentResponse struct {
	ID          uuid.UUID           `json:"id"`
	TaskID      uuid.UUID           `json:"task_id"`
	ContentType enums.ContentType   `json:"content_type"`
	URL         string              `json:"url,omitempty"`
	Body        *string             `json:"body,omitempty"`
	Metadata    types.JSONMap       `json:"metadata,omitempty"`
	Status      enums.ContentStatus `json:"status"`
	ReviewedAt  *time.Time          `json:"reviewed_at,omitempty"`
	ReviewedBy  *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewNotes *string             `json:"review_notes,omitempty"`
	PublishedAt *time.Time          `json:"published_at,omitempty"`
	UsageCount  int                 `json:"usage_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func contentResponseFromModel(m *models.GeneratedContent) contentResponse {
	return contentResponse{
		ID:          m.ID,
		TaskID:      m.TaskID,
		ContentType: m.ContentType,
		URL:         m.DisplayURL(),
		Body:        m.Body,
		Metadata:    m.Metadata,
		Status:      m.Status,
		ReviewedAt:  m.ReviewedAt,
		ReviewedBy:  m.ReviewedBy,
		ReviewNotes: m.ReviewNotes,
		PublishedAt: m.PublishedAt,
		UsageCount:  m.UsageCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func pathUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"field": key})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

func queryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": key})
	}
	return &id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
