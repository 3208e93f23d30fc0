package aigc

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/musebox/musebox-backend/pkg/dashscope"
	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/types"
)

// runCommentSummary condenses listener comments into a short review. A song
// with no usable comments fails before any provider call is made.
func (o *Orchestrator) runCommentSummary(ctx context.Context, task *models.GenerationTask, song *models.Song) error {
	params, err := parseSummaryParams(task.Parameters)
	if err != nil {
		return err
	}

	comments, err := o.comments.FindForSummary(ctx, song.ID, params.Range, maxSummaryInputs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load comments for summary")
	}
	if len(comments) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "song has no comments to summarize")
	}

	bodies := make([]string, 0, len(comments))
	for _, comment := range comments {
		bodies = append(bodies, comment.Body)
	}
	prompt := o.prompts.CommentSummary(song.Title, song.Artist, bodies)

	text, err := o.provider.GenerateText(ctx, dashscope.TextRequest{
		Prompt:      prompt,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemp,
	})
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)

	content := &models.GeneratedContent{
		ID:          uuid.New(),
		TaskID:      task.ID,
		ContentType: enums.ContentTypeText,
		Body:        &text,
		Status:      enums.ContentStatusPendingReview,
		Metadata: types.JSONMap{
			"comment_range": params.Range.String(),
			"comment_count": len(comments),
			"word_count":    len(strings.Fields(text)),
		},
	}
	if err := o.repo.CreateContent(ctx, content); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist comment summary")
	}
	return nil
}
