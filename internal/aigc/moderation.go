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
)

// ReviewDecision is the moderation verdict on pending content.
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)

// ReviewInput carries one moderation decision.
type ReviewInput struct {
	ContentID  uuid.UUID
	ReviewerID uuid.UUID
	Decision   ReviewDecision
	Notes      *string
}

// ReviewContent applies an approve/reject verdict. Only pending_review
// content is reviewable; a second verdict on the same row is a state
// conflict.
func (s *service) ReviewContent(ctx context.Context, input ReviewInput) (*models.GeneratedContent, error) {
	if input.ContentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content id is required")
	}
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer id is required")
	}
	if input.Decision != ReviewApprove && input.Decision != ReviewReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid review decision %q", input.Decision))
	}

	reviewer, err := s.users.FindByID(ctx, input.ReviewerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "reviewer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reviewer")
	}
	if !reviewer.IsStaff || !reviewer.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reviewer is not authorized to moderate content")
	}

	content, err := s.findContent(ctx, input.ContentID)
	if err != nil {
		return nil, err
	}
	if content.Status != enums.ContentStatusPendingReview {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("content in status %q cannot be reviewed", content.Status)).
			WithDetails(map[string]any{"status": content.Status.String()})
	}

	status := enums.ContentStatusApproved
	if input.Decision == ReviewReject {
		status = enums.ContentStatusRejected
	}
	now := s.now()
	updates := map[string]any{
		"status":      status,
		"reviewed_at": now,
		"reviewed_by": input.ReviewerID,
	}
	if input.Notes != nil {
		updates["review_notes"] = *input.Notes
	}
	if err := s.repo.UpdateContent(ctx, content.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update content review")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"content_id": content.ID.String(),
		"decision":   string(input.Decision),
	})
	s.logg.Info(logCtx, "generated content reviewed")
	return s.findContent(ctx, content.ID)
}

// PublishContent makes approved content publicly visible. Publishing from
// any other status is a state conflict, not a silent no-op.
func (s *service) PublishContent(ctx context.Context, contentID uuid.UUID) (*models.GeneratedContent, error) {
	if contentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content id is required")
	}
	content, err := s.findContent(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if content.Status != enums.ContentStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("content in status %q cannot be published", content.Status)).
			WithDetails(map[string]any{"status": content.Status.String()})
	}

	now := s.now()
	updates := map[string]any{
		"status":       enums.ContentStatusPublished,
		"published_at": now,
	}
	if err := s.repo.UpdateContent(ctx, content.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish content")
	}

	logCtx := s.logg.WithField(ctx, "content_id", content.ID.String())
	s.logg.Info(logCtx, "generated content published")
	return s.findContent(ctx, content.ID)
}

// RecordUsage bumps the usage counter. Intentionally unconditional on status.
func (s *service) RecordUsage(ctx context.Context, contentID uuid.UUID) error {
	if contentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "content id is required")
	}
	if _, err := s.findContent(ctx, contentID); err != nil {
		return err
	}
	if err := s.repo.IncrementUsage(ctx, contentID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment usage count")
	}
	return nil
}

func (s *service) findContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	content, err := s.repo.FindContent(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "generated content not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load generated content")
	}
	return content, nil
}
