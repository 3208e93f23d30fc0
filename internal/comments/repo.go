package comments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/db/models"
	"github.com/musebox/musebox-backend/pkg/enums"
)

// hotLikeThreshold is the minimum like count for a comment to rank as hot.
const hotLikeThreshold = 5

// Repository exposes comment lookups for summarization.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindForSummary(ctx context.Context, songID uuid.UUID, commentRange enums.CommentRange, limit int) ([]models.Comment, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a comment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// FindForSummary selects the comments feeding a summary. Only top-level
// active comments qualify; replies never do. The hot range falls back to the
// regular ranking when no comment clears the like threshold, so a song with
// any comments at all still gets a summary.
func (r *repositoryImpl) FindForSummary(ctx context.Context, songID uuid.UUID, commentRange enums.CommentRange, limit int) ([]models.Comment, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Where("song_id = ? AND parent_id IS NULL AND is_active = ?", songID, true).
			Limit(limit)
	}

	var comments []models.Comment
	switch commentRange {
	case enums.CommentRangeHot:
		err := base().
			Where("like_count >= ?", hotLikeThreshold).
			Order("like_count DESC, created_at DESC").
			Find(&comments).Error
		if err != nil {
			return nil, err
		}
		if len(comments) > 0 {
			return comments, nil
		}
		err = base().
			Order("like_count DESC, created_at DESC").
			Find(&comments).Error
		return comments, err
	case enums.CommentRangeLatest:
		err := base().
			Order("created_at DESC").
			Find(&comments).Error
		return comments, err
	default:
		err := base().
			Order("like_count DESC, created_at DESC").
			Find(&comments).Error
		return comments, err
	}
}
