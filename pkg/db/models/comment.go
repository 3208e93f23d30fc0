package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a listener comment on a song. Replies carry a parent reference
// and never feed summaries.
type Comment struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SongID    uuid.UUID  `gorm:"column:song_id;type:uuid;not null;index"`
	UserID    *uuid.UUID `gorm:"column:user_id;type:uuid"`
	ParentID  *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	Body      string     `gorm:"column:body;type:text;not null"`
	LikeCount int        `gorm:"column:like_count;not null;default:0"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Song *Song `gorm:"foreignKey:SongID;constraint:OnDelete:CASCADE"`
}

// CommentLike records one like per user per comment.
type CommentLike struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CommentID uuid.UUID `gorm:"column:comment_id;type:uuid;not null;uniqueIndex:idx_comment_like_once"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_comment_like_once"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
