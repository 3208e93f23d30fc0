package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/musebox/musebox-backend/pkg/enums"
	"github.com/musebox/musebox-backend/pkg/types"
)

// GeneratedContent is one artifact produced by a generation task.
// ContentURL always holds the provider origin URL; ObjectKey/StoredURL are
// set only when the artifact landed in our bucket.
type GeneratedContent struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TaskID      uuid.UUID           `gorm:"column:task_id;type:uuid;not null;index"`
	ContentType enums.ContentType   `gorm:"column:content_type;not null"`
	ContentURL  string              `gorm:"column:content_url;not null;default:''"`
	ObjectKey   *string             `gorm:"column:object_key"`
	StoredURL   *string             `gorm:"column:stored_url"`
	Body        *string             `gorm:"column:body;type:text"`
	Metadata    types.JSONMap       `gorm:"column:metadata;type:jsonb;serializer:json"`
	Status      enums.ContentStatus `gorm:"column:status;not null;default:'pending_review';index"`
	ReviewedAt  *time.Time          `gorm:"column:reviewed_at"`
	ReviewedBy  *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	ReviewNotes *string             `gorm:"column:review_notes;type:text"`
	PublishedAt *time.Time          `gorm:"column:published_at"`
	UsageCount  int                 `gorm:"column:usage_count;not null;default:0"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`

	Task     *GenerationTask `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	Reviewer *User           `gorm:"foreignKey:ReviewedBy;constraint:OnDelete:SET NULL"`
}

// DisplayURL prefers the durable stored copy over the provider URL.
func (c GeneratedContent) DisplayURL() string {
	if c.StoredURL != nil && *c.StoredURL != "" {
		return *c.StoredURL
	}
	return c.ContentURL
}
