package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/musebox/musebox-backend/pkg/enums"
	"github.com/musebox/musebox-backend/pkg/types"
)

// GenerationTask tracks one generation request through the pipeline.
// Status only moves forward; a failed task re-enters processing when the
// retry runner claims it again.
type GenerationTask struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TaskType     enums.TaskType   `gorm:"column:task_type;not null;index"`
	SongID       uuid.UUID        `gorm:"column:song_id;type:uuid;not null;index"`
	OperatorID   *uuid.UUID       `gorm:"column:operator_id;type:uuid"`
	Status       enums.TaskStatus `gorm:"column:status;not null;default:'pending';index"`
	Parameters   types.JSONMap    `gorm:"column:parameters;type:jsonb;serializer:json"`
	Attempts     int              `gorm:"column:attempts;not null;default:0"`
	ErrorMessage *string          `gorm:"column:error_message;type:text"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	CompletedAt  *time.Time       `gorm:"column:completed_at"`

	Song     *Song              `gorm:"foreignKey:SongID;constraint:OnDelete:CASCADE"`
	Operator *User              `gorm:"foreignKey:OperatorID;constraint:OnDelete:SET NULL"`
	Contents []GeneratedContent `gorm:"foreignKey:TaskID"`
}
