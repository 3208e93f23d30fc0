package models

import (
	"time"

	"github.com/google/uuid"
)

// Song is the catalog entity generation tasks hang off of.
type Song struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title     string    `gorm:"column:title;not null"`
	Artist    string    `gorm:"column:artist;not null"`
	Lyrics    string    `gorm:"column:lyrics;type:text;not null;default:''"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
