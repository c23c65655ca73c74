package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Story length tiers accepted on generation requests.
const (
	StoryLengthShort  = "short"
	StoryLengthMedium = "medium"
	StoryLengthLong   = "long"
)

// AIStory is a generation job plus its artifacts. The generated text is
// persisted as soon as the model returns it, so a later render failure never
// loses the story itself.
type AIStory struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Prompt    string         `gorm:"not null" json:"prompt"`
	Genre     string         `json:"genre,omitempty"`
	Language  string         `gorm:"not null;default:ar" json:"language"`
	Length    string         `gorm:"not null;default:medium" json:"length"`
	Story     string         `gorm:"type:text" json:"story,omitempty"`
	Images    datatypes.JSON `gorm:"type:jsonb" json:"images,omitempty"`
	PDFURL    string         `gorm:"column:pdf_url" json:"pdfUrl,omitempty"`
	BookID    *uuid.UUID     `gorm:"type:uuid" json:"bookId,omitempty"`
	Status    string         `gorm:"not null;default:pending;index" json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
}

func (AIStory) TableName() string { return "ai_story" }

func (s *AIStory) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
