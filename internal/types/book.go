package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Book source provenance values.
const (
	BookSourceUploaded    = "uploaded"
	BookSourceScraped     = "scraped"
	BookSourceAIGenerated = "ai_generated"
	BookSourceUserUpload  = "user_upload"
)

type Book struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string         `gorm:"not null;index" json:"title"`
	Author      string         `gorm:"not null;index" json:"author"`
	Description string         `json:"description,omitempty"`
	Category    string         `gorm:"index" json:"category"`
	Tags        datatypes.JSON `gorm:"type:jsonb" json:"tags,omitempty"`
	Language    string         `gorm:"not null;default:ar" json:"language"`
	FileURL     string         `gorm:"column:file_url;not null" json:"fileUrl"`
	CoverImage  string         `gorm:"not null" json:"coverImage"`
	FileType    string         `gorm:"not null" json:"fileType"`
	FileSize    int64          `json:"fileSize,omitempty"`
	Pages       int            `json:"pages,omitempty"`
	Duration    int            `json:"duration,omitempty"`
	IsFeatured  bool           `gorm:"not null;default:false" json:"isFeatured"`
	Views       int64          `gorm:"not null;default:0" json:"views"`
	Downloads   int64          `gorm:"not null;default:0" json:"downloads"`
	Likes       int64          `gorm:"not null;default:0" json:"likes"`
	Source      string         `gorm:"not null;default:uploaded;index" json:"source"`
	SourceURL   string         `gorm:"column:source_url" json:"sourceUrl,omitempty"`
	Metadata    datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Book) TableName() string { return "book" }

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
