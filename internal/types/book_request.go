package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookRequest is an acquisition job: fetch a book found on an external site
// and add it to the catalog. The input fields are immutable after creation;
// Status/Error/ResultID are written only by the acquisition runner.
type BookRequest struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string     `gorm:"not null" json:"title"`
	Author    string     `json:"author,omitempty"`
	Category  string     `json:"category,omitempty"`
	CoverURL  string     `gorm:"column:cover_url" json:"coverUrl,omitempty"`
	SourceURL string     `gorm:"column:source_url;not null" json:"sourceUrl"`
	Status    string     `gorm:"not null;default:pending;index" json:"status"`
	Error     string     `json:"error,omitempty"`
	ResultID  *uuid.UUID `gorm:"type:uuid" json:"resultId,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

func (BookRequest) TableName() string { return "book_request" }

func (r *BookRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
