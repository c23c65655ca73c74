package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"not null;uniqueIndex" json:"username"`
	Email     string    `gorm:"not null;uniqueIndex" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `json:"fullName,omitempty"`
	AvatarURL string    `gorm:"column:avatar_url" json:"avatarUrl,omitempty"`
	Role      string    `gorm:"not null;default:user" json:"role"`
	IsActive  bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ReadingEntry tracks a user's last position in a book.
type ReadingEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_reading_user_book,unique" json:"user_id"`
	BookID    uuid.UUID `gorm:"type:uuid;not null;index:idx_reading_user_book,unique" json:"book_id"`
	Progress  int       `gorm:"not null;default:0" json:"progress"`
	TotalTime int64     `gorm:"not null;default:0" json:"total_time"`
	LastRead  time.Time `gorm:"not null" json:"last_read"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ReadingEntry) TableName() string { return "reading_entry" }

func (e *ReadingEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// LibraryItem marks a book as saved to a user's personal library.
type LibraryItem struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_library_user_book,unique" json:"user_id"`
	BookID       uuid.UUID `gorm:"type:uuid;not null;index:idx_library_user_book,unique" json:"book_id"`
	IsDownloaded bool      `gorm:"not null;default:false" json:"is_downloaded"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (LibraryItem) TableName() string { return "library_item" }

func (i *LibraryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
