package repos

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

// ListBooksQuery mirrors the catalog filters the list endpoint accepts.
type ListBooksQuery struct {
	Page     int
	Limit    int
	Category string
	Author   string
	Language string
	Search   string
	Sort     string // newest | popular | downloads | likes | featured
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type AuthorCount struct {
	Author string `json:"author"`
	Count  int64  `json:"count"`
}

type BookRepo interface {
	Create(ctx context.Context, book *types.Book) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.Book, error)
	List(ctx context.Context, q ListBooksQuery) ([]*types.Book, int64, error)
	SearchCatalog(ctx context.Context, query string, limit int) ([]*types.Book, error)
	IncrementCounter(ctx context.Context, id uuid.UUID, column string) (int64, error)
	Categories(ctx context.Context) ([]CategoryCount, error)
	Authors(ctx context.Context, limit int) ([]AuthorCount, error)
}

type bookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRepo(db *gorm.DB, baseLog *logger.Logger) BookRepo {
	return &bookRepo{db: db, log: baseLog.With("repo", "BookRepo")}
}

func (r *bookRepo) Create(ctx context.Context, book *types.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

func (r *bookRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.Book, error) {
	var book types.Book
	err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepo) List(ctx context.Context, q ListBooksQuery) ([]*types.Book, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	tx := r.db.WithContext(ctx).Model(&types.Book{})
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.Author != "" {
		tx = tx.Where("author LIKE ?", "%"+q.Author+"%")
	}
	if q.Language != "" {
		tx = tx.Where("language = ?", q.Language)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		like := "%" + s + "%"
		tx = tx.Where("title LIKE ? OR author LIKE ? OR description LIKE ?", like, like, like)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch q.Sort {
	case "popular":
		tx = tx.Order("views DESC")
	case "downloads":
		tx = tx.Order("downloads DESC")
	case "likes":
		tx = tx.Order("likes DESC")
	case "featured":
		tx = tx.Order("is_featured DESC, created_at DESC")
	default:
		tx = tx.Order("created_at DESC")
	}

	var books []*types.Book
	if err := tx.Offset((q.Page - 1) * q.Limit).Limit(q.Limit).Find(&books).Error; err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (r *bookRepo) SearchCatalog(ctx context.Context, query string, limit int) ([]*types.Book, error) {
	if limit < 1 {
		limit = 20
	}
	like := "%" + strings.TrimSpace(query) + "%"
	var books []*types.Book
	err := r.db.WithContext(ctx).
		Where("title LIKE ? OR author LIKE ?", like, like).
		Order("created_at DESC").
		Limit(limit).
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// IncrementCounter bumps one of the whitelisted counters and returns the new
// value. The whitelist keeps handler input away from column names.
func (r *bookRepo) IncrementCounter(ctx context.Context, id uuid.UUID, column string) (int64, error) {
	switch column {
	case "views", "downloads", "likes":
	default:
		return 0, errors.New("unsupported counter column: " + column)
	}
	err := r.db.WithContext(ctx).
		Model(&types.Book{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", 1),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return 0, err
	}
	var book types.Book
	if err := r.db.WithContext(ctx).Select(column).First(&book, "id = ?", id).Error; err != nil {
		return 0, err
	}
	switch column {
	case "views":
		return book.Views, nil
	case "downloads":
		return book.Downloads, nil
	default:
		return book.Likes, nil
	}
}

func (r *bookRepo) Categories(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&types.Book{}).
		Select("category, COUNT(*) AS count").
		Where("category <> ''").
		Group("category").
		Order("count DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRepo) Authors(ctx context.Context, limit int) ([]AuthorCount, error) {
	if limit < 1 {
		limit = 50
	}
	var out []AuthorCount
	err := r.db.WithContext(ctx).
		Model(&types.Book{}).
		Select("author, COUNT(*) AS count").
		Group("author").
		Order("count DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
