package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sulafhq/sulaf-backend/internal/logger"
	"github.com/sulafhq/sulaf-backend/internal/types"
)

type BookRequestRepo interface {
	Create(ctx context.Context, req *types.BookRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.BookRequest, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.BookRequest, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsUnlessStatus applies updates only when the row's status is
	// not one of the disallowed values. Returns false when the guard refused.
	UpdateFieldsUnlessStatus(ctx context.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type bookRequestRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBookRequestRepo(db *gorm.DB, baseLog *logger.Logger) BookRequestRepo {
	return &bookRequestRepo{db: db, log: baseLog.With("repo", "BookRequestRepo")}
}

func (r *bookRequestRepo) Create(ctx context.Context, req *types.BookRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *bookRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.BookRequest, error) {
	var req types.BookRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *bookRequestRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.BookRequest, error) {
	if limit < 1 {
		limit = 20
	}
	var out []*types.BookRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *bookRequestRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.db.WithContext(ctx).
		Model(&types.BookRequest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *bookRequestRepo) UpdateFieldsUnlessStatus(ctx context.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := r.db.WithContext(ctx).
		Model(&types.BookRequest{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *bookRequestRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&types.BookRequest{}).
		Where("status IN ? AND updated_at < ?", []string{types.JobStatusPending, types.JobStatusProcessing}, cutoff).
		Updates(map[string]interface{}{
			"status":     types.JobStatusFailed,
			"error":      reason,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
