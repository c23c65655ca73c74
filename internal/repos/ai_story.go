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

type AIStoryRepo interface {
	Create(ctx context.Context, story *types.AIStory) error
	GetByID(ctx context.Context, id uuid.UUID) (*types.AIStory, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.AIStory, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(ctx context.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error)
}

type aiStoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAIStoryRepo(db *gorm.DB, baseLog *logger.Logger) AIStoryRepo {
	return &aiStoryRepo{db: db, log: baseLog.With("repo", "AIStoryRepo")}
}

func (r *aiStoryRepo) Create(ctx context.Context, story *types.AIStory) error {
	return r.db.WithContext(ctx).Create(story).Error
}

func (r *aiStoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.AIStory, error) {
	var story types.AIStory
	err := r.db.WithContext(ctx).First(&story, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &story, nil
}

func (r *aiStoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*types.AIStory, error) {
	if limit < 1 {
		limit = 20
	}
	var out []*types.AIStory
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

func (r *aiStoryRepo) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.AIStory{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *aiStoryRepo) UpdateFieldsUnlessStatus(ctx context.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
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
		Model(&types.AIStory{}).
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

func (r *aiStoryRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&types.AIStory{}).
		Where("status IN ? AND updated_at < ?", []string{types.JobStatusPending, types.JobStatusProcessing}, cutoff).
		Updates(map[string]interface{}{
			"status":     types.JobStatusFailed,
			"error":      reason,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
