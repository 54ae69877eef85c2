package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/kioskworks/kiosk-admin-api/internal/models"
)

// ActivityLogFilter narrows activity log queries. Zero values mean "any".
type ActivityLogFilter struct {
	Category        string
	Level           string
	Status          string
	StartDate       *time.Time
	EndDate         *time.Time
	Search          string
	Page            int
	Limit           int
	SortAscending   bool
	IncludeArchived bool
}

// ActivityLogRepository persists and queries kiosk activity log entries.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	GetByID(ctx context.Context, id string) (models.ActivityLog, error)
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
	ListForExport(ctx context.Context, filter ActivityLogFilter, max int) ([]models.ActivityLog, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.ActivityLog, error)
	ArchiveByIDs(ctx context.Context, ids []string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) GetByID(ctx context.Context, id string) (models.ActivityLog, error) {
	var entry models.ActivityLog
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	return entry, err
}

func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := r.filtered(ctx, filter)

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.Limit
		query = query.Offset(offset).Limit(filter.Limit)
	}

	var entries []models.ActivityLog
	if err := query.Order(orderClause(filter)).Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *activityLogRepository) ListForExport(ctx context.Context, filter ActivityLogFilter, max int) ([]models.ActivityLog, error) {
	query := r.filtered(ctx, filter).Order(orderClause(filter))
	if max > 0 {
		query = query.Limit(max)
	}

	var entries []models.ActivityLog
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *activityLogRepository) FindByIDs(ctx context.Context, ids []string) ([]models.ActivityLog, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("occurred_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *activityLogRepository) ArchiveByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.ActivityLog{}).
		Where("id IN ? AND archived = ?", ids, false).
		Updates(map[string]interface{}{"archived": true, "archived_at": now})
	return result.RowsAffected, result.Error
}

func (r *activityLogRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.ActivityLog{})
	return result.RowsAffected, result.Error
}

func (r *activityLogRepository) filtered(ctx context.Context, filter ActivityLogFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{})

	if !filter.IncludeArchived {
		query = query.Where("archived = ?", false)
	}

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	if filter.Level != "" {
		query = query.Where("level = ?", filter.Level)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.StartDate != nil {
		query = query.Where("occurred_at >= ?", *filter.StartDate)
	}

	if filter.EndDate != nil {
		query = query.Where("occurred_at <= ?", *filter.EndDate)
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("action LIKE ? OR description LIKE ?", pattern, pattern)
	}

	return query
}

func orderClause(filter ActivityLogFilter) string {
	if filter.SortAscending {
		return "occurred_at ASC"
	}
	return "occurred_at DESC"
}
