package notifications

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, query listQuery) ([]models.Notification, error)
	MarkRead(ctx context.Context, inbox Inbox, id int64, now time.Time) (markResult, error)
	MarkAllRead(ctx context.Context, inbox Inbox, now time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listQuery struct {
	Inbox      Inbox
	Limit      int
	Cursor     int64
	UnreadOnly bool
}

type markResult struct {
	Updated bool
	Found   bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Create inserts the row unless the same event already produced one for this audience.
func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "audience"}},
			DoNothing: true,
		}).
		Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, q listQuery) ([]models.Notification, error) {
	query := r.scoped(ctx, q.Inbox)
	if q.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if q.Cursor > 0 {
		query = query.Where("id < ?", q.Cursor)
	}
	var rows []models.Notification
	err := query.Order("id DESC").Limit(pagination.LimitWithBuffer(q.Limit)).Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkRead(ctx context.Context, inbox Inbox, id int64, now time.Time) (markResult, error) {
	result := r.scoped(ctx, inbox).
		Where("id = ? AND read_at IS NULL", id).
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return markResult{}, result.Error
	}
	if result.RowsAffected > 0 {
		return markResult{Updated: true, Found: true}, nil
	}

	var count int64
	if err := r.scoped(ctx, inbox).Where("id = ?", id).Count(&count).Error; err != nil {
		return markResult{}, err
	}
	return markResult{Found: count > 0}, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, inbox Inbox, now time.Time) (int64, error) {
	result := r.scoped(ctx, inbox).
		Where("read_at IS NULL").
		UpdateColumn("read_at", now)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteReadBefore removes notifications read before cutoff. Unread rows are kept.
func (r *repositoryImpl) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("read_at IS NOT NULL AND read_at < ?", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) scoped(ctx context.Context, inbox Inbox) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).Where("audience = ?", inbox.Audience)
	if inbox.Audience == enums.AudienceCustomer || inbox.Recipient != "" {
		query = query.Where("recipient = ?", inbox.Recipient)
	}
	return query
}
