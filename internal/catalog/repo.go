package catalog

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
)

// Repository reads packs, templates and offers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindPack(ctx context.Context, id int64) (*models.Pack, error)
	FindTemplate(ctx context.Context, id int64) (*models.Template, error)
	ListPacks(ctx context.Context, activeOnly bool) ([]models.Pack, error)
	ListTemplates(ctx context.Context, packID int64, activeOnly bool) ([]models.Template, error)
	ListActiveOffers(ctx context.Context, packID int64, now time.Time) ([]models.PackOffer, error)
	ListActiveOffersForPacks(ctx context.Context, packIDs []int64, now time.Time) ([]models.PackOffer, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindPack(ctx context.Context, id int64) (*models.Pack, error) {
	var pack models.Pack
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&pack).Error; err != nil {
		return nil, err
	}
	return &pack, nil
}

func (r *repository) FindTemplate(ctx context.Context, id int64) (*models.Template, error) {
	var tpl models.Template
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tpl).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *repository) ListPacks(ctx context.Context, activeOnly bool) ([]models.Pack, error) {
	query := r.db.WithContext(ctx).Model(&models.Pack{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var packs []models.Pack
	err := query.Order("sort_order ASC").Order("id ASC").Find(&packs).Error
	return packs, err
}

func (r *repository) ListTemplates(ctx context.Context, packID int64, activeOnly bool) ([]models.Template, error) {
	query := r.db.WithContext(ctx).Where("pack_id = ?", packID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var templates []models.Template
	err := query.Order("sort_order ASC").Order("id ASC").Find(&templates).Error
	return templates, err
}

func (r *repository) ListActiveOffers(ctx context.Context, packID int64, now time.Time) ([]models.PackOffer, error) {
	return r.ListActiveOffersForPacks(ctx, []int64{packID}, now)
}

// ListActiveOffersForPacks applies the inclusive [starts_at, ends_at] window at now.
func (r *repository) ListActiveOffersForPacks(ctx context.Context, packIDs []int64, now time.Time) ([]models.PackOffer, error) {
	if len(packIDs) == 0 {
		return nil, nil
	}
	var offers []models.PackOffer
	err := r.db.WithContext(ctx).
		Where("pack_id IN ?", packIDs).
		Where("is_active = ?", true).
		Where("starts_at <= ? AND ends_at >= ?", now, now).
		Order("starts_at DESC").
		Order("id DESC").
		Find(&offers).Error
	return offers, err
}
