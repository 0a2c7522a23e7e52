package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

// Repository persists payment validations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, validation *models.PaymentValidation) error
	FindByID(ctx context.Context, id int64) (*models.PaymentValidation, error)
	FindPendingByOrder(ctx context.Context, orderID int64) (*models.PaymentValidation, error)
	UpdateProof(ctx context.Context, id int64, proofPath string, amount decimal.Decimal, notes *string) (bool, error)
	Decide(ctx context.Context, id int64, status enums.ValidationStatus, validatedBy int64, notes *string, at time.Time) (bool, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.PaymentValidation, error)
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

func (r *repository) Create(ctx context.Context, validation *models.PaymentValidation) error {
	return r.db.WithContext(ctx).Omit("Order", "Validator").Create(validation).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.PaymentValidation, error) {
	var validation models.PaymentValidation
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Validator").
		Where("id = ?", id).
		First(&validation).Error
	if err != nil {
		return nil, err
	}
	return &validation, nil
}

func (r *repository) FindPendingByOrder(ctx context.Context, orderID int64) (*models.PaymentValidation, error) {
	var validation models.PaymentValidation
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND validation_status = ?", orderID, enums.ValidationStatusPending).
		Order("id DESC").
		First(&validation).Error
	if err != nil {
		return nil, err
	}
	return &validation, nil
}

// UpdateProof replaces the proof of a validation that is still pending.
func (r *repository) UpdateProof(ctx context.Context, id int64, proofPath string, amount decimal.Decimal, notes *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentValidation{}).
		Where("id = ? AND validation_status = ?", id, enums.ValidationStatusPending).
		Updates(map[string]any{
			"payment_proof_path": proofPath,
			"amount_paid":        amount,
			"client_notes":       notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Decide records the ruling only while the validation is pending. Zero rows means someone decided first.
func (r *repository) Decide(ctx context.Context, id int64, status enums.ValidationStatus, validatedBy int64, notes *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentValidation{}).
		Where("id = ? AND validation_status = ?", id, enums.ValidationStatusPending).
		Updates(map[string]any{
			"validation_status": status,
			"validated_by":      validatedBy,
			"validated_at":      at,
			"admin_notes":       notes,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.PaymentValidation, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentValidation{}).Preload("Order")
	if filters.Status != nil {
		query = query.Where("validation_status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}
	var rows []models.PaymentValidation
	err = query.Order("id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error
	return rows, err
}
