package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Pack", "Template", "User", "PaymentValidations").Create(order).Error
}

func (r *repository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Pack").
		Preload("Template").
		Preload("User").
		Preload("PaymentValidations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC").Order("id DESC")
		})
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.withRelations(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate reads the bare order row, holding a row lock on Postgres until the
// surrounding transaction ends. SQLite serializes writers on its own.
func (r *repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector != nil && r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByReference(ctx context.Context, reference uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.withRelations(ctx).Where("reference = ?", reference).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns newest orders first, one row past the page size so callers can build the cursor.
func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Pack")
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filters.PaymentStatus)
	}
	if filters.Channel != nil {
		query = query.Where("channel = ?", *filters.Channel)
	}
	if filters.PackID != nil {
		query = query.Where("pack_id = ?", *filters.PackID)
	}
	if filters.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filters.CreatedFrom)
	}
	if filters.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filters.CreatedTo)
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where(
			"LOWER(client_name) LIKE ? OR LOWER(client_email) LIKE ? OR phone LIKE ? OR LOWER(city) LIKE ?",
			like, like, "%"+q+"%", like,
		)
	}
	return r.page(query, params)
}

func (r *repository) ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Pack").Where("user_id = ?", userID)
	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor > 0 {
		query = query.Where("id < ?", cursor)
	}
	var rows []models.Order
	err = query.Order("id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error
	return rows, err
}

// TransitionStatus moves the order only while it is still in from. It reports whether a row changed.
func (r *repository) TransitionStatus(ctx context.Context, id int64, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPaymentFailed flags the payment as failed only while the order still awaits a
// decision (in_progress with a pending payment). It reports whether a row changed.
func (r *repository) MarkPaymentFailed(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND payment_status = ?", id, enums.OrderStatusInProgress, enums.PaymentStatusPending).
		Update("payment_status", enums.PaymentStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates).Error
}

func (r *repository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindAwaitingProofBefore lists pending orders created before cutoff that were never reminded.
func (r *repository) FindAwaitingProofBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("payment_reminder_sent_at IS NULL").
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
