package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*models.Order, error)
	FindByReference(ctx context.Context, reference uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, error)
	ListByUser(ctx context.Context, userID int64, params pagination.Params) ([]models.Order, error)
	TransitionStatus(ctx context.Context, id int64, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	MarkPaymentFailed(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	SoftDelete(ctx context.Context, id int64) (bool, error)
	FindAwaitingProofBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}
