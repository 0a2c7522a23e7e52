package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// Decision is what a reviewer concluded about one proof.
type Decision struct {
	OrderID      int64
	Outcome      enums.DecisionOutcome
	Note         string
	ValidationID int64
	Reference    uuid.UUID
	ClientEmail  string
	DecidedBy    int64
	DecidedAt    time.Time
}

// Notifier is told about every decision inside the deciding transaction, so a
// failed notification rolls the decision back.
type Notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, decision Decision) error
}
