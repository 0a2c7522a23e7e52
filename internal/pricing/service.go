package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
)

// QuoteRequest is a storefront price preview.
type QuoteRequest struct {
	PackID    int64  `json:"pack_id" validate:"required,gt=0"`
	CardModel string `json:"card_model" validate:"omitempty,oneof=white black gold"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type Service interface {
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
}

type catalogSource interface {
	FindPack(ctx context.Context, id int64) (*models.Pack, error)
	ListActiveOffers(ctx context.Context, packID int64, now time.Time) ([]models.PackOffer, error)
}

type service struct {
	catalog catalogSource
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(catalog catalogSource, logg *logger.Logger) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{catalog: catalog, logg: logg, now: time.Now}, nil
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.PackID <= 0 {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"pack_id": {"pack_id is required"}})
	}
	model, err := enums.ParseCardModel(req.CardModel)
	if err != nil {
		return nil, invalidModel("unknown card model")
	}

	pack, err := s.catalog.FindPack(ctx, req.PackID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"pack_id": {"pack does not exist"}})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pack")
	}

	now := s.now()
	offers, err := s.catalog.ListActiveOffers(ctx, pack.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offers")
	}

	quote, err := Price(Input{Pack: *pack, CardModel: model, Quantity: req.Quantity, Offers: offers, Now: now})
	if err != nil {
		return nil, err
	}
	LogIgnored(ctx, s.logg, quote)
	return quote, nil
}

// LogIgnored warns about discount offers whose value could not be parsed.
func LogIgnored(ctx context.Context, logg *logger.Logger, quote *Quote) {
	if logg == nil || quote == nil || len(quote.IgnoredOffers) == 0 {
		return
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"pack_id":        quote.PackID,
		"ignored_offers": quote.IgnoredOffers,
	})
	logg.Warn(logCtx, "discount offers with unparsable value were not applied")
}
