package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/pricing"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
	"github.com/angelmondragon/tapcards-backend/pkg/validation"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type catalogReader interface {
	FindPack(ctx context.Context, id int64) (*models.Pack, error)
	FindTemplate(ctx context.Context, id int64) (*models.Template, error)
	ListActiveOffers(ctx context.Context, packID int64, now time.Time) ([]models.PackOffer, error)
}

type intakeMetrics interface {
	OrderCreated(channel, productKind string)
}

// Service covers order intake, reads, and the administrator-driven lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderView, error)
	Get(ctx context.Context, id int64) (*OrderView, error)
	GetForCustomer(ctx context.Context, reference uuid.UUID) (*OrderView, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	ListMine(ctx context.Context, userID int64, params pagination.Params) (*OrderList, error)
	MarkShipped(ctx context.Context, id int64, actor Actor) (*OrderView, error)
	MarkDelivered(ctx context.Context, id int64, actor Actor) (*OrderView, error)
	Cancel(ctx context.Context, id int64, actor Actor, reason string) (*OrderView, error)
	Delete(ctx context.Context, id int64, actor Actor) error
	// Transition moves order to the target status inside tx and records the change.
	Transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor *outbox.ActorRef, reason string) error
}

type service struct {
	repo    Repository
	catalog catalogReader
	files   media.Service
	tx      txRunner
	outbox  outboxPublisher
	metrics intakeMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service. metrics may be nil.
func NewService(repo Repository, catalog catalogReader, files media.Service, tx txRunner, outbox outboxPublisher, metrics intakeMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if files == nil {
		return nil, fmt.Errorf("media service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		catalog: catalog,
		files:   files,
		tx:      tx,
		outbox:  outbox,
		metrics: metrics,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Create validates the whole submission before touching storage. Files are
// written first and removed again if the order row cannot be committed.
func (s *service) Create(ctx context.Context, in CreateOrderInput) (*OrderView, error) {
	fields := validation.Struct(&in)
	unavailable := pkgerrors.FieldErrors{}

	pack, err := s.checkCatalog(ctx, in, fields, unavailable)
	if err != nil {
		return nil, err
	}

	model, modelErr := enums.ParseCardModel(strings.TrimSpace(in.CardModel))
	if modelErr != nil {
		fields.Add("card_model", "is invalid")
	}
	if pack != nil {
		if !fields.Has("quantity") {
			if err := mergeFieldErrors(fields, pricing.CheckQuantity(pack.ProductKind, in.Quantity)); err != nil {
				return nil, err
			}
		}
		if modelErr == nil {
			_, err := pricing.CardModelSurcharge(*pack, model)
			if err := mergeFieldErrors(fields, err); err != nil {
				return nil, err
			}
		}
		if in.Orientation != "" && !enums.Orientation(in.Orientation).AllowedFor(pack.ProductKind) {
			fields.Add("orientation", "must be one of: "+joinOrientations(pack.ProductKind))
		}
	}

	var uploads []*media.Checked
	for _, up := range []*media.Upload{in.Logo, in.Brief} {
		if up == nil {
			continue
		}
		checked, err := s.files.Check(*up)
		if err := mergeFieldErrors(fields, err); err != nil {
			return nil, err
		}
		if checked != nil {
			uploads = append(uploads, checked)
		}
	}

	if !fields.Empty() {
		fields.Merge(unavailable)
		return nil, pkgerrors.Validation(fields)
	}
	if !unavailable.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeCatalogUnavailable, "the selected pack or template is not available").
			WithDetails(unavailable)
	}

	now := s.now().UTC()
	offers, err := s.catalog.ListActiveOffers(ctx, pack.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offers")
	}
	quote, err := pricing.Price(pricing.Input{Pack: *pack, CardModel: model, Quantity: in.Quantity, Offers: offers, Now: now})
	if err != nil {
		return nil, err
	}
	pricing.LogIgnored(ctx, s.logg, quote)

	order := newOrder(in, pack, model, quote)

	var keys []string
	for _, checked := range uploads {
		stored, err := s.files.Store(ctx, order.Reference, checked)
		if err != nil {
			_ = s.files.Discard(ctx, keys...)
			return nil, err
		}
		keys = append(keys, stored.Key)
		key := stored.Key
		switch stored.Kind {
		case media.KindLogo:
			order.LogoPath = &key
		case media.KindBrief:
			order.BriefPath = &key
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		return s.emitCreated(ctx, tx, order, pack.ProductKind)
	})
	if err != nil {
		_ = s.files.Discard(ctx, keys...)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	if s.metrics != nil {
		s.metrics.OrderCreated(string(order.Channel), string(pack.ProductKind))
	}
	logCtx := s.logg.WithOrderID(ctx, order.ID)
	s.logg.Info(logCtx, "order created")

	return s.Get(ctx, order.ID)
}

// checkCatalog records missing references as field errors and inactive or
// mismatched ones as availability problems.
func (s *service) checkCatalog(ctx context.Context, in CreateOrderInput, fields, unavailable pkgerrors.FieldErrors) (*models.Pack, error) {
	var pack *models.Pack
	if in.PackID > 0 {
		found, err := s.catalog.FindPack(ctx, in.PackID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fields.Add("pack_id", "pack does not exist")
		case err != nil:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pack")
		default:
			pack = found
			if !found.IsActive {
				unavailable.Add("pack_id", "pack is not available")
			}
		}
	}

	if in.TemplateID != nil && *in.TemplateID > 0 {
		tpl, err := s.catalog.FindTemplate(ctx, *in.TemplateID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			fields.Add("template_id", "template does not exist")
		case err != nil:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load template")
		default:
			if !tpl.IsActive {
				unavailable.Add("template_id", "template is not available")
			}
			if pack != nil && tpl.PackID != pack.ID {
				unavailable.Add("template_id", "template does not belong to the selected pack")
			}
		}
	}
	return pack, nil
}

func newOrder(in CreateOrderInput, pack *models.Pack, model enums.CardModel, quote *pricing.Quote) *models.Order {
	order := &models.Order{
		Reference:      uuid.New(),
		PackID:         pack.ID,
		TemplateID:     in.TemplateID,
		UserID:         in.UserID,
		ClientName:     strings.TrimSpace(in.ClientName),
		ClientEmail:    strings.ToLower(strings.TrimSpace(in.ClientEmail)),
		Phone:          strings.TrimSpace(in.Phone),
		City:           strings.TrimSpace(in.City),
		Neighborhood:   trimmed(in.Neighborhood),
		Orientation:    enums.Orientation(in.Orientation),
		CardModel:      model,
		Color:          trimmed(in.Color),
		CardholderName: trimmed(in.CardholderName),
		JobTitle:       trimmed(in.JobTitle),
		BusinessName:   trimmed(in.BusinessName),
		ReviewURL:      trimmed(in.ReviewURL),
		Notes:          trimmed(in.Notes),
		Quantity:       in.Quantity,
		Channel:        enums.OrderChannel(in.Channel),
		Status:         enums.OrderStatusPending,
		PaymentStatus:  enums.PaymentStatusPending,
		Currency:       quote.Currency,
		UnitPrice:      quote.UnitPrice,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.DiscountAmount,
		TotalAmount:    quote.Total,
	}
	if quote.AppliedOffer != nil {
		offerID := quote.AppliedOffer.OfferID
		order.AppliedOfferID = &offerID
	}
	return order
}

func (s *service) Get(ctx context.Context, id int64) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	return s.view(ctx, order), nil
}

// GetForCustomer looks an order up by its public reference.
func (s *service) GetForCustomer(ctx context.Context, reference uuid.UUID) (*OrderView, error) {
	if reference == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return nil, notFoundOr(err, "load order")
	}
	view := s.view(ctx, order)
	view.User = nil
	return view, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": {"is invalid"}})
	}
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return s.list(ctx, rows, params), nil
}

func (s *service) ListMine(ctx context.Context, userID int64, params pagination.Params) (*OrderList, error) {
	if userID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": {"is invalid"}})
	}
	rows, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return s.list(ctx, rows, params), nil
}

func (s *service) list(ctx context.Context, rows []models.Order, params pagination.Params) *OrderList {
	page, next := pagination.Page(rows, params.Limit, func(o models.Order) int64 { return o.ID })
	out := &OrderList{Orders: make([]OrderView, 0, len(page)), NextCursor: next}
	for i := range page {
		out.Orders = append(out.Orders, *s.view(ctx, &page[i]))
	}
	return out
}

func (s *service) MarkShipped(ctx context.Context, id int64, actor Actor) (*OrderView, error) {
	return s.move(ctx, id, enums.OrderStatusShipped, actor, "")
}

func (s *service) MarkDelivered(ctx context.Context, id int64, actor Actor) (*OrderView, error) {
	return s.move(ctx, id, enums.OrderStatusDelivered, actor, "")
}

func (s *service) Cancel(ctx context.Context, id int64, actor Actor, reason string) (*OrderView, error) {
	return s.move(ctx, id, enums.OrderStatusCancelled, actor, strings.TrimSpace(reason))
}

func (s *service) move(ctx context.Context, id int64, to enums.OrderStatus, actor Actor, reason string) (*OrderView, error) {
	if actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.repo.WithTx(tx).FindByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "load order")
		}
		return s.Transition(ctx, tx, order, to, buildActor(actor), reason)
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, id), map[string]any{"status": to, "actor_id": actor.UserID})
	s.logg.Info(logCtx, "order status changed")
	return s.Get(ctx, id)
}

func (s *service) Transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor *outbox.ActorRef, reason string) error {
	if tx == nil || order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transition requires a transaction and an order")
	}
	at := s.now().UTC()
	from := order.Status
	updates, err := transitionUpdates(from, to, at)
	if err != nil {
		return err
	}
	changed, err := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, to, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !changed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
	}

	order.Status = to
	switch to {
	case enums.OrderStatusShipped:
		order.ShippedAt = &at
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &at
	case enums.OrderStatusCancelled:
		order.CancelledAt = &at
	case enums.OrderStatusPaid:
		order.PaymentStatus = enums.PaymentStatusPaid
	case enums.OrderStatusInProgress:
		order.PaymentStatus = enums.PaymentStatusPending
	}
	if err := s.emitStatusChanged(ctx, tx, order, from, actor, reason, at); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64, actor Actor) error {
	if actor.Role != enums.UserRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, id), map[string]any{"actor_id": actor.UserID})
	s.logg.Info(logCtx, "order deleted")
	return nil
}

// view resolves stored file keys into URLs. Unresolvable files are left out.
func (s *service) view(ctx context.Context, order *models.Order) *OrderView {
	view := ToView(*order)
	for name, key := range fileKeys(*order) {
		url, err := s.files.URL(ctx, key)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "file_key", key), "could not resolve file url")
			continue
		}
		if view.Files == nil {
			view.Files = map[string]string{}
		}
		view.Files[name] = url
	}
	return &view
}

func mergeFieldErrors(dst pkgerrors.FieldErrors, err error) error {
	if err == nil {
		return nil
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.FieldErrors() == nil {
		return err
	}
	dst.Merge(typed.FieldErrors())
	return nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func joinOrientations(kind enums.ProductKind) string {
	values := enums.OrientationsFor(kind)
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return strings.Join(out, ", ")
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
