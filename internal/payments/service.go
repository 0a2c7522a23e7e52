package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/internal/media"
	"github.com/angelmondragon/tapcards-backend/internal/orders"
	"github.com/angelmondragon/tapcards-backend/pkg/db"
	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tapcards-backend/pkg/errors"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tapcards-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderTransitioner interface {
	Transition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, actor *outbox.ActorRef, reason string) error
}

type reviewMetrics interface {
	ProofSubmitted()
	PaymentDecided(outcome string)
}

// Service runs the payment proof workflow.
type Service interface {
	SubmitProof(ctx context.Context, input SubmitProofInput) (*ValidationView, error)
	Approve(ctx context.Context, input DecisionInput) (*ValidationView, error)
	Reject(ctx context.Context, input DecisionInput) (*ValidationView, error)
	Get(ctx context.Context, id int64) (*ValidationView, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ValidationList, error)
}

type service struct {
	repo      Repository
	orders    orders.Repository
	lifecycle orderTransitioner
	files     media.Service
	tx        txRunner
	outbox    outboxPublisher
	notifier  Notifier
	metrics   reviewMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the workflow. metrics may be nil.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	lifecycle orderTransitioner,
	files media.Service,
	tx txRunner,
	outbox outboxPublisher,
	notifier Notifier,
	metrics reviewMetrics,
	logg *logger.Logger,
) (Service, error) {
	switch {
	case repo == nil:
		return nil, fmt.Errorf("payments repository required")
	case ordersRepo == nil:
		return nil, fmt.Errorf("orders repository required")
	case lifecycle == nil:
		return nil, fmt.Errorf("order lifecycle required")
	case files == nil:
		return nil, fmt.Errorf("media service required")
	case tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	case notifier == nil:
		return nil, fmt.Errorf("notifier required")
	case logg == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		orders:    ordersRepo,
		lifecycle: lifecycle,
		files:     files,
		tx:        tx,
		outbox:    outbox,
		notifier:  notifier,
		metrics:   metrics,
		logg:      logg,
		now:       time.Now,
	}, nil
}

// SubmitProof stores the file, then records it against the order's pending
// validation (or a new one) and moves a pending order to in_progress.
func (s *service) SubmitProof(ctx context.Context, in SubmitProofInput) (*ValidationView, error) {
	fields := pkgerrors.FieldErrors{}
	if in.Proof == nil {
		fields.Add("payment_proof", "is required")
	}
	if in.AmountPaid != nil && in.AmountPaid.IsNegative() {
		fields.Add("amount_paid", "must not be negative")
	}

	order, err := s.loadOrder(ctx, s.orders, in.OrderID, in.Reference)
	if err != nil {
		return nil, err
	}
	if err := checkAcceptsProof(order); err != nil {
		return nil, err
	}

	var checked *media.Checked
	if in.Proof != nil {
		proof := *in.Proof
		if proof.Kind == "" {
			proof.Kind = media.KindPaymentProof
		}
		if proof.Field == "" {
			proof.Field = "payment_proof"
		}
		checked, err = s.files.Check(proof)
		if typed := pkgerrors.As(err); typed != nil && typed.FieldErrors() != nil {
			fields.Merge(typed.FieldErrors())
		} else if err != nil {
			return nil, err
		}
	}
	if !fields.Empty() {
		return nil, pkgerrors.Validation(fields)
	}

	amount := order.TotalAmount
	if in.AmountPaid != nil {
		amount = in.AmountPaid.Round(2)
	}
	notes := trimmed(in.ClientNotes)

	stored, err := s.files.Store(ctx, order.Reference, checked)
	if err != nil {
		return nil, err
	}

	var (
		validationID int64
		replacedKey  string
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)

		current, err := ordersRepo.FindByIDForUpdate(ctx, order.ID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		if err := checkAcceptsProof(current); err != nil {
			return err
		}

		pending, err := repo.FindPendingByOrder(ctx, current.ID)
		switch {
		case err == nil:
			updated, err := repo.UpdateProof(ctx, pending.ID, stored.Key, amount, notes)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace payment proof")
			}
			if !updated {
				return pkgerrors.New(pkgerrors.CodeAlreadyDecided, "payment validation was decided while uploading")
			}
			validationID = pending.ID
			replacedKey = pending.PaymentProofPath
		case errors.Is(err, gorm.ErrRecordNotFound):
			validation := &models.PaymentValidation{
				OrderID:          current.ID,
				AmountPaid:       amount,
				ClientNotes:      notes,
				PaymentProofPath: stored.Key,
				ValidationStatus: enums.ValidationStatusPending,
			}
			if err := repo.Create(ctx, validation); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.New(pkgerrors.CodeStateConflict, "another payment proof is being submitted for this order")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment validation")
			}
			validationID = validation.ID
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending validation")
		}

		actor := actorRef(in.Actor)
		if current.Status == enums.OrderStatusPending {
			if err := s.lifecycle.Transition(ctx, tx, current, enums.OrderStatusInProgress, actor, "payment proof submitted"); err != nil {
				return err
			}
		}
		updates := map[string]any{
			"payment_screenshot_path": stored.Key,
			"payment_status":          enums.PaymentStatusPending,
		}
		if err := ordersRepo.Update(ctx, current.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach proof to order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentProofSubmitted,
			AggregateType: enums.AggregatePaymentValidation,
			AggregateID:   validationID,
			Actor:         actor,
			Data: payloads.PaymentProofSubmittedEvent{
				OrderID:      current.ID,
				Reference:    current.Reference,
				ValidationID: validationID,
				ClientName:   current.ClientName,
				ClientEmail:  current.ClientEmail,
				AmountPaid:   amount.StringFixed(2),
				Currency:     current.Currency,
			},
		})
	})
	if err != nil {
		_ = s.files.Discard(ctx, stored.Key)
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit payment proof")
	}
	if replacedKey != "" && replacedKey != stored.Key {
		_ = s.files.Discard(ctx, replacedKey)
	}

	if s.metrics != nil {
		s.metrics.ProofSubmitted()
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID), map[string]any{"validation_id": validationID})
	s.logg.Info(logCtx, "payment proof submitted")

	return s.Get(ctx, validationID)
}

func (s *service) Approve(ctx context.Context, in DecisionInput) (*ValidationView, error) {
	return s.decide(ctx, in, enums.ValidationStatusApproved)
}

// Reject requires a reason. The order keeps its status and its payment is marked failed.
func (s *service) Reject(ctx context.Context, in DecisionInput) (*ValidationView, error) {
	if trimmed(in.Notes) == nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"admin_notes": {"is required when rejecting a payment"}})
	}
	return s.decide(ctx, in, enums.ValidationStatusRejected)
}

func (s *service) decide(ctx context.Context, in DecisionInput, status enums.ValidationStatus) (*ValidationView, error) {
	if in.Actor.Role != enums.UserRoleAdmin || in.Actor.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	if in.ValidationID <= 0 {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"validation_id": {"is required"}})
	}
	notes := trimmed(in.Notes)
	outcome := enums.OutcomeApproved
	if status == enums.ValidationStatusRejected {
		outcome = enums.OutcomeRejected
	}

	var orderID int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		validation, err := repo.FindByID(ctx, in.ValidationID)
		if err != nil {
			return notFoundOr(err, "payment validation not found", "load payment validation")
		}
		if validation.ValidationStatus.IsDecided() {
			return alreadyDecided(validation.ValidationStatus)
		}

		order, err := s.orders.WithTx(tx).FindByIDForUpdate(ctx, validation.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "lock order")
		}
		orderID = order.ID
		if status == enums.ValidationStatusApproved && order.Status != enums.OrderStatusInProgress {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be marked paid from "+string(order.Status)).
				WithDetails(map[string]any{"status": order.Status})
		}

		at := s.now().UTC()
		decided, err := repo.Decide(ctx, validation.ID, status, in.Actor.UserID, notes, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record decision")
		}
		if !decided {
			return alreadyDecided("")
		}

		actor := actorRef(in.Actor)
		if status == enums.ValidationStatusApproved {
			if err := s.lifecycle.Transition(ctx, tx, order, enums.OrderStatusPaid, actor, "payment approved"); err != nil {
				return err
			}
		} else {
			failed, err := s.orders.WithTx(tx).MarkPaymentFailed(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
			}
			if !failed {
				s.logg.Warn(s.logg.WithOrderID(ctx, order.ID), "order no longer awaits payment; leaving payment status unchanged")
			}
		}

		note := ""
		if notes != nil {
			note = *notes
		}
		if err := s.notifier.Notify(ctx, tx, Decision{
			OrderID:      order.ID,
			Outcome:      outcome,
			Note:         note,
			ValidationID: validation.ID,
			Reference:    order.Reference,
			ClientEmail:  order.ClientEmail,
			DecidedBy:    in.Actor.UserID,
			DecidedAt:    at,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "notify decision")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decide payment validation")
	}

	if s.metrics != nil {
		s.metrics.PaymentDecided(string(outcome))
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID), map[string]any{
		"validation_id": in.ValidationID,
		"outcome":       outcome,
		"actor_id":      in.Actor.UserID,
	})
	s.logg.Info(logCtx, "payment validation decided")

	return s.Get(ctx, in.ValidationID)
}

func (s *service) Get(ctx context.Context, id int64) (*ValidationView, error) {
	validation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "payment validation not found", "load payment validation")
	}
	view := s.view(ctx, *validation)
	return &view, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ValidationList, error) {
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Validation(pkgerrors.FieldErrors{"cursor": {"is invalid"}})
	}
	rows, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment validations")
	}
	page, next := pagination.Page(rows, params.Limit, func(v models.PaymentValidation) int64 { return v.ID })
	out := &ValidationList{Validations: make([]ValidationView, 0, len(page)), NextCursor: next}
	for _, v := range page {
		out.Validations = append(out.Validations, s.view(ctx, v))
	}
	return out, nil
}

func (s *service) view(ctx context.Context, v models.PaymentValidation) ValidationView {
	view := toView(v)
	if v.PaymentProofPath != "" {
		url, err := s.files.URL(ctx, v.PaymentProofPath)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "file_key", v.PaymentProofPath), "could not resolve proof url")
		} else {
			view.ProofURL = url
		}
	}
	return view
}

func (s *service) loadOrder(ctx context.Context, repo orders.Repository, id int64, reference uuid.UUID) (*models.Order, error) {
	var (
		order *models.Order
		err   error
	)
	switch {
	case id > 0:
		order, err = repo.FindByID(ctx, id)
	case reference != uuid.Nil:
		order, err = repo.FindByReference(ctx, reference)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, notFoundOr(err, "order not found", "load order")
	}
	return order, nil
}

// checkAcceptsProof allows uploads until a payment has been approved.
func checkAcceptsProof(order *models.Order) error {
	switch order.Status {
	case enums.OrderStatusPending, enums.OrderStatusInProgress:
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order no longer accepts payment proofs").
		WithDetails(map[string]any{"status": order.Status})
}

func alreadyDecided(status enums.ValidationStatus) error {
	err := pkgerrors.New(pkgerrors.CodeAlreadyDecided, "payment validation already decided")
	if status != "" {
		err = err.WithDetails(map[string]any{"validation_status": status})
	}
	return err
}

func actorRef(actor orders.Actor) *outbox.ActorRef {
	if actor.UserID == 0 && actor.Role == "" {
		return nil
	}
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}

func notFoundOr(err error, notFound, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
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
