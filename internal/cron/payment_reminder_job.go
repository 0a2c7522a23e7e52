package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/payloads"
)

const (
	defaultReminderAfter = 48 * time.Hour
	defaultReminderBatch = 100
)

type reminderOrders interface {
	FindAwaitingProofBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type reminderOutbox interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type PaymentReminderJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    reminderOrders
	Outbox    reminderOutbox
	After     time.Duration
	BatchSize int
}

// NewPaymentReminderJob nudges customers whose orders sat without a payment proof past After.
func NewPaymentReminderJob(params PaymentReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReminderAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReminderBatch
	}
	return &paymentReminderJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		after:  after,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type paymentReminderJob struct {
	logg   *logger.Logger
	db     txRunner
	orders reminderOrders
	outbox reminderOutbox
	after  time.Duration
	batch  int
	now    func() time.Time
}

func (j *paymentReminderJob) Name() string { return "payment-reminder" }

func (j *paymentReminderJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.after)
	orders, err := j.orders.FindAwaitingProofBefore(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("find orders awaiting proof: %w", err)
	}

	var errs error
	sent := 0
	for i := range orders {
		order := orders[i]
		emitted, err := j.remind(ctx, order, now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %d: %w", order.ID, err))
			continue
		}
		if emitted {
			sent++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(orders),
		"reminded":   sent,
	})
	j.logg.Info(logCtx, "payment reminders processed")
	return errs
}

// remind emits at most one reminder per order and stamps the order in the same transaction.
func (j *paymentReminderJob) remind(ctx context.Context, order models.Order, now time.Time) (bool, error) {
	var emitted bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReminder,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentReminderEvent{
				OrderID:      order.ID,
				Reference:    order.Reference,
				ClientName:   order.ClientName,
				ClientEmail:  order.ClientEmail,
				TotalAmount:  order.TotalAmount.StringFixed(2),
				Currency:     order.Currency,
				PendingHours: int(now.Sub(order.CreatedAt).Hours()),
			},
			OccurredAt: now,
		})
		if err != nil {
			return err
		}
		emitted = ok
		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("payment_reminder_sent_at", now).Error
	})
	return emitted, err
}
