package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/logger"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/registry"
)

const notificationConsumer = "inbox-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

// Consumer watches domain events and writes the matching inbox notifications.
type Consumer struct {
	repo          repository
	subscriptions []*pubsub.Subscriber
	decoders      *registry.DecoderRegistry
	idempotency   *idempotency.Manager
	logg          *logger.Logger
}

// NewDecoders registers every payload version the consumer understands.
func NewDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	registry.RegisterJSON[payloads.OrderCreatedEvent](reg, enums.EventOrderCreated, 1)
	registry.RegisterJSON[payloads.OrderStatusChangedEvent](reg, enums.EventOrderStatusChanged, 1)
	registry.RegisterJSON[payloads.PaymentProofSubmittedEvent](reg, enums.EventPaymentProofSubmitted, 1)
	registry.RegisterJSON[payloads.PaymentDecidedEvent](reg, enums.EventPaymentDecided, 1)
	registry.RegisterJSON[payloads.PaymentReminderEvent](reg, enums.EventPaymentReminder, 1)
	return reg
}

// NewConsumer builds a notification consumer reading every given subscription.
func NewConsumer(repo repository, manager *idempotency.Manager, logg *logger.Logger, subscriptions ...*pubsub.Subscriber) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	subs := make([]*pubsub.Subscriber, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if sub != nil {
			subs = append(subs, sub)
		}
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("at least one subscription required")
	}
	return &Consumer{
		repo:          repo,
		subscriptions: subs,
		decoders:      NewDecoders(),
		idempotency:   manager,
		logg:          logg,
	}, nil
}

// Run receives from every subscription until ctx is canceled or one fails.
func (c *Consumer) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		go func(sub *pubsub.Subscriber) {
			errs <- sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
				if c.process(ctx, msg).nack {
					msg.Nack()
					return
				}
				msg.Ack()
			})
		}(sub)
	}

	var first error
	for range c.subscriptions {
		if err := <-errs; err != nil && first == nil && !errors.Is(err, context.Canceled) {
			first = err
			cancel()
		}
	}
	return first
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	payload, err := c.decoders.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, eventID, payload); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}
	c.logg.Info(logCtx, "notifications written")
	return processResult{ack: true}
}

func (c *Consumer) handle(ctx context.Context, eventID uuid.UUID, payload any) error {
	for _, row := range Build(eventID, payload) {
		if row.Audience == enums.AudienceCustomer && row.Recipient == "" {
			continue
		}
		row := row
		if _, err := c.repo.Create(ctx, &row); err != nil {
			return err
		}
	}
	return nil
}
