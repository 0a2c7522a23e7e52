package notifications

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/tapcards-backend/pkg/db/models"
	"github.com/angelmondragon/tapcards-backend/pkg/enums"
	"github.com/angelmondragon/tapcards-backend/pkg/outbox/payloads"
)

// Build turns a decoded event payload into the inbox rows it produces.
// Unknown payloads produce nothing.
func Build(eventID uuid.UUID, payload any) []models.Notification {
	switch p := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return []models.Notification{adminRow(eventID, p.OrderID, enums.NotificationTypeOrderPlaced,
			"New order",
			fmt.Sprintf("%s ordered %d x pack %d via %s (%s %s).", p.ClientName, p.Quantity, p.PackID, p.Channel, p.TotalAmount, p.Currency))}
	case *payloads.OrderStatusChangedEvent:
		return []models.Notification{customerRow(eventID, p.ClientEmail, p.OrderID, enums.NotificationTypeOrderStatus,
			"Order update",
			statusMessage(p))}
	case *payloads.PaymentProofSubmittedEvent:
		return []models.Notification{adminRow(eventID, p.OrderID, enums.NotificationTypeProofSubmitted,
			"Payment proof to review",
			fmt.Sprintf("%s sent a payment proof of %s %s for order %s.", p.ClientName, p.AmountPaid, p.Currency, shortRef(p.Reference)))}
	case *payloads.PaymentDecidedEvent:
		return []models.Notification{decisionRow(eventID, p)}
	case *payloads.PaymentReminderEvent:
		return []models.Notification{customerRow(eventID, p.ClientEmail, p.OrderID, enums.NotificationTypePaymentReminder,
			"Payment reminder",
			fmt.Sprintf("Order %s is still waiting for your payment of %s %s. Upload your transfer receipt to start production.",
				shortRef(p.Reference), p.TotalAmount, p.Currency))}
	}
	return nil
}

func decisionRow(eventID uuid.UUID, p *payloads.PaymentDecidedEvent) models.Notification {
	ref := shortRef(p.Reference)
	if p.Outcome == enums.OutcomeApproved {
		return customerRow(eventID, p.ClientEmail, p.OrderID, enums.NotificationTypePaymentApproved,
			"Payment confirmed",
			fmt.Sprintf("Your payment for order %s was confirmed. Your cards are going into production.", ref))
	}
	message := fmt.Sprintf("Your payment proof for order %s was not accepted.", ref)
	if note := strings.TrimSpace(p.Note); note != "" {
		message += " Reason: " + note
	}
	return customerRow(eventID, p.ClientEmail, p.OrderID, enums.NotificationTypePaymentRejected, "Payment proof rejected", message)
}

func statusMessage(p *payloads.OrderStatusChangedEvent) string {
	ref := shortRef(p.Reference)
	switch p.To {
	case enums.OrderStatusInProgress:
		return fmt.Sprintf("We received your payment proof for order %s and will review it shortly.", ref)
	case enums.OrderStatusPaid:
		return fmt.Sprintf("Order %s is paid and in production.", ref)
	case enums.OrderStatusShipped:
		return fmt.Sprintf("Order %s has shipped.", ref)
	case enums.OrderStatusDelivered:
		return fmt.Sprintf("Order %s was delivered.", ref)
	case enums.OrderStatusCancelled:
		if reason := strings.TrimSpace(p.Reason); reason != "" {
			return fmt.Sprintf("Order %s was cancelled. Reason: %s", ref, reason)
		}
		return fmt.Sprintf("Order %s was cancelled.", ref)
	}
	return fmt.Sprintf("Order %s is now %s.", ref, p.To)
}

func adminRow(eventID uuid.UUID, orderID int64, kind enums.NotificationType, title, message string) models.Notification {
	return models.Notification{
		EventID:   eventID,
		Audience:  enums.AudienceAdmin,
		Recipient: AdminRecipient,
		OrderID:   orderRef(orderID),
		Type:      kind,
		Title:     title,
		Message:   message,
	}
}

func customerRow(eventID uuid.UUID, email string, orderID int64, kind enums.NotificationType, title, message string) models.Notification {
	return models.Notification{
		EventID:   eventID,
		Audience:  enums.AudienceCustomer,
		Recipient: CustomerInbox(email).Recipient,
		OrderID:   orderRef(orderID),
		Type:      kind,
		Title:     title,
		Message:   message,
	}
}

func orderRef(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}

// shortRef is the first block of the public reference, as printed on receipts.
func shortRef(ref uuid.UUID) string {
	s := ref.String()
	if i := strings.IndexByte(s, '-'); i > 0 {
		return strings.ToUpper(s[:i])
	}
	return s
}
