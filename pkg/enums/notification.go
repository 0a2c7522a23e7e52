package enums

import "fmt"

// NotificationType maps to the notification_type column.
type NotificationType string

const (
	NotificationTypePaymentApproved NotificationType = "payment_approved"
	NotificationTypePaymentRejected NotificationType = "payment_rejected"
	NotificationTypePaymentReminder NotificationType = "payment_reminder"
	NotificationTypeProofSubmitted  NotificationType = "payment_proof_submitted"
	NotificationTypeOrderStatus     NotificationType = "order_status"
	NotificationTypeOrderPlaced     NotificationType = "order_placed"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePaymentApproved,
	NotificationTypePaymentRejected,
	NotificationTypePaymentReminder,
	NotificationTypeProofSubmitted,
	NotificationTypeOrderStatus,
	NotificationTypeOrderPlaced,
}

func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

// NotificationAudience decides whose inbox receives the notification.
type NotificationAudience string

const (
	AudienceCustomer NotificationAudience = "customer"
	AudienceAdmin    NotificationAudience = "admin"
)

// DecisionOutcome is the result handed to the notifier after a review.
type DecisionOutcome string

const (
	OutcomeApproved DecisionOutcome = "approved"
	OutcomeRejected DecisionOutcome = "rejected"
)
