package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// Notification is an inbox entry produced from a domain event.
type Notification struct {
	ID        int64                      `gorm:"column:id;primaryKey;autoIncrement"`
	EventID   uuid.UUID                  `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_notifications_event_audience"`
	Audience  enums.NotificationAudience `gorm:"column:audience;type:varchar(16);not null;uniqueIndex:ux_notifications_event_audience"`
	Recipient string                     `gorm:"column:recipient;type:varchar(255);not null;index"`
	OrderID   *int64                     `gorm:"column:order_id;index"`
	Type      enums.NotificationType     `gorm:"column:type;type:varchar(40);not null"`
	Title     string                     `gorm:"column:title;type:text;not null"`
	Message   string                     `gorm:"column:message;type:text;not null"`
	ReadAt    *time.Time                 `gorm:"column:read_at"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
