package models

import (
	"time"

	"github.com/angelmondragon/tapcards-backend/pkg/enums"
)

// User is a customer account or a back-office administrator.
type User struct {
	ID           int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Email        string         `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Name         string         `gorm:"column:name;type:varchar(160);not null"`
	Phone        *string        `gorm:"column:phone;type:varchar(40)"`
	Role         enums.UserRole `gorm:"column:role;type:varchar(16);not null;default:'customer'"`
	IsActive     bool           `gorm:"column:is_active;not null"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
