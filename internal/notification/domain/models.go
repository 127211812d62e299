package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Notification records one delivery attempt for an order.
type Notification struct {
	ID                snowflake.ID       `gorm:"primaryKey" json:"id"`
	Reference         string             `gorm:"type:varchar(26);not null;uniqueIndex:idx_notifications_reference" json:"reference"`
	OrderID           snowflake.ID       `gorm:"column:order_id;not null;index" json:"order_id"`
	Order             *orderdomain.Order `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	Destination       string             `gorm:"type:varchar(32);not null" json:"destination"`
	Body              string             `gorm:"type:text;not null" json:"body"`
	Provider          string             `gorm:"type:varchar(32);not null" json:"provider"`
	Status            Status             `gorm:"type:varchar(16);not null" json:"status"`
	ProviderMessageID string             `gorm:"column:provider_message_id;type:varchar(128);not null;default:''" json:"provider_message_id,omitempty"`
	Error             string             `gorm:"type:text;not null;default:''" json:"error,omitempty"`
	Response          datatypes.JSONMap  `gorm:"not null" json:"response,omitempty"`
	CreatedAt         time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
