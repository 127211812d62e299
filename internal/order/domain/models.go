package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/slugify"
)

const (
	ItemMaxLength = 255
	SlugMaxLength = slugify.MaxLength

	AmountMaxDigits     = 10
	AmountDecimalPlaces = 2
)

// Order is a purchase placed by a customer. Slug is assigned once before the
// first insert and never recomputed.
type Order struct {
	ID         snowflake.ID             `gorm:"primaryKey" json:"id"`
	CustomerID snowflake.ID             `gorm:"column:customer_id;not null;index" json:"customer"`
	Customer   *customerdomain.Customer `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
	Item       string                   `gorm:"type:varchar(255);not null" json:"item"`
	Amount     decimal.Decimal          `gorm:"type:numeric(10,2);not null" json:"amount"`
	Active     bool                     `gorm:"not null;default:true" json:"active"`
	Slug       string                   `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_slug" json:"slug"`
	CreatedAt  time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time                `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }
