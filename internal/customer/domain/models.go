package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	NameMaxLength = 255
	CodeMaxLength = 100
)

type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Code      string       `gorm:"type:varchar(100);not null;uniqueIndex:idx_customers_code" json:"code"`
	Active    bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
