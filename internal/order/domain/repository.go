package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Order, error)
	// FindSlugOwner returns the lowest order id using slug.
	FindSlugOwner(ctx context.Context, db *gorm.DB, slug string) (snowflake.ID, bool, error)
}
