package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	if order.Slug == "" {
		return errors.New("order slug must be assigned before insert")
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, customer_id, item, amount, active, slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.CustomerID,
		order.Item,
		order.Amount,
		order.Active,
		order.Slug,
		order.CreatedAt,
		order.UpdatedAt,
	).Error
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Preload("Customer").
		Where("slug = ?", slug).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) FindSlugOwner(ctx context.Context, db *gorm.DB, slug string) (snowflake.ID, bool, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("slug = ?", slug).
		Order("id asc").
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, false, err
	}
	if len(ids) == 0 {
		return 0, false, nil
	}
	return ids[0], true, nil
}
