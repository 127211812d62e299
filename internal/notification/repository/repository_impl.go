package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, notification *domain.Notification) error {
	return db.WithContext(ctx).Omit("Order").Create(notification).Error
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
