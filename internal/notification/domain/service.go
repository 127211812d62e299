package domain

import (
	"context"

	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
)

type Service interface {
	// NotifyOrderPlaced sends the order confirmation and records the attempt.
	// The returned error is the delivery failure, if any.
	NotifyOrderPlaced(ctx context.Context, order orderdomain.Order) error
}

// OrderPlacedMessage is the data available to the message template.
type OrderPlacedMessage struct {
	CustomerName string
	CustomerCode string
	Item         string
	Amount       string
	Slug         string
	OrderID      string
}
