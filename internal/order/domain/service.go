package domain

import (
	"context"
	"errors"
)

// CreateOrderRequest carries decoded input. Nil fields were absent from the
// body; CustomerID and Amount keep the caller's text so validation can
// report it back.
type CreateOrderRequest struct {
	CustomerID *string
	Item       *string
	Amount     *string
	Active     *bool
}

type Service interface {
	Create(ctx context.Context, req CreateOrderRequest) (Order, error)
	GetBySlug(ctx context.Context, slug string) (Order, error)
}

// SlugLocker serialises slug assignment for the same base slug across
// processes. Release must be called once the insert has finished.
type SlugLocker interface {
	LockSlug(ctx context.Context, base string) (release func(), err error)
}

var (
	ErrNotFound        = errors.New("not_found")
	ErrSlugUnavailable = errors.New("slug_unavailable")
)
