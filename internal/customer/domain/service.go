package domain

import (
	"context"
	"errors"
)

const MsgCodeTaken = "customer with this code already exists."

// CreateCustomerRequest carries decoded input. Nil fields were absent from the body.
type CreateCustomerRequest struct {
	Name   *string
	Code   *string
	Active *bool
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
