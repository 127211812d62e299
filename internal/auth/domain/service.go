package domain

import (
	"context"
	"time"
)

const MsgUsernameTaken = "A user with that username already exists."

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*User, error)
	ObtainPair(ctx context.Context, req ObtainPairRequest) (*TokenPair, error)
	Refresh(ctx context.Context, rawRefresh string) (*AccessToken, error)
	Authenticate(ctx context.Context, rawAccess string) (*User, error)
}

// SignupRequest carries decoded input. Nil fields were absent from the body.
type SignupRequest struct {
	Username *string
	Password *string
	Email    *string
}

type ObtainPairRequest struct {
	Username *string
	Password *string
}

type AccessToken struct {
	Access    string    `json:"access"`
	ExpiresAt time.Time `json:"-"`
}

type TokenPair struct {
	AccessToken
	Refresh          string    `json:"refresh"`
	RefreshExpiresAt time.Time `json:"-"`
}
