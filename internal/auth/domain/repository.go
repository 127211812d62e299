package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
}

type TokenRepository interface {
	CreateToken(ctx context.Context, token *Token) error
	GetTokenByHash(ctx context.Context, tokenHash string) (*Token, error)
	RevokeToken(ctx context.Context, tokenID snowflake.ID, revokedAt time.Time) error
}
