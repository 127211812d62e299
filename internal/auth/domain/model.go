// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	UsernameMaxLength = 150
	EmailMaxLength    = 254
	PasswordMaxLength = 128
)

// User represents an API account allowed to obtain tokens.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	Username     string       `gorm:"type:varchar(150);not null;uniqueIndex:idx_users_username"`
	Email        string       `gorm:"type:varchar(254);not null;default:''"`
	PasswordHash string       `gorm:"type:text;not null"`
	IsActive     bool         `gorm:"not null;default:true"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Token is an issued bearer token. Only the sha256 of the raw value is stored.
type Token struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index"`
	User      *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Kind      TokenKind    `gorm:"type:varchar(16);not null"`
	TokenHash string       `gorm:"column:token_hash;type:varchar(64);not null;uniqueIndex:idx_auth_tokens_token_hash"`
	ExpiresAt time.Time    `gorm:"column:expires_at;not null;index"`
	RevokedAt *time.Time   `gorm:"column:revoked_at"`
	CreatedAt time.Time    `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Token) TableName() string { return "auth_tokens" }
