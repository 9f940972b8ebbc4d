package types

import (
	"time"

	"github.com/google/uuid"
)

// Admin is the operator-console principal. It has an independent lifecycle
// from Account: created by admin signup, authenticated by password, never
// provisioned from an identity-provider token.
type Admin struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	DisplayName  string    `gorm:"column:display_name" json:"display_name"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (Admin) TableName() string {
	return "admin"
}
