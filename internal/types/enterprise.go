package types

import (
	"time"

	"github.com/google/uuid"
)

// Enterprise is an organization owned by one account, with member accounts
// attached through EnterpriseMember rows. Same pending/verified lifecycle
// as consultant profiles.
type Enterprise struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerAccountID uuid.UUID `gorm:"type:uuid;index;not null;column:owner_account_id" json:"owner_account_id"`
	Name           string    `gorm:"not null;column:name" json:"name"`
	Status         string    `gorm:"not null;default:'pending';column:status" json:"status"`

	Members []*EnterpriseMember `gorm:"foreignKey:EnterpriseID" json:"members,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Enterprise) TableName() string {
	return "enterprise"
}

type EnterpriseMember struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EnterpriseID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_enterprise_account;not null;column:enterprise_id" json:"enterprise_id"`
	AccountID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_enterprise_account;not null;column:account_id" json:"account_id"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

func (EnterpriseMember) TableName() string {
	return "enterprise_member"
}
