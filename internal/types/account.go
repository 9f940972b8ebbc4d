package types

import (
	"time"

	"github.com/google/uuid"
)

// Account is the local identity record behind every marketplace principal
// except admins. SubjectID is the external identity provider's stable id;
// it stays nil until the account is linked on first token login, and once
// set it is never rewritten.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID *string   `gorm:"uniqueIndex;column:subject_id" json:"-"`
	Email     string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	FirstName string    `gorm:"column:first_name" json:"first_name"`
	LastName  string    `gorm:"column:last_name" json:"last_name"`
	Role      string    `gorm:"not null;default:'user';column:role" json:"role"`
	Verified  bool      `gorm:"not null;default:false;column:verified" json:"verified"`

	AvatarBucketKey string `gorm:"column:avatar_bucket_key" json:"-"`
	AvatarURL       string `gorm:"column:avatar_url" json:"avatar_url"`

	// One-time credentials for enterprise members who have not yet signed
	// in through the identity provider. Cleared after first login.
	TempUsername string `gorm:"column:temp_username" json:"-"`
	TempPassword string `gorm:"column:temp_password" json:"-"`
	InviteToken  string `gorm:"index;column:invite_token" json:"-"`

	ConsultantProfile *ConsultantProfile `gorm:"foreignKey:AccountID" json:"consultant_profile,omitempty"`
	Wallet            *Wallet            `gorm:"foreignKey:AccountID" json:"wallet,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
