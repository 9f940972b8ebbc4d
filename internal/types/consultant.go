package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConsultantProfile is the KYC-gated listing a consultant account owns.
// Created pending; only an admin verify action moves it to verified, and it
// never reverts.
type ConsultantProfile struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID   uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null;column:account_id" json:"account_id"`
	Headline    string         `gorm:"column:headline" json:"headline"`
	Bio         string         `gorm:"column:bio" json:"bio"`
	HourlyRate  int64          `gorm:"not null;default:0;column:hourly_rate" json:"hourly_rate"`
	Specialties datatypes.JSON `gorm:"type:jsonb;default:'[]';column:specialties" json:"specialties"`
	Status      string         `gorm:"not null;default:'pending';column:status" json:"status"`

	Documents []*ConsultantDocument `gorm:"foreignKey:ProfileID" json:"documents,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ConsultantProfile) TableName() string {
	return "consultant_profile"
}

// ConsultantDocument is one submitted KYC document. The file body lives in
// object storage; this row only carries its key and public URL.
type ConsultantDocument struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;index;not null;column:profile_id" json:"profile_id"`
	Kind      string    `gorm:"not null;column:kind" json:"kind"`
	BucketKey string    `gorm:"not null;column:bucket_key" json:"-"`
	URL       string    `gorm:"column:url" json:"url"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ConsultantDocument) TableName() string {
	return "consultant_document"
}
