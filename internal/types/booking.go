package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// Booking is a paid session between a user and a verified consultant.
// CreditCost is captured from the consultant's hourly rate at creation so
// later rate changes do not reprice existing bookings.
type Booking struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID      `gorm:"type:uuid;index;not null;column:account_id" json:"account_id"`
	ConsultantID uuid.UUID      `gorm:"type:uuid;index;not null;column:consultant_id" json:"consultant_id"`
	StartsAt     time.Time      `gorm:"not null;column:starts_at" json:"starts_at"`
	EndsAt       time.Time      `gorm:"not null;column:ends_at" json:"ends_at"`
	CreditCost   int64          `gorm:"not null;column:credit_cost" json:"credit_cost"`
	Status       string         `gorm:"not null;default:'pending';column:status" json:"status"`
	Notes        datatypes.JSON `gorm:"type:jsonb;default:'{}';column:notes" json:"notes"`
	CreatedAt    time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string {
	return "booking"
}
