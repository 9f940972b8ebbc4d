package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	TxnTopup          = "topup"
	TxnBookingHold    = "booking_hold"
	TxnBookingRefund  = "booking_refund"
	TxnBookingCapture = "booking_capture"
)

// Wallet holds an account's credit balance. Balance changes only happen
// inside a transaction that also appends a WalletTransaction row.
type Wallet struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;column:account_id" json:"account_id"`
	Balance   int64     `gorm:"not null;default:0;column:balance" json:"balance"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallet"
}

// WalletTransaction is the append-only ledger entry behind every balance
// change. Amount is signed: topups positive, holds negative.
type WalletTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WalletID  uuid.UUID `gorm:"type:uuid;index;not null;column:wallet_id" json:"wallet_id"`
	Amount    int64     `gorm:"not null;column:amount" json:"amount"`
	Kind      string    `gorm:"not null;column:kind" json:"kind"`
	Reference string    `gorm:"column:reference" json:"reference"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
