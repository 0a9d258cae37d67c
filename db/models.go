package db

import (
	"time"
)

type UserConfig struct {
	ID        uint
	Key       string `gorm:"unique;not null"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Preimage is one entry of the hash -> preimage vault. Entries are
// never deleted, redeemed or not, so lookups stay idempotent.
type Preimage struct {
	ID        uint
	Hash      string `validate:"required" gorm:"unique;not null"`
	Preimage  string `validate:"required" gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RedeemedPayment records a successfully redeemed payment for the
// history endpoint.
type RedeemedPayment struct {
	ID          uint
	PaymentHash string `gorm:"unique;not null"`
	AmountMsat  uint64
	Comment     string
	CreatedAt   time.Time
}
