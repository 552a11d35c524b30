package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditEntry is one ledger row per txid. AccruedAmount carries the
// cent-rounded sum of every payment applied since the last consumption.
type CreditEntry struct {
	TxID          string
	AccruedAmount decimal.Decimal
	LastUpdated   time.Time
	Consumed      bool  // current balance already claimed
	Generation    int64 // incremented on every successful claim
}

// AppliedEvent records an endToEndId that has already been folded into the
// ledger. Its presence makes redelivery of the same notification a no-op.
type AppliedEvent struct {
	EndToEndID string
	TxID       string
	Amount     decimal.Decimal
	AppliedAt  time.Time
	Used       bool // set by unit dispensing once the event contributed to a claim
}
