package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord represents one validated inbound payment notification.
type TransactionRecord struct {
	EndToEndID string          // settlement-network identifier, unique per payment event
	TxID       string          // merchant correlation key, the ledger's grouping key
	PayerName  string
	PixKey     string          // receiving key the payment was addressed to
	Amount     decimal.Decimal // always > 0 for a validated record
	Timestamp  time.Time
}
