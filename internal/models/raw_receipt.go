package models

import "github.com/shopspring/decimal"

// RawReceipt is the write-once archival blob emitted per accepted record.
// It is never read back by the ledger; it exists for audit and replay.
type RawReceipt struct {
	EndToEndID string          `json:"endToEndId"`
	TxID       string          `json:"txid"`
	Amount     decimal.Decimal `json:"amount"`
}
