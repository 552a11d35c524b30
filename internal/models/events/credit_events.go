package events

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreditAccrued struct {
	EndToEndID string          `json:"end_to_end_id"`
	TxID       string          `json:"txid"`
	Amount     decimal.Decimal `json:"amount"`
	AccruedAt  time.Time       `json:"accrued_at"`
}

type CreditConsumed struct {
	TxID       string          `json:"txid"`
	Amount     decimal.Decimal `json:"amount"`
	Units      int64           `json:"units,omitempty"`
	ConsumedAt time.Time       `json:"consumed_at"`
}
