// Package notification turns raw institution payloads into validated
// transaction records. One bad item never drops the rest of the batch.
package notification

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixvend/credit-ledger/internal/models"
)

// wireItem mirrors one notification item as the institution sends it.
// Amounts arrive as either a JSON number or a numeric string depending on
// the institution's payload revision; decimal handles both.
type wireItem struct {
	EndToEndID string          `json:"endToEndId"`
	TxID       string          `json:"txid"`
	PayerName  string          `json:"payerName"`
	PixKey     string          `json:"pixKey"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  string          `json:"timestamp"`
}

type wireBatch struct {
	Pix json.RawMessage `json:"pix"`
}

// ParseBatch extracts validated records from a raw batch payload, preserving
// input order. A missing or non-array "pix" field is an empty batch, not an
// error. Items missing required fields or with a non-positive amount are
// skipped and counted, never partially applied.
func ParseBatch(data []byte) (records []models.TransactionRecord, skipped int, err error) {
	var batch wireBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, 0, fmt.Errorf("decode batch payload: %w", err)
	}

	var items []json.RawMessage
	if len(batch.Pix) > 0 {
		if err := json.Unmarshal(batch.Pix, &items); err != nil {
			// Not a collection: an empty batch is valid.
			return []models.TransactionRecord{}, 0, nil
		}
	}

	records = make([]models.TransactionRecord, 0, len(items))
	for _, raw := range items {
		rec, ok := parseItem(raw)
		if !ok {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func parseItem(raw json.RawMessage) (models.TransactionRecord, bool) {
	var item wireItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return models.TransactionRecord{}, false
	}
	if item.EndToEndID == "" || item.TxID == "" {
		return models.TransactionRecord{}, false
	}
	if item.Amount.Sign() <= 0 {
		return models.TransactionRecord{}, false
	}

	// The amount is the money-bearing field; a bad clock alone does not
	// disqualify a record.
	ts, err := time.Parse(time.RFC3339, item.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}

	return models.TransactionRecord{
		EndToEndID: item.EndToEndID,
		TxID:       item.TxID,
		PayerName:  item.PayerName,
		PixKey:     item.PixKey,
		Amount:     item.Amount,
		Timestamp:  ts,
	}, true
}
