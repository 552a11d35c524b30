package notification

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseBatchSkipsBadItems(t *testing.T) {
	payload := []byte(`{"pix":[
		{"endToEndId":"E1","txid":"tx1","payerName":"Ana","pixKey":"k1","amount":10.50,"timestamp":"2026-01-02T10:00:00Z"},
		{"endToEndId":"E2","txid":"tx1","payerName":"Bia","pixKey":"k1","amount":"3.25","timestamp":"2026-01-02T10:01:00Z"},
		{"endToEndId":"E3","txid":"tx2","payerName":"Caio","pixKey":"k1","timestamp":"2026-01-02T10:02:00Z"},
		{"endToEndId":"E4","txid":"tx2","payerName":"Davi","pixKey":"k1","amount":-1,"timestamp":"2026-01-02T10:03:00Z"},
		{"endToEndId":"E5","txid":"tx3","payerName":"Eva","pixKey":"k1","amount":0.05,"timestamp":"2026-01-02T10:04:00Z"}
	]}`)

	records, skipped, err := ParseBatch(payload)
	require.NoError(t, err)
	require.Equal(t, 2, skipped) // E3 has no amount, E4 is non-positive
	require.Len(t, records, 3)

	// Input order preserved, string amount accepted.
	require.Equal(t, "E1", records[0].EndToEndID)
	require.Equal(t, "E2", records[1].EndToEndID)
	require.Equal(t, "E5", records[2].EndToEndID)
	require.True(t, records[1].Amount.Equal(decimal.RequireFromString("3.25")))
}

func TestParseBatchRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		skipped int
	}{
		{"missing endToEndId", `{"pix":[{"txid":"tx1","amount":1}]}`, 1},
		{"missing txid", `{"pix":[{"endToEndId":"E1","amount":1}]}`, 1},
		{"zero amount", `{"pix":[{"endToEndId":"E1","txid":"tx1","amount":0}]}`, 1},
		{"item not an object", `{"pix":[42]}`, 1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			records, skipped, err := ParseBatch([]byte(c.payload))
			require.NoError(t, err)
			require.Empty(t, records)
			require.Equal(t, c.skipped, skipped)
		})
	}
}

func TestParseBatchEmptyOrAbsentArray(t *testing.T) {
	for _, payload := range []string{`{}`, `{"pix":[]}`, `{"pix":null}`, `{"pix":"not-a-list"}`, `{"pix":{"a":1}}`} {
		records, skipped, err := ParseBatch([]byte(payload))
		require.NoError(t, err)
		require.Empty(t, records)
		require.Zero(t, skipped)
	}
}

func TestParseBatchRejectsUndecodablePayload(t *testing.T) {
	_, _, err := ParseBatch([]byte(`not json`))
	require.Error(t, err)
}

func TestParseBatchTimestampFallback(t *testing.T) {
	records, skipped, err := ParseBatch([]byte(
		`{"pix":[{"endToEndId":"E1","txid":"tx1","amount":2,"timestamp":"yesterday-ish"}]}`))
	require.NoError(t, err)
	require.Zero(t, skipped)
	require.Len(t, records, 1)
	require.WithinDuration(t, time.Now().UTC(), records[0].Timestamp, 5*time.Second)
}
