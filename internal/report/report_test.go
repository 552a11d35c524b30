package report

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pixvend/credit-ledger/internal/models"
)

func TestRenderOrdersByRecency(t *testing.T) {
	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	entries := []models.CreditEntry{
		{TxID: "old", AccruedAmount: decimal.RequireFromString("1.00"), LastUpdated: base},
		{TxID: "new", AccruedAmount: decimal.RequireFromString("2.50"), LastUpdated: base.Add(time.Hour), Generation: 1, Consumed: true},
	}

	var sb strings.Builder
	require.NoError(t, Render(&sb, entries))

	out := sb.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "TXID")
	require.Contains(t, lines[1], "new")
	require.Contains(t, lines[1], "2.50")
	require.Contains(t, lines[2], "old")
}

func TestRenderEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Render(&sb, nil))
	require.Contains(t, sb.String(), "ACCRUED")
}
