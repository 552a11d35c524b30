package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pixvend/credit-ledger/internal/interfaces"
	"github.com/pixvend/credit-ledger/internal/models"
)

func rec(e2e, txid, amount string) models.TransactionRecord {
	return models.TransactionRecord{
		EndToEndID: e2e,
		TxID:       txid,
		Amount:     decimal.RequireFromString(amount),
		Timestamp:  time.Now().UTC(),
	}
}

func TestAccrueClearsConsumedFlag(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Accrue(ctx, rec("E1", "tx1", "5.00"))
	require.NoError(t, err)

	_, err = store.Consume(ctx, "tx1", time.Now())
	require.NoError(t, err)

	entry, err := store.GetEntry(ctx, "tx1")
	require.NoError(t, err)
	require.True(t, entry.Consumed)

	// Fresh credit after a claim reopens the entry.
	_, err = store.Accrue(ctx, rec("E2", "tx1", "2.00"))
	require.NoError(t, err)

	entry, err = store.GetEntry(ctx, "tx1")
	require.NoError(t, err)
	require.False(t, entry.Consumed)
	require.True(t, entry.AccruedAmount.Equal(decimal.RequireFromString("2.00")))
}

func TestGetEntriesReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.Accrue(ctx, rec("E1", "tx1", "5.00"))
	require.NoError(t, err)

	entries, err := store.GetEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entries[0].AccruedAmount = decimal.Zero

	entry, err := store.GetEntry(ctx, "tx1")
	require.NoError(t, err)
	require.True(t, entry.AccruedAmount.Equal(decimal.RequireFromString("5.00")))
}

func TestConsumeUnitsUnknownTxid(t *testing.T) {
	store := NewStore()

	_, _, err := store.ConsumeUnits(context.Background(), "ghost", decimal.RequireFromString("0.50"), time.Now())
	require.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestParallelAccrualAcrossTxids(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	const perTxid = 20
	var wg sync.WaitGroup
	for _, txid := range []string{"tx1", "tx2", "tx3"} {
		for i := 0; i < perTxid; i++ {
			wg.Add(1)
			go func(txid string, i int) {
				defer wg.Done()
				store.Accrue(ctx, rec(txid+"-"+string(rune('a'+i)), txid, "0.10"))
			}(txid, i)
		}
	}
	wg.Wait()

	for _, txid := range []string{"tx1", "tx2", "tx3"} {
		entry, err := store.GetEntry(ctx, txid)
		require.NoError(t, err)
		require.True(t, entry.AccruedAmount.Equal(decimal.RequireFromString("2.00")),
			"%s accrued %s", txid, entry.AccruedAmount)
	}
}
