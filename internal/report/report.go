// Package report renders the read-only introspection view of the ledger.
// It is not part of the correctness contract.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pixvend/credit-ledger/internal/models"
)

// Render writes a fixed-width table of ledger entries ordered by recency.
func Render(w io.Writer, entries []models.CreditEntry) error {
	sorted := make([]models.CreditEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LastUpdated.After(sorted[j].LastUpdated)
	})

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TXID\tACCRUED\tCONSUMED\tGENERATION\tLAST UPDATED")
	for _, e := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n",
			e.TxID,
			e.AccruedAmount.StringFixed(2),
			e.Consumed,
			e.Generation,
			e.LastUpdated.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
