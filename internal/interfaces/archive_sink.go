package interfaces

import (
	"context"

	"github.com/pixvend/credit-ledger/internal/models"
)

// ArchiveSink receives a write-once raw receipt per accepted record.
// Archival is best-effort; failures never roll back ledger accrual.
type ArchiveSink interface {
	Archive(ctx context.Context, receipt models.RawReceipt) error
}
