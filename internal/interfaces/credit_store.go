package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixvend/credit-ledger/internal/models"
)

var (
	// ErrNotFound is returned by consumption on a txid with no ledger entry.
	ErrNotFound = errors.New("credit entry not found")
	// ErrConflict is a retryable serialization failure; the caller should
	// retry the single record, never drop it.
	ErrConflict = errors.New("store conflict")
	// ErrStoreUnavailable is a retryable transport/availability failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CreditStore owns the durable txid -> balance mapping and the atomicity
// guarantees of accrual and consumption. Operations on the same txid are
// serialized by the store's own row primitives, not by in-process locks,
// since the service runs as multiple stateless instances.
type CreditStore interface {
	// Accrue folds one validated record into the balance for its txid.
	// Redelivery of an already-applied EndToEndID is a successful no-op
	// and reports applied=false.
	Accrue(ctx context.Context, rec models.TransactionRecord) (applied bool, err error)

	// Consume atomically captures the current balance, zeroes it and marks
	// the entry consumed. Returns ErrNotFound for an unknown txid.
	Consume(ctx context.Context, txid string, now time.Time) (decimal.Decimal, error)

	// ConsumeUnits claims floor(balance/unitPrice) whole units, deducting
	// exactly units*unitPrice and leaving the remainder on the entry.
	// Contributing applied events are flagged used. units == 0 leaves the
	// entry untouched.
	ConsumeUnits(ctx context.Context, txid string, unitPrice decimal.Decimal, now time.Time) (units int64, remainder decimal.Decimal, err error)

	GetEntry(ctx context.Context, txid string) (*models.CreditEntry, error)
	GetEntries(ctx context.Context) ([]models.CreditEntry, error)
}
