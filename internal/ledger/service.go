// Package ledger holds the credit accrual and consume-reset logic. The
// durable store owns atomicity; this service owns the batch fold, the
// retry policy for transient failures, and the best-effort side channels
// (receipt archival, domain events).
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pixvend/credit-ledger/internal/interfaces"
	"github.com/pixvend/credit-ledger/internal/models"
	"github.com/pixvend/credit-ledger/internal/models/events"
)

const (
	TopicCreditAccrued  = "credit_accrued"
	TopicCreditConsumed = "credit_consumed"

	// maxAttempts bounds per-record retries on ErrConflict/ErrStoreUnavailable.
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

type Service struct {
	store     interfaces.CreditStore
	publisher interfaces.EventPublisher // optional
	archive   interfaces.ArchiveSink    // optional
	unitPrice decimal.Decimal
	log       *zap.Logger
}

type Options struct {
	Publisher interfaces.EventPublisher
	Archive   interfaces.ArchiveSink
	// UnitPrice is the fixed price of one dispensable unit for ConsumeUnits.
	UnitPrice decimal.Decimal
	Logger    *zap.Logger
}

func NewService(store interfaces.CreditStore, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	return &Service{
		store:     store,
		publisher: opts.Publisher,
		archive:   opts.Archive,
		unitPrice: opts.UnitPrice,
		log:       log,
	}
}

// Accrue applies a single validated record. Returns applied=false on
// redelivery of an already-seen endToEndId, which is a success, not an
// error. Archival and event publishing happen only for newly applied
// records and never fail the accrual.
func (s *Service) Accrue(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	applied, err := s.store.Accrue(ctx, rec)
	if err != nil {
		return false, err
	}
	if !applied {
		s.log.Debug("duplicate notification ignored",
			zap.String("end_to_end_id", rec.EndToEndID),
			zap.String("txid", rec.TxID))
		return false, nil
	}

	s.archiveReceipt(ctx, rec)
	s.publish(ctx, TopicCreditAccrued, events.CreditAccrued{
		EndToEndID: rec.EndToEndID,
		TxID:       rec.TxID,
		Amount:     rec.Amount.Round(2),
		AccruedAt:  rec.Timestamp,
	})
	return true, nil
}

// ProcessBatch folds every record of one authenticated batch into the
// ledger. Batch atomicity is per item: committed records stay committed no
// matter what happens to their neighbors. Transient store failures retry
// only the failed record before counting it failed.
func (s *Service) ProcessBatch(ctx context.Context, records []models.TransactionRecord) models.BatchResult {
	var result models.BatchResult
	for _, rec := range records {
		applied, err := s.accrueWithRetry(ctx, rec)
		switch {
		case err != nil:
			result.Failed++
			s.log.Warn("record failed after retries",
				zap.String("end_to_end_id", rec.EndToEndID),
				zap.String("txid", rec.TxID),
				zap.Error(err))
		case applied:
			result.Accrued++
		default:
			result.Duplicates++
		}
	}
	return result
}

func (s *Service) accrueWithRetry(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var applied bool
		applied, err = s.Accrue(ctx, rec)
		if err == nil {
			return applied, nil
		}
		if !retryable(err) {
			return false, err
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return false, err
}

func retryable(err error) bool {
	return errors.Is(err, interfaces.ErrConflict) || errors.Is(err, interfaces.ErrStoreUnavailable)
}

// Consume atomically claims and zeroes the whole balance for txid.
func (s *Service) Consume(ctx context.Context, txid string) (decimal.Decimal, error) {
	amount, err := s.store.Consume(ctx, txid, time.Now().UTC())
	if err != nil {
		return decimal.Zero, err
	}

	s.publish(ctx, TopicCreditConsumed, events.CreditConsumed{
		TxID:       txid,
		Amount:     amount,
		ConsumedAt: time.Now().UTC(),
	})
	return amount, nil
}

// ConsumeUnits claims whole dispensable units at the configured unit price,
// leaving any remainder on the entry for the next cycle.
func (s *Service) ConsumeUnits(ctx context.Context, txid string) (int64, decimal.Decimal, error) {
	units, remainder, err := s.store.ConsumeUnits(ctx, txid, s.unitPrice, time.Now().UTC())
	if err != nil {
		return 0, decimal.Zero, err
	}

	if units > 0 {
		s.publish(ctx, TopicCreditConsumed, events.CreditConsumed{
			TxID:       txid,
			Amount:     s.unitPrice.Mul(decimal.NewFromInt(units)),
			Units:      units,
			ConsumedAt: time.Now().UTC(),
		})
	}
	return units, remainder, nil
}

// Entries returns the ledger rows for the introspection view.
func (s *Service) Entries(ctx context.Context) ([]models.CreditEntry, error) {
	return s.store.GetEntries(ctx)
}

func (s *Service) archiveReceipt(ctx context.Context, rec models.TransactionRecord) {
	if s.archive == nil {
		return
	}
	receipt := models.RawReceipt{
		EndToEndID: rec.EndToEndID,
		TxID:       rec.TxID,
		Amount:     rec.Amount.Round(2),
	}
	if err := s.archive.Archive(ctx, receipt); err != nil {
		s.log.Warn("receipt archival failed",
			zap.String("txid", rec.TxID),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, topic string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.log.Warn("event publish failed", zap.String("topic", topic), zap.Error(err))
	}
}
