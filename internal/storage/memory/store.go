// Package memory is the in-memory CreditStore used by tests and local runs.
// It honors the same per-txid serialization contract as the durable store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pixvend/credit-ledger/internal/interfaces"
	"github.com/pixvend/credit-ledger/internal/models"
)

type Store struct {
	mapMu   sync.Mutex             // protects entries, applied and muMap themselves
	muMap   map[string]*sync.Mutex // one lock per txid, operations on one txid serialize here
	entries map[string]*models.CreditEntry
	applied map[string]*models.AppliedEvent // keyed by endToEndId
}

func NewStore() *Store {
	return &Store{
		muMap:   make(map[string]*sync.Mutex),
		entries: make(map[string]*models.CreditEntry),
		applied: make(map[string]*models.AppliedEvent),
	}
}

func (s *Store) txidLock(txid string) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[txid]; !exists {
		s.muMap[txid] = &sync.Mutex{}
	}
	return s.muMap[txid]
}

func (s *Store) Accrue(ctx context.Context, rec models.TransactionRecord) (bool, error) {
	mu := s.txidLock(rec.TxID)
	mu.Lock()
	defer mu.Unlock()

	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, seen := s.applied[rec.EndToEndID]; seen {
		return false, nil
	}

	amount := rec.Amount.Round(2)
	s.applied[rec.EndToEndID] = &models.AppliedEvent{
		EndToEndID: rec.EndToEndID,
		TxID:       rec.TxID,
		Amount:     amount,
		AppliedAt:  rec.Timestamp,
	}

	entry, exists := s.entries[rec.TxID]
	if !exists {
		s.entries[rec.TxID] = &models.CreditEntry{
			TxID:          rec.TxID,
			AccruedAmount: amount,
			LastUpdated:   rec.Timestamp,
		}
		return true, nil
	}

	entry.AccruedAmount = entry.AccruedAmount.Add(amount).Round(2)
	entry.LastUpdated = rec.Timestamp
	entry.Consumed = false
	return true, nil
}

func (s *Store) Consume(ctx context.Context, txid string, now time.Time) (decimal.Decimal, error) {
	mu := s.txidLock(txid)
	mu.Lock()
	defer mu.Unlock()

	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	entry, exists := s.entries[txid]
	if !exists {
		return decimal.Zero, interfaces.ErrNotFound
	}

	balance := entry.AccruedAmount
	entry.AccruedAmount = decimal.Zero
	entry.Consumed = true
	entry.Generation++
	entry.LastUpdated = now
	return balance, nil
}

func (s *Store) ConsumeUnits(ctx context.Context, txid string, unitPrice decimal.Decimal, now time.Time) (int64, decimal.Decimal, error) {
	mu := s.txidLock(txid)
	mu.Lock()
	defer mu.Unlock()

	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	entry, exists := s.entries[txid]
	if !exists {
		return 0, decimal.Zero, interfaces.ErrNotFound
	}

	units := entry.AccruedAmount.Div(unitPrice).Floor().IntPart()
	if units == 0 {
		return 0, entry.AccruedAmount, nil
	}

	spent := unitPrice.Mul(decimal.NewFromInt(units))
	entry.AccruedAmount = entry.AccruedAmount.Sub(spent).Round(2)
	entry.Consumed = entry.AccruedAmount.IsZero()
	entry.Generation++
	entry.LastUpdated = now

	for _, ev := range s.applied {
		if ev.TxID == txid {
			ev.Used = true
		}
	}
	return units, entry.AccruedAmount, nil
}

func (s *Store) GetEntry(ctx context.Context, txid string) (*models.CreditEntry, error) {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	entry, exists := s.entries[txid]
	if !exists {
		return nil, interfaces.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *Store) GetEntries(ctx context.Context) ([]models.CreditEntry, error) {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	// Copies, so external code can't mutate internal state.
	entries := make([]models.CreditEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, *entry)
	}
	return entries, nil
}

// AppliedEvents exposes the dedup set for tests and reconciliation.
func (s *Store) AppliedEvents(txid string) []models.AppliedEvent {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	var events []models.AppliedEvent
	for _, ev := range s.applied {
		if ev.TxID == txid {
			events = append(events, *ev)
		}
	}
	return events
}

var _ interfaces.CreditStore = (*Store)(nil)
