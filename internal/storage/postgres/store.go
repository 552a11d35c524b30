package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/pixvend/credit-ledger/internal/interfaces"
	"github.com/pixvend/credit-ledger/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the ledger schema. Entries are never deleted; the txid
// history persists for reconciliation.
func (s *Store) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS credit_entries (
		txid           TEXT PRIMARY KEY,
		accrued_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
		last_updated   TIMESTAMPTZ NOT NULL,
		consumed       BOOLEAN NOT NULL DEFAULT FALSE,
		generation     BIGINT NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS applied_events (
		end_to_end_id TEXT PRIMARY KEY,
		txid          TEXT NOT NULL,
		amount        NUMERIC(14,2) NOT NULL,
		applied_at    TIMESTAMPTZ NOT NULL,
		used          BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS applied_events_txid_idx ON applied_events (txid);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}

// Accrue folds one record into the balance for its txid inside a single
// transaction. The applied_events insert doubles as the dedup guard: a
// conflict on end_to_end_id means redelivery, reported as a no-op success.
// The entry write is a conditional insert-or-update, never check-then-insert.
func (s *Store) Accrue(ctx context.Context, rec models.TransactionRecord) (applied bool, err error) {
	amount := rec.Amount.Round(2)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, classify(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO applied_events (end_to_end_id, txid, amount, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (end_to_end_id) DO NOTHING`,
		rec.EndToEndID, rec.TxID, amount, rec.Timestamp)
	if err != nil {
		return false, classify(err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	if inserted == 0 {
		// Already applied: commit nothing, report success.
		tx.Rollback()
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO credit_entries (txid, accrued_amount, last_updated, consumed)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (txid) DO UPDATE SET
			accrued_amount = credit_entries.accrued_amount + EXCLUDED.accrued_amount,
			last_updated   = EXCLUDED.last_updated,
			consumed       = FALSE`,
		rec.TxID, amount, rec.Timestamp)
	if err != nil {
		return false, classify(err)
	}

	if err = tx.Commit(); err != nil {
		return false, classify(err)
	}
	return true, nil
}

// Consume claims the whole balance in one locked statement: the CTE takes
// the row lock, the UPDATE zeroes the entry and returns the pre-reset
// balance. Two concurrent calls can never both see the same non-zero value.
func (s *Store) Consume(ctx context.Context, txid string, now time.Time) (decimal.Decimal, error) {
	const query = `
	WITH claimed AS (
		SELECT txid, accrued_amount FROM credit_entries WHERE txid = $1 FOR UPDATE
	)
	UPDATE credit_entries e
	SET accrued_amount = 0,
	    consumed       = TRUE,
	    generation     = e.generation + 1,
	    last_updated   = $2
	FROM claimed c
	WHERE e.txid = c.txid
	RETURNING c.accrued_amount`

	var balance decimal.Decimal
	err := s.db.QueryRowContext(ctx, query, txid, now).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, interfaces.ErrNotFound
	}
	if err != nil {
		return decimal.Zero, classify(err)
	}
	return balance, nil
}

// ConsumeUnits claims whole units at the given price, leaving the remainder
// on the entry. The SELECT ... FOR UPDATE serializes against concurrent
// accrual and consumption on the same txid for the duration of the
// transaction.
func (s *Store) ConsumeUnits(ctx context.Context, txid string, unitPrice decimal.Decimal, now time.Time) (units int64, remainder decimal.Decimal, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, decimal.Zero, classify(err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var balance decimal.Decimal
	err = tx.QueryRowContext(ctx,
		`SELECT accrued_amount FROM credit_entries WHERE txid = $1 FOR UPDATE`,
		txid).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		err = interfaces.ErrNotFound
		return 0, decimal.Zero, err
	}
	if err != nil {
		return 0, decimal.Zero, classify(err)
	}

	units = balance.Div(unitPrice).Floor().IntPart()
	if units == 0 {
		// Nothing dispensable; the remainder stays for the next cycle.
		tx.Rollback()
		return 0, balance, nil
	}

	remainder = balance.Sub(unitPrice.Mul(decimal.NewFromInt(units))).Round(2)

	_, err = tx.ExecContext(ctx, `
		UPDATE credit_entries
		SET accrued_amount = $2,
		    consumed       = ($2::numeric = 0),
		    generation     = generation + 1,
		    last_updated   = $3
		WHERE txid = $1`,
		txid, remainder, now)
	if err != nil {
		return 0, decimal.Zero, classify(err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE applied_events SET used = TRUE WHERE txid = $1 AND used = FALSE`,
		txid)
	if err != nil {
		return 0, decimal.Zero, classify(err)
	}

	if err = tx.Commit(); err != nil {
		return 0, decimal.Zero, classify(err)
	}
	return units, remainder, nil
}

func (s *Store) GetEntry(ctx context.Context, txid string) (*models.CreditEntry, error) {
	const query = `
	SELECT txid, accrued_amount, last_updated, consumed, generation
	FROM credit_entries WHERE txid = $1`

	var entry models.CreditEntry
	err := s.db.QueryRowContext(ctx, query, txid).Scan(
		&entry.TxID,
		&entry.AccruedAmount,
		&entry.LastUpdated,
		&entry.Consumed,
		&entry.Generation,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, classify(err)
	}
	return &entry, nil
}

func (s *Store) GetEntries(ctx context.Context) ([]models.CreditEntry, error) {
	const query = `
	SELECT txid, accrued_amount, last_updated, consumed, generation
	FROM credit_entries ORDER BY last_updated DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []models.CreditEntry
	for rows.Next() {
		var entry models.CreditEntry
		if err := rows.Scan(
			&entry.TxID,
			&entry.AccruedAmount,
			&entry.LastUpdated,
			&entry.Consumed,
			&entry.Generation,
		); err != nil {
			return nil, classify(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return entries, nil
}

// classify maps driver failures onto the retryable error taxonomy.
// Serialization and deadlock failures are conflicts; everything else is
// reported as the store being unavailable.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", interfaces.ErrConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
}

var _ interfaces.CreditStore = (*Store)(nil)
