package projection

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"RedeemLedger/internal/observability"
)

// ProjectionOutput mirrors the data needed by projection workers.
// The orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence   int64
	EventType  string
	BatchIndex *int64
	Head       int64
	Tail       int64
	Journals   []JournalEntry
	Settlement *SettlementRecord
	Timestamp  int64
}

// JournalEntry is a simplified journal for projection consumption.
type JournalEntry struct {
	DebitAccount  string
	CreditAccount string
	AssetID       uint16
	Amount        int64
	JournalType   int32
}

// Journal types mirrored from the ledger package; projections consume
// the int32 wire value.
const (
	journalEscrowIn     int32 = 0
	journalEscrowReturn int32 = 1
	journalBurn         int32 = 2
)

// SettlementRecord is the queryable outcome of one fulfillment.
type SettlementRecord struct {
	FulfillmentID string
	Batch         int64
	TokensSettled int64
	FiatDisbursed int64
	PayoutUnits   int64
	FullyClosed   bool
	Timestamp     time.Time
}

// Worker updates projection tables from processed commands. The
// projection channel is non-blocking with drop: if projections fall
// behind, they are rebuilt from the event log.
type Worker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	lastSeq   int64
	metrics   *observability.Metrics
	log       zerolog.Logger
}

func NewWorker(db *sql.DB, inputChan <-chan ProjectionOutput, metrics *observability.Metrics, log zerolog.Logger) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		metrics:   metrics,
		log:       log,
	}
}

// Run starts the projection worker loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-w.inputChan:
			if !ok {
				return nil
			}

			start := time.Now()
			if err := w.processOutput(ctx, output); err != nil {
				// Continue — projections are eventually consistent and
				// rebuildable from the event log
				w.log.Warn().Int64("sequence", output.Sequence).Err(err).
					Msg("projection update failed")
			}
			w.lastSeq = output.Sequence

			if w.metrics != nil {
				w.metrics.ProjectionUpdateDur.WithLabelValues("main").
					Observe(time.Since(start).Seconds())
				w.metrics.ProjectionLastSeq.Set(float64(output.Sequence))
			}
		}
	}
}

func (w *Worker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range output.Journals {
		if err := w.updateBalanceProjection(ctx, tx, j, output.Sequence); err != nil {
			return fmt.Errorf("balance projection: %w", err)
		}
	}

	if err := w.updateQueueProjections(ctx, tx, output); err != nil {
		return fmt.Errorf("queue projection: %w", err)
	}

	if output.Settlement != nil {
		if err := insertSettlementHistory(ctx, tx, output.Sequence, output.Settlement); err != nil {
			return fmt.Errorf("settlement history: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// updateBalanceProjection applies one journal entry. Sign convention
// matches the in-core tracker: debit increases, credit decreases.
func (w *Worker) updateBalanceProjection(ctx context.Context, tx *sql.Tx, j JournalEntry, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance + $3, last_sequence = $4
	`, j.DebitAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		VALUES ($1, $2, -$3, $4)
		ON CONFLICT (account_path, asset_id)
		DO UPDATE SET balance = projections.balances.balance - $3, last_sequence = $4
	`, j.CreditAccount, j.AssetID, j.Amount, seq); err != nil {
		return err
	}

	return nil
}

// updateQueueProjections maintains the batches and requests tables
// from the typed event and its journal entries.
func (w *Worker) updateQueueProjections(ctx context.Context, tx *sql.Tx, output ProjectionOutput) error {
	switch output.EventType {
	case "BatchOpened":
		if output.BatchIndex == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO projections.batches (batch_index, pending_total, participant_count, settled, last_sequence)
			VALUES ($1, 0, 0, FALSE, $2)
			ON CONFLICT (batch_index) DO NOTHING
		`, *output.BatchIndex, output.Sequence); err != nil {
			return err
		}

	case "RedemptionRequested":
		if output.BatchIndex == nil {
			return nil
		}
		for _, j := range output.Journals {
			if j.JournalType != journalEscrowIn {
				continue
			}
			userID, ok := userFromEscrowPath(j.DebitAccount)
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO projections.requests (batch_index, user_id, requested, pending, status, joined_sequence, last_sequence)
				VALUES ($1, $2, $3, $3, 'pending', $4, $4)
				ON CONFLICT (batch_index, user_id) DO UPDATE
					SET requested = $3, pending = $3, status = 'pending', last_sequence = $4
			`, *output.BatchIndex, userID, j.Amount, output.Sequence); err != nil {
				return err
			}
		}

	case "RedemptionCancelled":
		if output.BatchIndex == nil {
			return nil
		}
		for _, j := range output.Journals {
			if j.JournalType != journalEscrowReturn {
				continue
			}
			userID, ok := userFromEscrowPath(j.CreditAccount)
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE projections.requests
				SET pending = 0, status = 'cancelled', last_sequence = $3
				WHERE batch_index = $1 AND user_id = $2
			`, *output.BatchIndex, userID, output.Sequence); err != nil {
				return err
			}
		}

	case "FulfillBatch":
		if output.BatchIndex == nil {
			return nil
		}
		for _, j := range output.Journals {
			if j.JournalType != journalBurn {
				continue
			}
			userID, ok := userFromEscrowPath(j.CreditAccount)
			if !ok {
				continue
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE projections.requests
				SET pending = pending - $3,
				    status = CASE WHEN pending - $3 <= 0 THEN 'settled' ELSE 'partial' END,
				    last_sequence = $4
				WHERE batch_index = $1 AND user_id = $2
			`, *output.BatchIndex, userID, j.Amount, output.Sequence); err != nil {
				return err
			}
		}
	}

	// Recompute batch aggregates and the settled flag from the frontier
	if output.BatchIndex != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE projections.batches
			SET pending_total = COALESCE((
			        SELECT SUM(pending) FROM projections.requests WHERE batch_index = $1
			    ), 0),
			    participant_count = COALESCE((
			        SELECT COUNT(*) FROM projections.requests WHERE batch_index = $1
			    ), 0),
			    last_sequence = $2
			WHERE batch_index = $1
		`, *output.BatchIndex, output.Sequence); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE projections.batches SET settled = (batch_index < $1)
	`, output.Head); err != nil {
		return err
	}

	return nil
}

// userFromEscrowPath extracts the user UUID from an account path like
// "user:3f2a...:escrow:RWAF".
func userFromEscrowPath(path string) (string, bool) {
	parts := strings.Split(path, ":")
	if len(parts) != 4 || parts[0] != "user" || parts[2] != "escrow" {
		return "", false
	}
	return parts[1], true
}

// RebuildBalances rebuilds the balance projection from the event log.
func RebuildBalances(ctx context.Context, db *sql.DB, log zerolog.Logger) error {
	statements := []string{
		`TRUNCATE projections.balances`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Debits increase, credits decrease
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, asset_id, balance, last_sequence)
		SELECT account_path, asset_id, SUM(delta), MAX(sequence)
		FROM (
			SELECT debit_account AS account_path, asset_id, amount AS delta, sequence
			FROM event_log.journal
			UNION ALL
			SELECT credit_account AS account_path, asset_id, -amount AS delta, sequence
			FROM event_log.journal
		) legs
		GROUP BY account_path, asset_id
	`)
	if err != nil {
		return fmt.Errorf("rebuild balances: %w", err)
	}

	log.Info().Msg("projection rebuild complete")
	return nil
}
