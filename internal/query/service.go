package query

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service provides read-only access to projection tables. All
// responses include as_of_sequence: the projection watermark at read
// time, so callers can reason about freshness relative to the core.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// ErrNotFound reports a missing batch or request.
var ErrNotFound = sql.ErrNoRows

// GetBatch returns one batch's projection row.
func (s *Service) GetBatch(ctx context.Context, batchIndex int64) (*BatchResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var resp BatchResponse
	resp.AsOfSequence = asOfSeq
	err = s.db.QueryRowContext(ctx, `
		SELECT batch_index, pending_total, participant_count, settled
		FROM projections.batches
		WHERE batch_index = $1
	`, batchIndex).Scan(&resp.BatchIndex, &resp.PendingTotal, &resp.ParticipantCount, &resp.Settled)
	if err != nil {
		return nil, err
	}

	// The open batch is the highest unsettled index
	var maxIndex sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		SELECT MAX(batch_index) FROM projections.batches
	`).Scan(&maxIndex); err != nil {
		return nil, err
	}
	resp.Open = maxIndex.Valid && maxIndex.Int64 == batchIndex && !resp.Settled

	// Participant rows in insertion order — the same order settlement
	// distributes pro-rata shares.
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, requested, pending, status
		FROM projections.requests
		WHERE batch_index = $1
		ORDER BY joined_sequence
	`, batchIndex)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p BatchParticipant
		if err := rows.Scan(&p.UserID, &p.Requested, &p.Pending, &p.Status); err != nil {
			return nil, err
		}
		resp.Participants = append(resp.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetRequest returns one user's request in one batch.
func (s *Service) GetRequest(ctx context.Context, batchIndex int64, userID uuid.UUID) (*RequestResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var resp RequestResponse
	resp.UserID = userID
	resp.AsOfSequence = asOfSeq
	err = s.db.QueryRowContext(ctx, `
		SELECT batch_index, requested, pending, status
		FROM projections.requests
		WHERE batch_index = $1 AND user_id = $2
	`, batchIndex, userID).Scan(&resp.BatchIndex, &resp.Requested, &resp.Pending, &resp.Status)
	if err != nil {
		return nil, err
	}

	return &resp, nil
}

// GetLockedAmount sums a user's pending amounts across unsettled batches.
func (s *Service) GetLockedAmount(ctx context.Context, userID uuid.UUID) (*LockedAmountResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var locked int64
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(r.pending), 0)
		FROM projections.requests r
		JOIN projections.batches b ON b.batch_index = r.batch_index
		WHERE r.user_id = $1 AND NOT b.settled
	`, userID).Scan(&locked)
	if err != nil {
		return nil, err
	}

	return &LockedAmountResponse{
		UserID:       userID,
		LockedAmount: locked,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetFrontier reports the settled frontier derived from projections:
// head is the lowest unsettled index, tail one past the highest batch.
func (s *Service) GetFrontier(ctx context.Context) (*FrontierResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	var head, tail sql.NullInt64
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT MIN(batch_index) FROM projections.batches WHERE NOT settled),
			(SELECT MAX(batch_index) + 1 FROM projections.batches)
	`).Scan(&head, &tail)
	if err != nil {
		return nil, err
	}

	resp := &FrontierResponse{AsOfSequence: asOfSeq}
	if tail.Valid {
		resp.Tail = tail.Int64
	}
	if head.Valid {
		resp.Head = head.Int64
	} else {
		resp.Head = resp.Tail // everything settled
	}
	return resp, nil
}

// GetSettlementHistory returns executed fulfillments, optionally
// filtered by batch, with cursor-based pagination on sequence.
func (s *Service) GetSettlementHistory(
	ctx context.Context,
	batchIndex *int64,
	limit int,
	afterSequence *int64,
) ([]SettlementResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT fulfillment_id, batch_index, tokens_settled, fiat_disbursed,
		       payout_units, fully_closed, timestamp
		FROM projections.settlement_history
		WHERE TRUE
	`
	args := []interface{}{}
	argIdx := 1

	if batchIndex != nil {
		query += fmt.Sprintf(" AND batch_index = $%d", argIdx)
		args = append(args, *batchIndex)
		argIdx++
	}

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []SettlementResponse
	for rows.Next() {
		var h SettlementResponse
		var ts time.Time
		h.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&h.FulfillmentID, &h.BatchIndex, &h.TokensSettled, &h.FiatDisbursed,
			&h.PayoutUnits, &h.FullyClosed, &ts,
		); err != nil {
			return nil, err
		}
		h.Timestamp = ts.UnixMicro()
		history = append(history, h)
	}

	return history, rows.Err()
}

// GetJournalHistory returns journal entries touching a user's accounts.
func (s *Service) GetJournalHistory(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := fmt.Sprintf("user:%s:%%", userID)

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, asset_id, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.AssetID, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// VerifyIntegrity checks hash chain continuity and the zero-sum global
// balance invariant. Admin API.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM event_log.events e1
		LEFT JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	balanceRows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, SUM(balance) as total
		FROM projections.balances
		GROUP BY asset_id
		HAVING SUM(balance) != 0
	`)
	if err != nil {
		return nil, err
	}
	defer balanceRows.Close()

	for balanceRows.Next() {
		var assetID uint16
		var total int64
		if err := balanceRows.Scan(&assetID, &total); err != nil {
			return nil, err
		}
		report.UnbalancedAssets = append(report.UnbalancedAssets, UnbalancedAsset{
			AssetID:   assetID,
			Imbalance: total,
		})
	}
	if err := balanceRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.UnbalancedAssets) == 0
	return report, nil
}

func (s *Service) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}
