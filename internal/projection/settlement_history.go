package projection

import (
	"context"
	"database/sql"
)

func insertSettlementHistory(ctx context.Context, tx *sql.Tx, sequence int64, rec *SettlementRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.settlement_history
			(fulfillment_id, batch_index, tokens_settled, fiat_disbursed, payout_units, fully_closed, timestamp, sequence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fulfillment_id) DO NOTHING
	`, rec.FulfillmentID, rec.Batch, rec.TokensSettled, rec.FiatDisbursed,
		rec.PayoutUnits, rec.FullyClosed, rec.Timestamp, sequence)
	return err
}

// SettlementHistoryReader serves settlement history queries from the
// projection table.
type SettlementHistoryReader struct {
	db *sql.DB
}

func NewSettlementHistoryReader(db *sql.DB) *SettlementHistoryReader {
	return &SettlementHistoryReader{db: db}
}

// ByBatch returns settlements executed against one batch, oldest first.
func (r *SettlementHistoryReader) ByBatch(ctx context.Context, batch int64, limit int) ([]SettlementRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fulfillment_id, batch_index, tokens_settled, fiat_disbursed, payout_units, fully_closed, timestamp
		FROM projections.settlement_history
		WHERE batch_index = $1
		ORDER BY sequence ASC
		LIMIT $2
	`, batch, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SettlementRecord
	for rows.Next() {
		var rec SettlementRecord
		if err := rows.Scan(&rec.FulfillmentID, &rec.Batch, &rec.TokensSettled,
			&rec.FiatDisbursed, &rec.PayoutUnits, &rec.FullyClosed, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Recent returns the most recent settlements across all batches.
func (r *SettlementHistoryReader) Recent(ctx context.Context, limit int) ([]SettlementRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT fulfillment_id, batch_index, tokens_settled, fiat_disbursed, payout_units, fully_closed, timestamp
		FROM projections.settlement_history
		ORDER BY sequence DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SettlementRecord
	for rows.Next() {
		var rec SettlementRecord
		if err := rows.Scan(&rec.FulfillmentID, &rec.Batch, &rec.TokensSettled,
			&rec.FiatDisbursed, &rec.PayoutUnits, &rec.FullyClosed, &rec.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
