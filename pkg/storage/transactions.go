package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sigweihq/yieldpay/pkg/types"
)

// TransactionRepository persists transaction records. Records are written
// once per attempted payment and never mutated afterward; a payment whose
// hash could not be resolved in time is stored under the pending sentinel.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert writes one transaction record.
func (r *TransactionRepository) Insert(ctx context.Context, record *types.TransactionRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO transactions (transaction_hash, from_user_id, to_user_id, amount, message)
		 VALUES ($1, $2, $3, $4::numeric, NULLIF($5, ''))`,
		record.TransactionHash, record.FromUserID, record.ToUserID, record.Amount, record.Message)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Recent returns the latest records involving the user, newest first.
func (r *TransactionRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*types.TransactionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT transaction_hash, from_user_id, to_user_id, amount::text, COALESCE(message, ''), created_at
		 FROM transactions
		 WHERE from_user_id = $1 OR to_user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var records []*types.TransactionRecord
	for rows.Next() {
		var rec types.TransactionRecord
		if err := rows.Scan(&rec.TransactionHash, &rec.FromUserID, &rec.ToUserID,
			&rec.Amount, &rec.Message, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
