package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type EmailLogRepo struct {
	db *pgxpool.Pool
}

func NewEmailLogRepo(db *pgxpool.Pool) *EmailLogRepo {
	return &EmailLogRepo{db: db}
}

// Record writes a delivery attempt row and returns its request id.
func (r *EmailLogRepo) Record(ctx context.Context, recipient, subject, status string) (string, error) {
	requestID := uuid.NewString()
	query := `
		INSERT INTO email_logs (request_id, recipient, subject, status, sent_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := r.db.Exec(ctx, query, requestID, recipient, subject, status)
	if err != nil {
		return "", fmt.Errorf("failed to record email log: %w", err)
	}
	return requestID, nil
}

func (r *EmailLogRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM email_logs WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge email log: %w", err)
	}
	return tag.RowsAffected(), nil
}
