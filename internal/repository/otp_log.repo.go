package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OtpLogRepo records issued codes for audit. The live challenge
// itself lives in Redis; these rows only trace what was sent where.
type OtpLogRepo struct {
	db *pgxpool.Pool
}

func NewOtpLogRepo(db *pgxpool.Pool) *OtpLogRepo {
	return &OtpLogRepo{db: db}
}

func (r *OtpLogRepo) Record(ctx context.Context, subject, intent string, issuedAt, expiresAt time.Time) error {
	query := `
		INSERT INTO user_otps (subject, intent, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, subject, intent, issuedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to record otp issue: %w", err)
	}
	return nil
}

func (r *OtpLogRepo) MarkVerified(ctx context.Context, subject, intent string) error {
	query := `
		UPDATE user_otps SET verified_at = NOW()
		WHERE id = (
			SELECT id FROM user_otps
			WHERE subject = $1 AND intent = $2 AND verified_at IS NULL
			ORDER BY issued_at DESC LIMIT 1
		)`

	_, err := r.db.Exec(ctx, query, subject, intent)
	if err != nil {
		return fmt.Errorf("failed to mark otp verified: %w", err)
	}
	return nil
}

func (r *OtpLogRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_otps WHERE issued_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge otp log: %w", err)
	}
	return tag.RowsAffected(), nil
}
