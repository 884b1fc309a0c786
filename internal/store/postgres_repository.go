/**
 * @description
 * This file provides the PostgreSQL implementation of the repository used by
 * the quota accrual engine. It contains the SQL for reading a user's
 * subscription record and for crediting a payment.
 *
 * @notes
 * - ApplyPayment runs in a single transaction: the applied_payments insert is
 *   the idempotency guard (primary key on payment_id), and the counter upsert
 *   is a single additive statement so concurrent payments for the same user
 *   cannot lose an update.
 * - Counter additions clamp at domain.MaxResourceLimit via LEAST so a BIGINT
 *   column can never overflow.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepak6600/ai-billing-server/internal/domain"
)

// PostgresRepository is the pgx-backed persistence layer.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetSubscription retrieves the subscription record for a user.
func (r *PostgresRepository) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	query := `
        SELECT user_id, max_limit_image, max_limit_video, max_limit_audio,
               COALESCE(last_payment_id, ''), COALESCE(current_plan, ''), updated_at
        FROM user_subscriptions
        WHERE user_id = $1
    `
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&sub.UserID,
		&sub.MaxLimitImage,
		&sub.MaxLimitVideo,
		&sub.MaxLimitAudio,
		&sub.LastPaymentID,
		&sub.CurrentPlan,
		&sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("querying subscription for user %s: %w", userID, err)
	}
	return &sub, nil
}

// ApplyPayment credits one payment's delta to one user exactly once and
// returns the resulting subscription record. A payment id that was credited
// before yields ErrPaymentAlreadyApplied and no mutation.
func (r *PostgresRepository) ApplyPayment(ctx context.Context, credit domain.PaymentCredit) (*domain.Subscription, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning accrual transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Idempotency guard: the primary key on payment_id makes the first
	// delivery win and every redelivery a no-op.
	tag, err := tx.Exec(ctx, `
        INSERT INTO applied_payments (payment_id, user_id, plan)
        VALUES ($1, $2, $3)
        ON CONFLICT (payment_id) DO NOTHING
    `, credit.PaymentID, credit.UserID, credit.Plan)
	if err != nil {
		return nil, fmt.Errorf("recording payment %s: %w", credit.PaymentID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrPaymentAlreadyApplied
	}

	// Single additive upsert: concurrent payments for the same user are
	// serialized by the row lock, so neither delta can be lost.
	var sub domain.Subscription
	query := `
        INSERT INTO user_subscriptions
            (user_id, max_limit_image, max_limit_video, max_limit_audio, last_payment_id, current_plan, updated_at)
        VALUES ($1, LEAST($2, $5), LEAST($3, $5), LEAST($4, $5), $6, $7, NOW())
        ON CONFLICT (user_id) DO UPDATE SET
            max_limit_image = LEAST(user_subscriptions.max_limit_image + EXCLUDED.max_limit_image, $5),
            max_limit_video = LEAST(user_subscriptions.max_limit_video + EXCLUDED.max_limit_video, $5),
            max_limit_audio = LEAST(user_subscriptions.max_limit_audio + EXCLUDED.max_limit_audio, $5),
            last_payment_id = EXCLUDED.last_payment_id,
            current_plan = EXCLUDED.current_plan,
            updated_at = NOW()
        RETURNING user_id, max_limit_image, max_limit_video, max_limit_audio,
                  COALESCE(last_payment_id, ''), COALESCE(current_plan, ''), updated_at
    `
	err = tx.QueryRow(ctx, query,
		credit.UserID,
		credit.Delta.Image,
		credit.Delta.Video,
		credit.Delta.Audio,
		domain.MaxResourceLimit,
		credit.PaymentID,
		credit.Plan,
	).Scan(
		&sub.UserID,
		&sub.MaxLimitImage,
		&sub.MaxLimitVideo,
		&sub.MaxLimitAudio,
		&sub.LastPaymentID,
		&sub.CurrentPlan,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("crediting user %s for payment %s: %w", credit.UserID, credit.PaymentID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing accrual for payment %s: %w", credit.PaymentID, err)
	}
	return &sub, nil
}
