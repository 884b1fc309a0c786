/**
 * @description
 * This file defines the core domain models for the ai-billing-server.
 * It includes the per-user Subscription record that maps to the
 * user_subscriptions table and the resource delta type used when a
 * purchased plan is credited.
 */
package domain

import "time"

// MaxResourceLimit is the saturation cap for a single quota counter.
// Accrual clamps here instead of letting a BIGINT column overflow.
const MaxResourceLimit int64 = 1 << 60

// Subscription represents the cumulative generation allowances granted
// to a user. Counters only ever grow; nothing in this service decrements
// or deletes them.
type Subscription struct {
	UserID        string    `json:"user_id"`
	MaxLimitImage int64     `json:"max_limit_image"`
	MaxLimitVideo int64     `json:"max_limit_video"`
	MaxLimitAudio int64     `json:"max_limit_audio"`
	LastPaymentID string    `json:"last_payment_id"`
	CurrentPlan   string    `json:"current_plan"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResourceDelta is the per-category quota increase associated with a plan.
type ResourceDelta struct {
	Image int64 `json:"image"`
	Video int64 `json:"video"`
	Audio int64 `json:"audio"`
}

// IsZero reports whether the delta credits nothing.
func (d ResourceDelta) IsZero() bool {
	return d.Image == 0 && d.Video == 0 && d.Audio == 0
}

// PaymentCredit is the unit of work handed to the store: credit one
// payment's delta to one user, exactly once.
type PaymentCredit struct {
	UserID    string
	PaymentID string
	Plan      string
	Delta     ResourceDelta
}

// SaturatingAdd adds a non-negative delta to a counter, clamping at
// MaxResourceLimit so the counter can never wrap or go negative.
func SaturatingAdd(counter, delta int64) int64 {
	if counter < 0 {
		counter = 0
	}
	if delta < 0 {
		delta = 0
	}
	if counter > MaxResourceLimit-delta {
		return MaxResourceLimit
	}
	return counter + delta
}
