/**
 * @description
 * This file declares the persistence contract for the quota accrual engine
 * and the sentinel errors its callers branch on. The concrete PostgreSQL
 * implementation lives in postgres_repository.go.
 */
package store

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a user has no subscription
	// record yet. Callers treat this as an all-zero record.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrPaymentAlreadyApplied is returned when a payment id has been
	// credited before. Redelivery of the same payment must not re-credit.
	ErrPaymentAlreadyApplied = errors.New("payment already applied")
)
