/**
 * @description
 * This file defines the Go structs that model the incoming webhook payloads
 * from Razorpay. These structures are used to safely unmarshal the JSON body
 * received at the webhook endpoint after its signature has been verified.
 *
 * @notes
 * - Only the fields this service acts on are modeled. Razorpay sends far
 *   more, and unknown fields are ignored by encoding/json.
 * - The `notes` object is attached by the purchasing application at checkout
 *   time and carries the userId/plan pair the accrual engine needs.
 */
package domain

import "encoding/json"

// EventPaymentCaptured is the only Razorpay event that triggers accrual.
const EventPaymentCaptured = "payment.captured"

// Note keys the purchasing application sets on every checkout.
const (
	NoteKeyUserID = "userId"
	NoteKeyPlan   = "plan"
)

// RazorpayWebhookEvent represents the top-level structure of a webhook
// payload from Razorpay.
type RazorpayWebhookEvent struct {
	Event   string       `json:"event"` // e.g. "payment.captured"
	Payload EventPayload `json:"payload"`
}

// EventPayload wraps the payment entity inside the webhook body.
type EventPayload struct {
	Payment PaymentWrapper `json:"payment"`
}

// PaymentWrapper mirrors Razorpay's { "payment": { "entity": {...} } } nesting.
type PaymentWrapper struct {
	Entity PaymentEntity `json:"entity"`
}

// PaymentEntity is the captured payment itself.
type PaymentEntity struct {
	ID    string  `json:"id"`
	Notes NoteMap `json:"notes,omitempty"`
}

// NoteMap holds the checkout notes. Razorpay sends an empty JSON array
// instead of an object when no notes were attached, so unmarshaling is
// tolerant: anything that is not an object decodes as no notes.
type NoteMap map[string]string

// UnmarshalJSON implements json.Unmarshaler.
func (n *NoteMap) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		*n = nil
		return nil
	}
	*n = m
	return nil
}

// UserID returns the account to credit, or "" when the note is absent.
func (p PaymentEntity) UserID() string {
	return p.Notes[NoteKeyUserID]
}

// PlanCode returns the purchased plan code, or "" when the note is absent.
func (p PaymentEntity) PlanCode() string {
	return p.Notes[NoteKeyPlan]
}

// QuotaCreditedEvent is the internal event published to RabbitMQ after a
// payment has been credited, so downstream services can react without
// polling the subscriptions table.
type QuotaCreditedEvent struct {
	UserID        string        `json:"user_id"`
	PaymentID     string        `json:"payment_id"`
	Plan          string        `json:"plan"`
	Delta         ResourceDelta `json:"delta"`
	MaxLimitImage int64         `json:"max_limit_image"`
	MaxLimitVideo int64         `json:"max_limit_video"`
	MaxLimitAudio int64         `json:"max_limit_audio"`
}
