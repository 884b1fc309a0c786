/**
 * @description
 * This file contains the core business logic of the ai-billing-server: the
 * quota accrual engine. Given a verified Razorpay webhook event it decides
 * whether to credit quota, performs the idempotent accrual through the
 * repository, and reports an outcome the HTTP layer maps to a status code.
 *
 * @notes
 * - The engine never retries internally. A store failure surfaces as
 *   OutcomeFailed so Razorpay's own redelivery policy can compensate.
 * - Redelivery of an already-credited payment id resolves to OutcomeIgnored:
 *   the provider's retry is not a client error.
 */
package app

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/deepak6600/ai-billing-server/internal/domain"
	"github.com/deepak6600/ai-billing-server/internal/plans"
	"github.com/deepak6600/ai-billing-server/internal/store"
)

// Repository defines the store operations the accrual engine needs.
type Repository interface {
	GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
	ApplyPayment(ctx context.Context, credit domain.PaymentCredit) (*domain.Subscription, error)
}

// PaymentDeduper is an optional fast-path duplicate check in front of the
// store. The authoritative idempotency guard stays in the repository.
type PaymentDeduper interface {
	Seen(ctx context.Context, paymentID string) bool
	Mark(ctx context.Context, paymentID string)
}

// EventPublisher publishes internal events after a successful accrual.
// *rabbitmq.EventProducer satisfies this.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// OutcomeKind classifies how the engine disposed of an event.
type OutcomeKind int

const (
	// OutcomeApplied means quota was credited.
	OutcomeApplied OutcomeKind = iota
	// OutcomeIgnored means the event was acknowledged without mutation
	// (non-payment event or duplicate delivery).
	OutcomeIgnored
	// OutcomeRejected means the event failed validation and was dropped.
	OutcomeRejected
	// OutcomeFailed means the store could not complete the accrual; the
	// provider should redeliver.
	OutcomeFailed
)

// String implements fmt.Stringer for log output.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApplied:
		return "applied"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the engine's disposition of one webhook event.
type Outcome struct {
	Kind         OutcomeKind
	Reason       string
	Subscription *domain.Subscription // set when Kind == OutcomeApplied
}

const defaultStoreTimeout = 5 * time.Second

const quotaEventRoutingKey = "quota.credited"

// Service is the quota accrual engine.
type Service struct {
	repo          Repository
	catalog       *plans.Catalog
	deduper       PaymentDeduper
	publisher     EventPublisher
	eventExchange string
	storeTimeout  time.Duration
}

// NewService creates the accrual engine. deduper and publisher may be nil;
// the engine then runs without the Redis fast path or event publishing.
func NewService(repo Repository, catalog *plans.Catalog, deduper PaymentDeduper, publisher EventPublisher, eventExchange string, storeTimeout time.Duration) Service {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return Service{
		repo:          repo,
		catalog:       catalog,
		deduper:       deduper,
		publisher:     publisher,
		eventExchange: eventExchange,
		storeTimeout:  storeTimeout,
	}
}

// HandlePayment processes one verified webhook event.
func (s Service) HandlePayment(ctx context.Context, event domain.RazorpayWebhookEvent) Outcome {
	if event.Event != domain.EventPaymentCaptured {
		return Outcome{Kind: OutcomeIgnored, Reason: "event ignored"}
	}

	payment := event.Payload.Payment.Entity
	userID := payment.UserID()
	if userID == "" {
		return Outcome{Kind: OutcomeRejected, Reason: "missing user id"}
	}
	if payment.ID == "" {
		// Without a payment id there is no idempotency key; crediting
		// blindly would double-apply on redelivery.
		return Outcome{Kind: OutcomeRejected, Reason: "missing payment id"}
	}

	planCode := payment.PlanCode()
	delta := s.catalog.Lookup(planCode)
	if !s.catalog.Known(planCode) {
		log.Printf("Unknown plan %q on payment %s, crediting zero delta", planCode, payment.ID)
	}

	if s.deduper != nil && s.deduper.Seen(ctx, payment.ID) {
		return Outcome{Kind: OutcomeIgnored, Reason: "duplicate payment"}
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sub, err := s.repo.ApplyPayment(storeCtx, domain.PaymentCredit{
		UserID:    userID,
		PaymentID: payment.ID,
		Plan:      planCode,
		Delta:     delta,
	})
	if err != nil {
		if errors.Is(err, store.ErrPaymentAlreadyApplied) {
			if s.deduper != nil {
				s.deduper.Mark(ctx, payment.ID)
			}
			return Outcome{Kind: OutcomeIgnored, Reason: "duplicate payment"}
		}
		log.Printf("Accrual failed for payment %s: %v", payment.ID, err)
		return Outcome{Kind: OutcomeFailed, Reason: "store error"}
	}

	if s.deduper != nil {
		s.deduper.Mark(ctx, payment.ID)
	}
	s.publishCredited(ctx, payment.ID, planCode, delta, sub)

	return Outcome{Kind: OutcomeApplied, Reason: "quota credited", Subscription: sub}
}

// GetQuota returns the subscription record for a user. A user who never paid
// gets an all-zero record rather than an error.
func (s Service) GetQuota(ctx context.Context, userID string) (*domain.Subscription, error) {
	if userID == "" {
		return nil, errors.New("user ID cannot be empty")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	sub, err := s.repo.GetSubscription(storeCtx, userID)
	if err != nil {
		if errors.Is(err, store.ErrSubscriptionNotFound) {
			return &domain.Subscription{UserID: userID}, nil
		}
		return nil, err
	}
	return sub, nil
}

// publishCredited emits the internal quota.credited event. Publishing is best
// effort: the payment is already committed, so a broker hiccup must not turn
// the webhook response into a failure.
func (s Service) publishCredited(ctx context.Context, paymentID, planCode string, delta domain.ResourceDelta, sub *domain.Subscription) {
	if s.publisher == nil || sub == nil {
		return
	}
	event := domain.QuotaCreditedEvent{
		UserID:        sub.UserID,
		PaymentID:     paymentID,
		Plan:          planCode,
		Delta:         delta,
		MaxLimitImage: sub.MaxLimitImage,
		MaxLimitVideo: sub.MaxLimitVideo,
		MaxLimitAudio: sub.MaxLimitAudio,
	}
	if err := s.publisher.Publish(ctx, s.eventExchange, quotaEventRoutingKey, event); err != nil {
		log.Printf("Failed to publish %s for payment %s: %v", quotaEventRoutingKey, paymentID, err)
	}
}
