package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/deepak6600/ai-billing-server/internal/app"
	"github.com/deepak6600/ai-billing-server/internal/domain"
	"github.com/deepak6600/ai-billing-server/internal/plans"
	"github.com/deepak6600/ai-billing-server/internal/store"
)

const (
	testSecret = "s3cr3t"

	capturedBody      = `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","notes":{"userId":"u1","plan":"basic_499"}}}}}`
	capturedSignature = "14db3c5ee68cb6a9ddd60e586b8c8741202a5ae0c733ae32a4a408d3b7539cde"

	authorizedBody      = `{"event":"payment.authorized","payload":{"payment":{"entity":{"id":"pay_2","notes":{"userId":"u1","plan":"basic_499"}}}}}`
	authorizedSignature = "f40f43d7a9c8cfed869a2147b5fd67557e57c7f2e50df77433ae9aa7661518d7"

	noUserBody      = `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_3","notes":{"plan":"basic_499"}}}}}`
	noUserSignature = "fe67dd8ae76227a20608460ca2f117b33c86fac049a3f3b5ab4892f233ee30ec"

	truncatedBody      = `{"event":`
	truncatedSignature = "3960dcbf073f56fb3631bfe7449efc35d1eb1978b05192c10ba0d272b7d64eb9"
)

// webhookRepository is an in-memory repository backing the handler tests.
type webhookRepository struct {
	mu              sync.Mutex
	subscriptions   map[string]*domain.Subscription
	appliedPayments map[string]bool
	applyCalls      int
	failWith        error
}

func newWebhookRepository() *webhookRepository {
	return &webhookRepository{
		subscriptions:   make(map[string]*domain.Subscription),
		appliedPayments: make(map[string]bool),
	}
}

func (m *webhookRepository) GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[userID]
	if !ok {
		return nil, store.ErrSubscriptionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (m *webhookRepository) ApplyPayment(ctx context.Context, credit domain.PaymentCredit) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applyCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.appliedPayments[credit.PaymentID] {
		return nil, store.ErrPaymentAlreadyApplied
	}
	m.appliedPayments[credit.PaymentID] = true

	sub, ok := m.subscriptions[credit.UserID]
	if !ok {
		sub = &domain.Subscription{UserID: credit.UserID}
		m.subscriptions[credit.UserID] = sub
	}
	sub.MaxLimitImage = domain.SaturatingAdd(sub.MaxLimitImage, credit.Delta.Image)
	sub.MaxLimitVideo = domain.SaturatingAdd(sub.MaxLimitVideo, credit.Delta.Video)
	sub.MaxLimitAudio = domain.SaturatingAdd(sub.MaxLimitAudio, credit.Delta.Audio)
	sub.LastPaymentID = credit.PaymentID
	sub.CurrentPlan = credit.Plan
	sub.UpdatedAt = time.Now()

	copied := *sub
	return &copied, nil
}

func newWebhookHandler(repo *webhookRepository) *Handler {
	svc := app.NewService(repo, plans.Default(), nil, nil, "quota_events", time.Second)
	return NewHandler(svc, testSecret)
}

func postWebhook(h *Handler, body, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/razorpay", strings.NewReader(body))
	if sig != "" {
		req.Header.Set(razorpaySignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.handleRazorpayWebhook(rec, req)
	return rec
}

func TestWebhookAppliesCapturedPayment(t *testing.T) {
	repo := newWebhookRepository()
	repo.subscriptions["u1"] = &domain.Subscription{UserID: "u1", MaxLimitImage: 7, MaxLimitVideo: 3, MaxLimitAudio: 1}
	h := newWebhookHandler(repo)

	rec := postWebhook(h, capturedBody, capturedSignature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "OK" {
		t.Fatalf("expected body %q, got %q", "OK", rec.Body.String())
	}

	sub := repo.subscriptions["u1"]
	if sub.MaxLimitImage != 57 || sub.MaxLimitVideo != 23 || sub.MaxLimitAudio != 21 {
		t.Fatalf("unexpected counters after accrual: %+v", sub)
	}
	if sub.LastPaymentID != "pay_1" || sub.CurrentPlan != "basic_499" {
		t.Fatalf("audit fields not updated: %+v", sub)
	}
}

func TestWebhookRejectsWrongSignature(t *testing.T) {
	repo := newWebhookRepository()
	h := newWebhookHandler(repo)

	rec := postWebhook(h, capturedBody, "deadbeefffffffffffffffffffffffffffffffffffffffffffffffffffffffff")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid signature") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if repo.applyCalls != 0 {
		t.Fatal("store must not be touched on signature failure")
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	repo := newWebhookRepository()
	h := newWebhookHandler(repo)

	rec := postWebhook(h, capturedBody, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if repo.applyCalls != 0 {
		t.Fatal("store must not be touched on signature failure")
	}
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	repo := newWebhookRepository()
	h := newWebhookHandler(repo)

	rec := postWebhook(h, authorizedBody, authorizedSignature)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Event ignored" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if repo.applyCalls != 0 {
		t.Fatal("non-captured events must not reach the store")
	}
}

func TestWebhookRejectsMissingUserID(t *testing.T) {
	repo := newWebhookRepository()
	h := newWebhookHandler(repo)

	rec := postWebhook(h, noUserBody, noUserSignature)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "User ID missing") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	repo := newWebhookRepository()
	h := newWebhookHandler(repo)

	rec := postWebhook(h, truncatedBody, truncatedSignature)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid JSON payload") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestWebhookReportsStoreFailure(t *testing.T) {
	repo := newWebhookRepository()
	repo.failWith = context.DeadlineExceeded
	h := newWebhookHandler(repo)

	rec := postWebhook(h, capturedBody, capturedSignature)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Error") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestWebhookRedeliveryIsAcknowledged(t *testing.T) {
	repo := newWebhookRepository()
	h := newWebhookHandler(repo)

	if rec := postWebhook(h, capturedBody, capturedSignature); rec.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", rec.Code)
	}
	rec := postWebhook(h, capturedBody, capturedSignature)
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery: expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Event ignored" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	sub := repo.subscriptions["u1"]
	if sub.MaxLimitImage != 50 || sub.MaxLimitVideo != 20 || sub.MaxLimitAudio != 20 {
		t.Fatalf("redelivery double-credited: %+v", sub)
	}
}

func TestGetQuotaReturnsRecord(t *testing.T) {
	repo := newWebhookRepository()
	repo.subscriptions["u1"] = &domain.Subscription{
		UserID:        "u1",
		MaxLimitImage: 500,
		MaxLimitVideo: 100,
		MaxLimitAudio: 100,
		CurrentPlan:   "premium_999",
		LastPaymentID: "pay_9",
	}
	h := newWebhookHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/quota", nil)
	req = req.WithContext(context.WithValue(req.Context(), authenticatedUserIDKey, "u1"))
	rec := httptest.NewRecorder()
	h.handleGetQuota(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, fragment := range []string{`"max_limit_image":500`, `"current_plan":"premium_999"`, `"last_payment_id":"pay_9"`} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("expected response to contain %s, got %s", fragment, body)
		}
	}
}

func TestGetQuotaWithoutAuthContext(t *testing.T) {
	h := newWebhookHandler(newWebhookRepository())

	req := httptest.NewRequest(http.MethodGet, "/quota", nil)
	rec := httptest.NewRecorder()
	h.handleGetQuota(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
