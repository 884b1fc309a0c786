/**
 * @description
 * This file contains the HTTP handlers for the ai-billing-server. The webhook
 * handler is the entry point for Razorpay payment notifications; the quota
 * handler lets the authenticated purchasing application read a user's record.
 *
 * Key features:
 * - Security: Validates the HMAC signature of incoming webhooks over the raw
 *   body before any parsing.
 * - Response mapping: Applied/Ignored -> 200, Rejected -> 400, Failed -> 500.
 *   Callers should treat only the status code as machine-readable.
 */
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/deepak6600/ai-billing-server/internal/app"
	"github.com/deepak6600/ai-billing-server/internal/domain"
	"github.com/deepak6600/ai-billing-server/internal/signature"
)

const (
	maxWebhookBodyBytes     = int64(65536)
	razorpaySignatureHeader = "X-Razorpay-Signature"
)

// Handler holds the accrual engine and the webhook signing secret.
type Handler struct {
	service       app.Service
	webhookSecret string
}

// NewHandler creates a new Handler.
func NewHandler(service app.Service, webhookSecret string) *Handler {
	return &Handler{service: service, webhookSecret: webhookSecret}
}

// handleRazorpayWebhook processes a payment notification from Razorpay.
func (h *Handler) handleRazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[%s] Error reading webhook body: %v", requestID, err)
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	// Verify over the exact raw bytes; the caller only ever learns
	// "Invalid signature", never which part mismatched.
	if !signature.Verify(h.webhookSecret, body, r.Header.Get(razorpaySignatureHeader)) {
		log.Printf("[%s] Invalid webhook signature from %s", requestID, r.RemoteAddr)
		http.Error(w, "Invalid signature", http.StatusBadRequest)
		return
	}

	var event domain.RazorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("[%s] Error decoding webhook JSON: %v", requestID, err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	outcome := h.service.HandlePayment(r.Context(), event)
	log.Printf("[%s] Webhook event %q -> %s (%s) in %v",
		requestID, event.Event, outcome.Kind, outcome.Reason, time.Since(startTime))

	switch outcome.Kind {
	case app.OutcomeApplied:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	case app.OutcomeIgnored:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Event ignored"))
	case app.OutcomeRejected:
		if outcome.Reason == "missing user id" {
			http.Error(w, "User ID missing", http.StatusBadRequest)
			return
		}
		http.Error(w, outcome.Reason, http.StatusBadRequest)
	default:
		http.Error(w, "Error", http.StatusInternalServerError)
	}
}

// handleGetQuota returns the authenticated user's subscription record.
func (h *Handler) handleGetQuota(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetAuthenticatedUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sub, err := h.service.GetQuota(r.Context(), userID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, sub)
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
