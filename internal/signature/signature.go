/**
 * @description
 * This package verifies the authenticity of incoming Razorpay webhooks.
 * Razorpay signs every delivery with HMAC-SHA256 over the exact raw request
 * body, hex encoded in lowercase, and sends the result in the
 * X-Razorpay-Signature header.
 *
 * @notes
 * - Verification must run over the raw received bytes, before any JSON
 *   parsing, because re-serialization does not reproduce byte-identical
 *   output.
 * - A forged request is an expected adversarial case, so malformed input
 *   returns false rather than an error.
 */
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verify reports whether providedSignature is the lowercase hex HMAC-SHA256
// of body under secret. The comparison is constant time. A missing secret or
// signature always fails closed.
func Verify(secret string, body []byte, providedSignature string) bool {
	sig := strings.TrimSpace(providedSignature)
	if secret == "" || sig == "" {
		return false
	}

	provided, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), provided)
}
