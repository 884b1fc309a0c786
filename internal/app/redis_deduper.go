package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPaymentDeduper implements a best-effort distributed duplicate check
// for payment ids using Redis. It only short-circuits redeliveries the store
// has already recorded; a Redis outage degrades to the database guard.
type RedisPaymentDeduper struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisPaymentDeduper creates a deduper with the given key prefix and TTL.
func NewRedisPaymentDeduper(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisPaymentDeduper {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "billing:payment_seen"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisPaymentDeduper{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
	}
}

// Seen reports whether paymentID was marked before. Errors count as unseen so
// the authoritative database guard still runs.
func (d *RedisPaymentDeduper) Seen(ctx context.Context, paymentID string) bool {
	if d == nil || d.client == nil || paymentID == "" {
		return false
	}
	exists, err := d.client.Exists(ctx, d.key(paymentID)).Result()
	if err != nil {
		log.Printf("Redis dedupe lookup failed for payment %s: %v", paymentID, err)
		return false
	}
	return exists > 0
}

// Mark records paymentID as applied, best effort.
func (d *RedisPaymentDeduper) Mark(ctx context.Context, paymentID string) {
	if d == nil || d.client == nil || paymentID == "" {
		return
	}
	if err := d.client.Set(ctx, d.key(paymentID), 1, d.ttl).Err(); err != nil {
		log.Printf("Redis dedupe mark failed for payment %s: %v", paymentID, err)
	}
}

func (d *RedisPaymentDeduper) key(paymentID string) string {
	return fmt.Sprintf("%s:%s", d.prefix, paymentID)
}
