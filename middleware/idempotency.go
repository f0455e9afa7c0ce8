package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	idempotencyPrefix = "hotel-ledger:idem"
	defaultLockTTL    = 30 * time.Second
	defaultReplayTTL  = 24 * time.Hour
)

// IdempotencyConfig controls how long responses are kept for replay.
type IdempotencyConfig struct {
	LockTTL   time.Duration
	ReplayTTL time.Duration
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// bodyWriter keeps a copy of what the handler writes.
type bodyWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func idempotencyKeyFromHeader(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(IdempotencyHeader))
}

func idempotencyKey(c *gin.Context, key string) string {
	sum := sha1.Sum([]byte(c.Request.Method + " " + c.Request.URL.Path + " " + key))
	return fmt.Sprintf("%s:%x", idempotencyPrefix, sum[:])
}

// Idempotency replays the first response for a repeated Idempotency-Key, so a payment
// resubmitted after a timeout is not appended twice. Requests without the header, or
// with no Redis available, pass straight through.
func Idempotency(rdb *redis.Client, cfg IdempotencyConfig, log *zap.Logger) gin.HandlerFunc {
	if rdb == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.ReplayTTL <= 0 {
		cfg.ReplayTTL = defaultReplayTTL
	}
	log = log.Named("idempotency")

	return func(c *gin.Context) {
		key := idempotencyKeyFromHeader(c)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		storeKey := idempotencyKey(c, key)
		lockKey := storeKey + ":lock"

		if raw, err := rdb.Get(ctx, storeKey).Bytes(); err == nil {
			var stored storedResponse
			if err := json.Unmarshal(raw, &stored); err == nil {
				c.Header(ReplayedHeader, "true")
				c.Data(stored.Status, stored.ContentType, stored.Body)
				c.Abort()
				return
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn("idempotency lookup failed; serving without replay", zap.Error(err))
			c.Next()
			return
		}

		acquired, err := rdb.SetNX(ctx, lockKey, "1", cfg.LockTTL).Result()
		if err != nil {
			log.Warn("idempotency lock failed; serving without replay", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "request_in_progress",
					"message": "a request with this Idempotency-Key is still being processed",
				},
			})
			return
		}

		w := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		// server errors are not remembered so the client can retry them
		bg := context.Background()
		if status := w.Status(); status < http.StatusInternalServerError {
			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: w.Header().Get("Content-Type"),
				Body:        w.buf.Bytes(),
			})
			if err == nil {
				if err := rdb.Set(bg, storeKey, payload, cfg.ReplayTTL).Err(); err != nil {
					log.Warn("failed to store idempotent response", zap.Error(err))
				}
			}
		}
		_ = rdb.Del(bg, lockKey).Err()
	}
}
