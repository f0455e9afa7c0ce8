package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func paymentRouter(rdb *redis.Client, calls *int32, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics(), Logger(zap.NewNop()))
	r.POST("/api/reservations/:id/payments", Idempotency(rdb, IdempotencyConfig{}, zap.NewNop()), func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"success": status < 400, "data": gin.H{"call": n}})
	})
	return r
}

func post(r http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"amount":5000}`))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	_, rdb := newRedis(t)
	var calls int32
	r := paymentRouter(rdb, &calls, http.StatusCreated)

	first := post(r, "/api/reservations/7/payments", "pay-abc")
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	second := post(r, "/api/reservations/7/payments", "pay-abc")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// same key on another reservation is a different request
	other := post(r, "/api/reservations/8/payments", "pay-abc")
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyWithoutKeyAlwaysRuns(t *testing.T) {
	_, rdb := newRedis(t)
	var calls int32
	r := paymentRouter(rdb, &calls, http.StatusCreated)

	post(r, "/api/reservations/7/payments", "")
	post(r, "/api/reservations/7/payments", "")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	mr, rdb := newRedis(t)
	var calls int32
	r := paymentRouter(rdb, &calls, http.StatusCreated)

	// another instance holds the lock for this key
	req := httptest.NewRequest(http.MethodPost, "/api/reservations/7/payments", nil)
	req.Header.Set(IdempotencyHeader, "pay-lock")
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	require.NoError(t, mr.Set(idempotencyKey(c, "pay-lock")+":lock", "1"))

	w := post(r, "/api/reservations/7/payments", "pay-lock")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "request_in_progress")
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestIdempotencyDoesNotRememberServerErrors(t *testing.T) {
	_, rdb := newRedis(t)
	var calls int32
	r := paymentRouter(rdb, &calls, http.StatusInternalServerError)

	post(r, "/api/reservations/7/payments", "pay-500")
	w := post(r, "/api/reservations/7/payments", "pay-500")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get(ReplayedHeader))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotencyWithoutRedisPassesThrough(t *testing.T) {
	var calls int32
	r := paymentRouter(nil, &calls, http.StatusCreated)

	post(r, "/api/reservations/7/payments", "pay-abc")
	post(r, "/api/reservations/7/payments", "pay-abc")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
