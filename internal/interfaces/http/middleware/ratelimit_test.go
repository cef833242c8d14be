package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qbdsync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			ok, remaining := limiter.Allow("client")
			assert.True(t, ok, "request %d should be allowed", i+1)
			assert.Equal(t, 2-i, remaining)
		}
		ok, remaining := limiter.Allow("client")
		assert.False(t, ok)
		assert.Zero(t, remaining)
	})

	t.Run("separate limits per client", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)

		ok, _ := limiter.Allow("clientA")
		assert.True(t, ok)
		ok, _ = limiter.Allow("clientA")
		assert.False(t, ok)
		ok, _ = limiter.Allow("clientB")
		assert.True(t, ok)
	})

	t.Run("resets after window", func(t *testing.T) {
		now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(1, time.Minute)
		limiter.now = func() time.Time { return now }

		ok, _ := limiter.Allow("client")
		assert.True(t, ok)
		ok, _ = limiter.Allow("client")
		assert.False(t, ok)

		now = now.Add(time.Minute)
		ok, _ = limiter.Allow("client")
		assert.True(t, ok)
	})

	t.Run("evicts idle clients", func(t *testing.T) {
		now := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(1, time.Minute)
		limiter.now = func() time.Time { return now }
		limiter.Allow("idle")

		now = now.Add(3 * time.Minute)
		limiter.evict()
		assert.Empty(t, limiter.clients)
	})

	t.Run("run stops with its context", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			limiter.Run(ctx)
			close(done)
		}()
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})

	t.Run("concurrent access is safe", func(t *testing.T) {
		limiter := NewRateLimiter(100, time.Minute)
		var wg sync.WaitGroup
		var mu sync.Mutex
		allowed := 0

		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if ok, _ := limiter.Allow("concurrent-client"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}

		wg.Wait()
		assert.Equal(t, 100, allowed)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	router := gin.New()
	router.Use(RateLimit(limiter))
	router.POST("/qbwc", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/qbwc", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("192.168.1.100:12345")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send("192.168.1.100:12345").Code)

	blocked := send("192.168.1.100:12345")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, "60", blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), dto.ErrCodeRateLimited)

	assert.Equal(t, http.StatusOK, send("192.168.1.2:12345").Code, "other clients keep their own window")
}
