package mw

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"restaurant-booking-backend/internal/apperr"
	"restaurant-booking-backend/internal/metrics"
)

// ClientLimiter keeps one token bucket per client key. Buckets of clients
// that stay quiet for longer than the idle period are dropped.
type ClientLimiter struct {
	mu      sync.Mutex
	buckets *cache.Cache
	limit   rate.Limit
	burst   int
}

func NewClientLimiter(limit rate.Limit, burst int, idle time.Duration) *ClientLimiter {
	return &ClientLimiter{
		buckets: cache.New(idle, idle),
		limit:   limit,
		burst:   burst,
	}
}

func (l *ClientLimiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets.Get(key)
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
	}
	// Touch on every request so only idle clients expire.
	l.buckets.SetDefault(key, b)
	return b.(*rate.Limiter)
}

// Take spends one token of key. When the bucket is empty it reports how
// long the client should wait instead.
func (l *ClientLimiter) Take(key string) (bool, time.Duration) {
	r := l.bucket(key).Reserve()
	if !r.OK() {
		return false, time.Second
	}
	if wait := r.Delay(); wait > 0 {
		r.Cancel()
		return false, wait
	}
	return true, 0
}

// Clients returns the number of tracked client buckets.
func (l *ClientLimiter) Clients() int {
	return l.buckets.ItemCount()
}

// Throttle rejects requests of clients, keyed by IP, that exceed l.
func Throttle(l *ClientLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := l.Take(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		metrics.IncThrottled(c.FullPath())
		c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(wait.Seconds())))))
		e := apperr.RateLimited()
		c.AbortWithStatusJSON(e.HTTPStatus, gin.H{"success": false, "code": e.Code, "message": e.Message})
	}
}
