package mw

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestSnapshots(t *testing.T) {
	snapshots := NewSnapshots(time.Minute)
	calls := 0

	r := gin.New()
	r.Use(snapshots.Invalidate())
	r.GET("/days", snapshots.Serve(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/broken", snapshots.Serve(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"error": "boom"})
	})
	r.POST("/days", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.POST("/rejected", func(c *gin.Context) { c.Status(http.StatusConflict) })

	first := perform(r, http.MethodGet, "/days?month=10")
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())

	second := perform(r, http.MethodGet, "/days?month=10")
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())

	other := perform(r, http.MethodGet, "/days?month=11")
	assert.JSONEq(t, `{"calls":2}`, other.Body.String(), "the query string is part of the key")
	assert.Equal(t, 2, snapshots.Len())

	perform(r, http.MethodPost, "/rejected")
	assert.Equal(t, "HIT", perform(r, http.MethodGet, "/days?month=10").Header().Get(CacheHeader),
		"failed writes keep the snapshot")

	perform(r, http.MethodPost, "/days")
	assert.Zero(t, snapshots.Len())
	afterWrite := perform(r, http.MethodGet, "/days?month=10")
	assert.Equal(t, "MISS", afterWrite.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":3}`, afterWrite.Body.String())

	perform(r, http.MethodGet, "/broken")
	perform(r, http.MethodGet, "/broken")
	assert.Equal(t, 5, calls, "error responses are not cached")
}

func TestSnapshots_ReadOverlappingWriteIsNotKept(t *testing.T) {
	snapshots := NewSnapshots(time.Minute)
	reading := make(chan struct{})
	resume := make(chan struct{})
	version := 1

	r := gin.New()
	r.Use(snapshots.Invalidate())
	r.GET("/days", snapshots.Serve(), func(c *gin.Context) {
		seen := version
		if c.Query("slow") == "1" {
			close(reading)
			<-resume
		}
		c.JSON(http.StatusOK, gin.H{"version": seen})
	})
	r.POST("/days", func(c *gin.Context) {
		version++
		c.Status(http.StatusCreated)
	})

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- perform(r, http.MethodGet, "/days?slow=1") }()

	<-reading
	perform(r, http.MethodPost, "/days")
	close(resume)

	stale := <-done
	assert.JSONEq(t, `{"version":1}`, stale.Body.String())
	assert.Zero(t, snapshots.Len(), "the answer read before the write is dropped")

	next := perform(r, http.MethodGet, "/days?slow=0")
	assert.Equal(t, "MISS", next.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"version":2}`, next.Body.String())
	assert.Equal(t, 1, snapshots.Len())
}

func TestThrottle(t *testing.T) {
	r := gin.New()
	r.Use(Throttle(NewClientLimiter(rate.Limit(1), 2, time.Minute)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusOK, perform(r, http.MethodGet, "/").Code)

	limited := perform(r, http.MethodGet, "/")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"success":false,"code":"RATE_LIMITED","message":"Too many requests, please slow down"}`, limited.Body.String())
}

func TestClientLimiter_PerClient(t *testing.T) {
	l := NewClientLimiter(rate.Limit(0.5), 1, time.Minute)

	ok, _ := l.Take("10.0.0.1")
	assert.True(t, ok)
	ok, wait := l.Take("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Second, "a refused take does not consume the next token")

	ok, _ = l.Take("10.0.0.2")
	assert.True(t, ok, "clients have separate buckets")
	assert.Equal(t, 2, l.Clients())
}

func TestClientLimiter_DropsIdleClients(t *testing.T) {
	l := NewClientLimiter(rate.Limit(1), 1, 20*time.Millisecond)
	l.Take("10.0.0.1")
	require.Equal(t, 1, l.Clients())

	assert.Eventually(t, func() bool { return l.Clients() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Logger(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	perform(r, http.MethodGet, "/missing?x=1")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"path":"/missing?x=1"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"component":"http"`)
}
