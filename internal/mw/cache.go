package mw

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"restaurant-booking-backend/internal/metrics"
)

// CacheHeader is set to HIT or MISS on every response served through
// Snapshots.Serve.
const CacheHeader = "X-Cache"

// Snapshots holds successful GET responses of the availability read
// endpoints, keyed by request URI. Any successful write drops all of them.
// A response is only stored when no write finished while it was being
// produced, so an answer read before a commit is never held after it.
type Snapshots struct {
	entries *cache.Cache
	ttl     time.Duration

	mu  sync.Mutex
	gen uint64 // bumped by every flush
}

type snapshot struct {
	status int
	header http.Header
	body   []byte
}

func NewSnapshots(ttl time.Duration) *Snapshots {
	return &Snapshots{entries: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Len returns the number of held snapshots, expired ones included.
func (s *Snapshots) Len() int {
	return s.entries.ItemCount()
}

func (s *Snapshots) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// store keeps snap unless a flush happened since gen was read.
func (s *Snapshots) store(key string, gen uint64, snap snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.entries.Set(key, snap, s.ttl)
	return true
}

func (s *Snapshots) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.entries.Flush()
}

// teeWriter copies the response body aside while it is written out.
type teeWriter struct {
	gin.ResponseWriter
	copy bytes.Buffer
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.copy.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteString(str string) (int, error) {
	w.copy.WriteString(str)
	return w.ResponseWriter.WriteString(str)
}

func (s *Snapshots) replay(c *gin.Context, snap snapshot) {
	h := c.Writer.Header()
	for k, v := range snap.header {
		h[k] = v
	}
	h.Set(CacheHeader, "HIT")
	c.Writer.WriteHeader(snap.status)
	_, _ = c.Writer.Write(snap.body)
}

// Serve answers GET requests from a held snapshot or records the handler's
// 2xx response as a new one.
func (s *Snapshots) Serve() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI
		if v, ok := s.entries.Get(key); ok {
			metrics.IncSnapshotLookup("hit")
			s.replay(c, v.(snapshot))
			c.Abort()
			return
		}
		metrics.IncSnapshotLookup("miss")

		c.Header(CacheHeader, "MISS")
		gen := s.generation()
		tw := &teeWriter{ResponseWriter: c.Writer}
		c.Writer = tw
		c.Next()

		if !success(tw.Status()) {
			return
		}
		header := tw.Header().Clone()
		header.Del(CacheHeader)
		s.store(key, gen, snapshot{status: tw.Status(), header: header, body: bytes.Clone(tw.copy.Bytes())})
	}
}

// Invalidate drops every snapshot once a non-GET request succeeds.
// Rejected writes change nothing and leave the snapshots in place.
func (s *Snapshots) Invalidate() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}
		if success(c.Writer.Status()) {
			s.flush()
		}
	}
}

func success(status int) bool {
	return status >= 200 && status < 300
}
