package gateway

import (
	"context"
	"sync"
)

// supersede tracks the latest in-flight query per category. Starting a
// query cancels the previous one of the same category.
type supersede struct {
	mu      sync.Mutex
	seq     map[string]uint64
	cancels map[string]context.CancelFunc
}

func newSupersede() *supersede {
	return &supersede{
		seq:     make(map[string]uint64),
		cancels: make(map[string]context.CancelFunc),
	}
}

// begin starts a query and returns its context and token.
func (s *supersede) begin(ctx context.Context, category string) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.cancels[category]; ok {
		cancel()
	}
	s.seq[category]++
	qctx, cancel := context.WithCancel(ctx)
	s.cancels[category] = cancel
	return qctx, s.seq[category]
}

// end finishes the query and reports whether it is still the latest one.
func (s *supersede) end(category string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq[category] != token {
		return false
	}
	s.cancels[category]()
	delete(s.cancels, category)
	return true
}
