package cart

import "sync"

// Sessions maps buyer ids to their live carts. It is the explicit session
// context handed to the checkout orchestrator, so tests can construct one
// deterministically instead of reaching for ambient state.
type Sessions struct {
	mu    sync.Mutex
	carts map[int64]*Cart
}

func NewSessions() *Sessions {
	return &Sessions{carts: make(map[int64]*Cart)}
}

// Get returns the buyer's cart, creating an empty one on first use.
func (s *Sessions) Get(buyerID int64) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[buyerID]
	if !ok {
		c = New()
		s.carts[buyerID] = c
	}
	return c
}

// Drop discards the buyer's cart entirely (sign-out, session teardown).
func (s *Sessions) Drop(buyerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, buyerID)
}
