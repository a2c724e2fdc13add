package checkout

import (
	"sync"
	"time"

	"bazaar/internal/domain/orders"
)

// PendingSessions holds the drafts behind open card payment sessions until
// the gateway's webhook confirms or abandons them. In-memory: a process
// restart loses open sessions, which is an accepted gap — the buyer was
// never told the order exists, and the payment can be refunded upstream.
type PendingSessions struct {
	mu       sync.Mutex
	sessions map[string]pendingSession
}

type pendingSession struct {
	drafts    []orders.Draft
	createdAt time.Time
}

func NewPendingSessions() *PendingSessions {
	return &PendingSessions{sessions: make(map[string]pendingSession)}
}

func (p *PendingSessions) Put(sessionID string, drafts []orders.Draft) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[sessionID] = pendingSession{drafts: drafts, createdAt: time.Now()}
}

// Take removes and returns the drafts for sessionID. The removal is what
// makes webhook confirmation idempotent.
func (p *PendingSessions) Take(sessionID string) ([]orders.Draft, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(p.sessions, sessionID)
	return s.drafts, true
}

// PruneOlderThan drops sessions whose payment was never completed. Returns
// the number removed.
func (p *PendingSessions) PruneOlderThan(age time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-age)
	n := 0
	for id, s := range p.sessions {
		if s.createdAt.Before(cutoff) {
			delete(p.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of open sessions (metrics / tests).
func (p *PendingSessions) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
