package realtime

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultMatchWait = 10 * time.Minute

// Matchmaker pairs users asking for a random partner, longest waiting first.
// Queue entries expire after the wait window so abandoned requests do not match.
type Matchmaker struct {
	mu    sync.Mutex
	queue *cache.Cache
	seq   uint64
	wait  time.Duration
}

func NewMatchmaker(wait time.Duration) *Matchmaker {
	if wait <= 0 {
		wait = DefaultMatchWait
	}
	return &Matchmaker{
		queue: cache.New(wait, time.Minute),
		wait:  wait,
	}
}

// Join queues userID and pairs it with the oldest other waiting user.
// On a match both leave the queue; otherwise userID keeps its original place.
func (m *Matchmaker) Join(userID uuid.UUID) (uuid.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	self := userID.String()
	var (
		partner  string
		earliest uint64
	)
	for key, item := range m.queue.Items() {
		if key == self {
			continue
		}
		if seq := item.Object.(uint64); partner == "" || seq < earliest {
			partner, earliest = key, seq
		}
	}

	if partner == "" {
		if _, queued := m.queue.Get(self); !queued {
			m.seq++
			m.queue.Set(self, m.seq, m.wait)
		}
		return uuid.Nil, false
	}

	m.queue.Delete(self)
	m.queue.Delete(partner)
	partnerID, err := uuid.Parse(partner)
	if err != nil {
		return uuid.Nil, false
	}
	return partnerID, true
}

// Leave drops userID from the queue. Returns false if it was not waiting.
func (m *Matchmaker) Leave(userID uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := userID.String()
	if _, queued := m.queue.Get(key); !queued {
		return false
	}
	m.queue.Delete(key)
	return true
}

func (m *Matchmaker) Waiting() int {
	return len(m.queue.Items())
}

// ConversationID names the one-to-one conversation between two users. It is the same for either order.
func ConversationID(a, b uuid.UUID) uuid.UUID {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, append(a[:], b[:]...))
}
