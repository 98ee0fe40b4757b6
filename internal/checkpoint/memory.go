package checkpoint

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/conversation"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/domain"
	"github.com/seanreed1111/mcdonalds-drive-thru-bot-sub000/internal/events"
)

type memoryEntry struct {
	state   []byte
	session domain.Session
	events  []domain.Event
}

// MemoryStore keeps sessions in process memory. Entries expire after the
// configured TTL of inactivity.
type MemoryStore struct {
	mu     sync.Mutex
	cache  *cache.Cache
	nextID int64
	now    func() time.Time
}

func NewMemory(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &MemoryStore{cache: cache.New(ttl, 10*time.Minute), now: time.Now}
}

func (m *MemoryStore) Save(ctx context.Context, conv *conversation.Context, evts ...events.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := encode(conv)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := &memoryEntry{}
	if x, ok := m.cache.Get(conv.SessionID); ok {
		entry = x.(*memoryEntry)
	}
	next := &memoryEntry{state: state, session: summary(conv), events: entry.events}
	for _, e := range evts {
		payload, err := events.Marshal(e.Payload)
		if err != nil {
			return err
		}
		m.nextID++
		next.events = append(next.events, domain.Event{
			ID:        m.nextID,
			TS:        m.now().UTC().Format(time.RFC3339),
			Type:      e.Type,
			SessionID: conv.SessionID,
			Payload:   payload,
		})
	}
	m.cache.Set(conv.SessionID, next, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) get(sessionID string) (*memoryEntry, error) {
	x, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return x.(*memoryEntry), nil
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*conversation.Context, error) {
	m.mu.Lock()
	entry, err := m.get(sessionID)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return decode(entry.state)
}

func (m *MemoryStore) List(ctx context.Context, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	m.mu.Lock()
	items := m.cache.Items()
	m.mu.Unlock()
	out := make([]domain.Session, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*memoryEntry).session)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt != out[j].UpdatedAt {
			return out[i].UpdatedAt > out[j].UpdatedAt
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(sessionID); err != nil {
		return err
	}
	m.cache.Delete(sessionID)
	return nil
}

func (m *MemoryStore) Events(ctx context.Context, sessionID string, after int64, limit int) ([]domain.Event, error) {
	m.mu.Lock()
	entry, err := m.get(sessionID)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return pageAfter(entry.events, after, limit), nil
}

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
