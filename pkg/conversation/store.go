package conversation

import (
	"time"

	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
)

// Store keeps per-conversation histories keyed by conversation id.
// Idle conversations expire after the configured TTL.
type Store struct {
	sessions *cache.Cache
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{sessions: cache.New(ttl, 2*ttl)}
}

// Resolve returns the history for id, creating it (and a fresh id when
// the caller supplied none) as needed.
func (s *Store) Resolve(id string) (string, *History) {
	if id == "" {
		id = uuid.NewString()
	}
	if v, ok := s.sessions.Get(id); ok {
		return id, v.(*History)
	}
	h := NewHistory()
	s.sessions.SetDefault(id, h)
	return id, h
}

// Save writes back a history and refreshes its TTL.
func (s *Store) Save(id string, h *History) {
	s.sessions.SetDefault(id, h)
}

// Drop removes a conversation.
func (s *Store) Drop(id string) {
	s.sessions.Delete(id)
}

// Count returns the number of live conversations.
func (s *Store) Count() int {
	return s.sessions.ItemCount()
}
