package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/mamadbah2/pharmacy/internal/notify"
)

// DefaultMaxSessions bounds the registry when no capacity is given.
const DefaultMaxSessions = 10000

// ErrUnavailable is returned when a session snapshot could not be read. The store returned with it
// must not be mutated since persisting it would overwrite the stored cart.
var ErrUnavailable = errors.New("cart snapshot unavailable")

// Sessions hands out one lazily loaded Store per cart session. At most capacity stores are kept in
// memory; the least recently used one is dropped and reloaded from storage on its next access.
type Sessions struct {
	baseKey   string
	storage   Storage
	notifier  notify.Notifier
	listeners []CheckoutListener
	logger    *zap.Logger

	mu     sync.Mutex
	stores *lru.Cache
}

// NewSessions creates a session registry. baseKey is the storage key of the anonymous session and
// capacity the number of stores kept in memory (DefaultMaxSessions when not positive).
func NewSessions(baseKey string, capacity int, storage Storage, notifier notify.Notifier, logger *zap.Logger, listeners ...CheckoutListener) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultMaxSessions
	}
	// lru.New only fails for a non-positive size.
	stores, _ := lru.New(capacity)
	return &Sessions{
		baseKey:   baseKey,
		storage:   storage,
		notifier:  notifier,
		listeners: listeners,
		logger:    logger,
		stores:    stores,
	}
}

// Key returns the storage key used for a session.
func (s *Sessions) Key(session string) string {
	if session == "" {
		return s.baseKey
	}
	return s.baseKey + ":" + session
}

// Len reports how many session stores are held in memory.
func (s *Sessions) Len() int {
	return s.stores.Len()
}

// Get returns the store of a session, loading its snapshot on first access. When the snapshot
// cannot be read the store is returned empty together with ErrUnavailable and is not kept, so the
// next call retries the load.
func (s *Sessions) Get(ctx context.Context, session string) (*Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.stores.Get(session); ok {
		return cached.(*Store), nil
	}

	store := NewStore(s.Key(session), s.storage, s.notifier, s.logger)
	store.session = session
	for _, l := range s.listeners {
		store.OnCheckout(l)
	}

	if err := store.Load(ctx); err != nil {
		s.logger.Warn("cart snapshot unavailable", zap.String("key", store.Key()), zap.Error(err))
		return store, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if evicted := s.stores.Add(session, store); evicted {
		s.logger.Debug("least recently used cart session evicted", zap.Int("sessions", s.stores.Len()))
	}
	return store, nil
}
