package settings

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
)

// DefaultTTL is how long a cached settings snapshot may be served before
// it is re-read from the store.
const DefaultTTL = time.Hour

// Service is a read-through cache over a Store. A snapshot is loaded at
// most once per TTL; mutations invalidate it immediately. Evaluations
// must tolerate snapshots stale by up to the TTL.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	cached  Settings
	loaded  bool
	expires time.Time
}

// NewService creates a Service with the given TTL. A non-positive ttl
// disables caching entirely.
func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Current returns the effective settings snapshot, reading through the
// cache. Store failures surface to the caller; a stale-but-valid cache
// entry is never served past its TTL.
func (s *Service) Current(ctx context.Context) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && s.ttl > 0 && s.now().Before(s.expires) {
		return s.cached, nil
	}

	raw, err := s.store.All(ctx)
	if err != nil {
		return Settings{}, errors.Wrap(err, "load settings")
	}

	s.cached = FromMap(raw)
	s.loaded = true
	s.expires = s.now().Add(s.ttl)

	return s.cached, nil
}

// Update writes one key and invalidates the cached snapshot.
func (s *Service) Update(ctx context.Context, key, value string) error {
	if err := s.store.Set(ctx, key, value); err != nil {
		return errors.Wrapf(err, "set setting %q", key)
	}
	s.Invalidate()
	return nil
}

// Reset clears all stored settings back to defaults and invalidates the
// cache.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return errors.Wrap(err, "reset settings")
	}
	for key, value := range Defaults().Map() {
		if err := s.store.Set(ctx, key, value); err != nil {
			return errors.Wrapf(err, "seed default %q", key)
		}
	}
	s.Invalidate()
	return nil
}

// Invalidate drops the cached snapshot so the next read hits the store.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.loaded = false
	s.mu.Unlock()
}
