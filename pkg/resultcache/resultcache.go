// Package resultcache keeps the most recent semantic token stream of every
// document together with the result id it was published under.
package resultcache

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// ResultID identifies one published token stream. It is opaque to clients.
type ResultID string

// Cache is the store the delta engine reads previous results from.
type Cache interface {
	// NextResultID mints a fresh identifier. Identifiers are never reused.
	NextResultID() ResultID
	// Get returns the stream cached for uri if it was published as previous.
	// Any other situation is a miss. The returned slice must not be modified.
	Get(ctx context.Context, uri string, previous ResultID) ([]uint32, bool)
	// Update replaces whatever is cached for uri.
	Update(ctx context.Context, uri string, id ResultID, data []uint32)
	// Evict forgets uri.
	Evict(ctx context.Context, uri string)
}

// results is shared by every Store in the process, so ids are unique across documents and stores.
var results atomic.Uint64

// entry is immutable once stored; Update swaps the whole value.
type entry struct {
	id   ResultID
	data []uint32
}

var _ Cache = (*Store)(nil)

// Store is the in-memory Cache.
type Store struct {
	items *gocache.Cache
}

// Option configures a Store.
type Option func(*storeConfig)

type storeConfig struct {
	expiration      time.Duration
	cleanupInterval time.Duration
}

// WithExpiration drops entries for documents that have not been updated for d.
// Zero keeps entries until they are evicted or replaced.
func WithExpiration(d time.Duration) Option {
	return func(c *storeConfig) {
		c.expiration = d
	}
}

// WithCleanupInterval sets how often expired entries are purged. Zero disables the janitor.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *storeConfig) {
		c.cleanupInterval = d
	}
}

func NewStore(opts ...Option) *Store {
	cfg := storeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store{
		items: gocache.New(cfg.expiration, cfg.cleanupInterval),
	}
}

func (s *Store) NextResultID() ResultID {
	return ResultID(strconv.FormatUint(results.Add(1), 10))
}

func (s *Store) Get(ctx context.Context, uri string, previous ResultID) ([]uint32, bool) {
	logger := zerolog.Ctx(ctx)

	value, found := s.items.Get(uri)
	if !found {
		logger.Debug().Str("uri", uri).Str("previous_result_id", string(previous)).Msg("semantic tokens cache miss: unknown document")
		return nil, false
	}

	e, ok := value.(*entry)
	if !ok {
		logger.Error().Str("uri", uri).Msg("wrong type assertion when getting cached semantic tokens")
		return nil, false
	}

	if e.id != previous {
		logger.Debug().
			Str("uri", uri).
			Str("previous_result_id", string(previous)).
			Str("cached_result_id", string(e.id)).
			Msg("semantic tokens cache miss: result id mismatch")
		return nil, false
	}

	logger.Debug().Str("uri", uri).Str("result_id", string(e.id)).Msg("semantic tokens cache hit")

	return e.data, true
}

func (s *Store) Update(ctx context.Context, uri string, id ResultID, data []uint32) {
	s.items.Set(uri, &entry{id: id, data: append([]uint32(nil), data...)}, gocache.DefaultExpiration)

	zerolog.Ctx(ctx).Debug().Str("uri", uri).Str("result_id", string(id)).Int("values", len(data)).Msg("semantic tokens cached")
}

func (s *Store) Evict(ctx context.Context, uri string) {
	s.items.Delete(uri)

	zerolog.Ctx(ctx).Debug().Str("uri", uri).Msg("semantic tokens evicted")
}

// Len reports how many documents currently have a cached stream.
func (s *Store) Len() int {
	return s.items.ItemCount()
}
