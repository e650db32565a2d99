package cache

import (
	"fmt"
	"time"

	"github.com/karlseguin/ccache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/xeptore/ytmdl/types"
)

var (
	DefaultPageTTL  = 10 * time.Minute
	DefaultCoverTTL = 1 * time.Hour
)

type Cache struct {
	Pages  *Store[[]byte]
	Covers *Store[types.Cover]
}

func New() *Cache {
	pages := ccache.New(
		ccache.Configure[[]byte]().
			MaxSize(64).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)

	covers := ccache.New(
		ccache.Configure[types.Cover]().
			MaxSize(16).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)

	return &Cache{
		Pages:  &Store[[]byte]{c: pages, group: singleflight.Group{}},
		Covers: &Store[types.Cover]{c: covers, group: singleflight.Group{}},
	}
}

// Store is a TTL cache where concurrent misses on the same key share a
// single call to fetch.
type Store[T any] struct {
	c     *ccache.Cache[T]
	group singleflight.Group
}

func (s *Store[T]) Fetch(k string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if item := s.c.Get(k); nil != item && !item.Expired() {
		return item.Value(), nil
	}

	v, err, _ := s.group.Do(k, func() (any, error) {
		item, err := s.c.Fetch(k, ttl, fetch)
		if nil != err {
			return nil, err
		}

		return item.Value(), nil
	})
	if nil != err {
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", k, err)
	}

	return v.(T), nil //nolint:forcetypeassert
}

func (s *Store[T]) Set(k string, v T, ttl time.Duration) {
	s.c.Set(k, v, ttl)
}

func (s *Store[T]) Stop() {
	s.c.Stop()
}

func (c *Cache) Stop() {
	c.Pages.Stop()
	c.Covers.Stop()
}
