package gazetteer

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hazyhaar/placestd/pkg/metrics"
)

// Cache is a byte-oriented key/value side channel in front of an Index.
// A miss returns ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedIndex is a read-through cache over another Index. Cache failures are
// logged and counted, then the lookup falls through to the wrapped index.
// Unknown tokens are cached too; missing places are not.
//
// Keys carry the generation of the wrapped index, so a cache shared across
// reloads never serves entries of a previous gazetteer.
type CachedIndex struct {
	next       Index
	cache      Cache
	generation string
	logger     *slog.Logger
}

// NewCachedIndex wraps next with cache. generation names the contents of
// next and must change whenever they do. A nil logger means slog.Default().
func NewCachedIndex(next Index, cache Cache, generation string, logger *slog.Logger) *CachedIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedIndex{next: next, cache: cache, generation: generation + "|", logger: logger}
}

// LookupWord implements Index.
func (c *CachedIndex) LookupWord(ctx context.Context, token string) ([]int, error) {
	key := c.generation + "w:" + token
	var ids []int
	if c.get(ctx, "word", key, &ids) {
		return ids, nil
	}
	ids, err := c.next.LookupWord(ctx, token)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, ids)
	return ids, nil
}

// Place implements Index.
func (c *CachedIndex) Place(ctx context.Context, id int) (*Place, error) {
	key := c.generation + "p:" + strconv.Itoa(id)
	var p Place
	if c.get(ctx, "place", key, &p) {
		return &p, nil
	}
	place, err := c.next.Place(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, place)
	return place, nil
}

func (c *CachedIndex) get(ctx context.Context, lookup, key string, dst any) bool {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		metrics.CacheErrorsTotal.Inc()
		c.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		metrics.CacheMissesTotal.WithLabelValues(lookup).Inc()
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		metrics.CacheErrorsTotal.Inc()
		c.logger.Warn("cache entry undecodable", "key", key, "error", err)
		return false
	}
	metrics.CacheHitsTotal.WithLabelValues(lookup).Inc()
	return true
}

func (c *CachedIndex) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err == nil {
		err = c.cache.Set(ctx, key, data)
	}
	if err != nil {
		metrics.CacheErrorsTotal.Inc()
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// LRU is an in-process Cache with a capacity bound and a per-entry TTL.
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type lruItem struct {
	k   string
	v   []byte
	exp time.Time
}

var errZeroCapacity = errors.New("lru: capacity must be positive")

// NewLRU creates an LRU holding at most capacity entries for ttl each.
func NewLRU(capacity int, ttl time.Duration) (*LRU, error) {
	if capacity <= 0 {
		return nil, errZeroCapacity
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element)}, nil
}

// Get implements Cache.
func (c *LRU) Get(_ context.Context, k string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(lruItem)
		if time.Now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true, nil
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return nil, false, nil
}

// Set implements Cache.
func (c *LRU) Set(_ context.Context, k string, v []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := lruItem{k: k, v: v, exp: time.Now().Add(c.ttl)}
	if e, ok := c.dict[k]; ok {
		e.Value = it
		c.lst.MoveToFront(e)
		return nil
	}
	c.dict[k] = c.lst.PushFront(it)
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		delete(c.dict, back.Value.(lruItem).k)
		c.lst.Remove(back)
	}
	return nil
}

// Len reports the number of entries, expired ones included.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
