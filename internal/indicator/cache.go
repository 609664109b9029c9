package indicator

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/internal/types"
)

// Cache memoizes indicator outputs for one evaluation scope. It is created
// per simulation run or per live tick and passed explicitly into evaluation,
// never shared globally. A zero TTL disables expiry, which is what a single
// backtest pass uses; live polling uses a bounded TTL so stale series are
// recomputed as new bars arrive.
type Cache struct {
	entries map[string]cacheEntry
	ttl     time.Duration
	mu      sync.Mutex
	now     func() time.Time
}

type cacheEntry struct {
	out      Output
	storedAt time.Time
}

// NewCache creates a cache with the given TTL. ttl <= 0 means entries never
// expire within the cache's scope.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		mu:      sync.Mutex{},
		now:     time.Now,
	}
}

// GetOrCompute returns the cached output for key, computing and storing it on
// a miss or after expiry.
func (c *Cache) GetOrCompute(key string, compute func() (Output, error)) (Output, error) {
	c.mu.Lock()

	entry, ok := c.entries[key]
	if ok && (c.ttl <= 0 || c.now().Sub(entry.storedAt) < c.ttl) {
		c.mu.Unlock()

		return entry.out, nil
	}

	c.mu.Unlock()

	out, err := compute()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{out: out, storedAt: c.now()}
	c.mu.Unlock()

	return out, nil
}

// Reset drops all entries.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached outputs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// CacheKey builds a stable cache key for an indicator computation over a
// candle window. The window is fingerprinted by symbol, length and last bar
// time, which is enough inside one evaluation scope.
func CacheKey(indicatorType string, params map[string]float64, candles []types.Candle) string {
	var sb strings.Builder

	sb.WriteString(indicatorType)
	sb.WriteByte('|')

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&sb, "%s=%g,", k, params[k])
	}

	if n := len(candles); n > 0 {
		fmt.Fprintf(&sb, "|%s|%d|%d", candles[n-1].Symbol, n, candles[n-1].Time.UnixNano())
	}

	return sb.String()
}
