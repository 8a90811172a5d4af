// Package cache keeps mining responses keyed by a digest of their inputs. An
// in-process LRU sits in front of an optional Redis tier, and concurrent
// misses on the same key share one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/jobs"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/mining"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/internal/sequence"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Sequential-Pattern-Mining-Platform/pkg/resilience"
)

const keyPrefix = "gsp:"

// Remote is the shared cache tier. *redis.Client satisfies it.
type Remote interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	LocalEntries int    `json:"local_entries"`
	Remote       string `json:"remote"`
}

// HitRate returns hits over lookups as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

type ResultCache struct {
	local   *lru.Cache[string, *jobs.MineResponse]
	remote  Remote
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a ResultCache. localSize <= 0 disables the in-process tier and
// a nil remote disables the shared one. m may be nil.
func New(remote Remote, ttl time.Duration, localSize int, m *metrics.Metrics) (*ResultCache, error) {
	c := &ResultCache{
		remote:  remote,
		ttl:     ttl,
		breaker: resilience.NewCircuitBreaker("result-cache-redis", resilience.CircuitBreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
	if localSize > 0 {
		local, err := lru.New[string, *jobs.MineResponse](localSize)
		if err != nil {
			return nil, fmt.Errorf("creating local cache: %w", err)
		}
		c.local = local
	}
	return c, nil
}

// Key derives the cache key of a request. Itemsets are canonicalised the way
// the miner loads them, so requests that differ only in symbol order or
// duplicates within an itemset share a key. Options that cannot change the
// result, such as worker count, matcher and pruning, are left out.
func Key(transactions [][][]string, minSupport float64, opts mining.Options) string {
	canon := make([][][]string, len(transactions))
	for i, tx := range transactions {
		canon[i] = make([][]string, len(tx))
		for j, raw := range tx {
			items := sequence.NewItemset(raw)
			syms := make([]string, len(items))
			for k, s := range items {
				syms[k] = string(s)
			}
			canon[i][j] = syms
		}
	}
	body, _ := json.Marshal(canon)
	h := sha256.New()
	h.Write(body)
	h.Write([]byte("|support=" + strconv.FormatFloat(minSupport, 'g', 12, 64)))
	h.Write([]byte("|dropFinal=" + strconv.FormatBool(opts.DropFinalLevel)))
	return fmt.Sprintf("%s%x", keyPrefix, h.Sum(nil)[:16])
}

// Get looks key up in the local tier, then the remote one. A remote hit is
// copied into the local tier.
func (c *ResultCache) Get(ctx context.Context, key string) (*jobs.MineResponse, bool) {
	if c.local != nil {
		if resp, ok := c.local.Get(key); ok {
			c.recordHit()
			return resp, true
		}
	}
	if c.remote == nil {
		c.recordMiss()
		return nil, false
	}

	var data string
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.remote.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		return err
	})
	if err != nil {
		c.logger.Warn("remote cache get failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if data == "" {
		c.recordMiss()
		return nil, false
	}
	var resp jobs.MineResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	if c.local != nil {
		c.local.Add(key, &resp)
	}
	c.recordHit()
	c.logger.Debug("remote cache hit", "key", key)
	return &resp, true
}

// Set stores resp in both tiers. Remote failures are logged and otherwise
// ignored.
func (c *ResultCache) Set(ctx context.Context, key string, resp *jobs.MineResponse) {
	if c.local != nil {
		c.local.Add(key, resp)
	}
	if c.remote == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.remote.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("remote cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached response for key, or runs compute once
// for all concurrent callers asking for the same key and caches its result.
// The boolean reports a cache hit.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	key string,
	compute func() (*jobs.MineResponse, error),
) (*jobs.MineResponse, bool, error) {
	if resp, ok := c.Get(ctx, key); ok {
		return resp, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		resp, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, resp)
		return resp, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*jobs.MineResponse), false, nil
}

// Invalidate empties both tiers.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	var purged int
	if c.local != nil {
		purged = c.local.Len()
		c.local.Purge()
	}
	var deleted int64
	if c.remote != nil {
		err := c.breaker.Execute(func() error {
			var err error
			deleted, err = c.remote.FlushByPattern(ctx, keyPrefix+"*")
			return err
		})
		if err != nil {
			return fmt.Errorf("invalidating remote cache: %w", err)
		}
	}
	c.logger.Info("cache invalidated", "local_purged", purged, "remote_deleted", deleted)
	return nil
}

func (c *ResultCache) Stats() Stats {
	s := Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Remote: "disabled",
	}
	if c.local != nil {
		s.LocalEntries = c.local.Len()
	}
	if c.remote != nil {
		s.Remote = c.breaker.State().String()
	}
	return s
}

func (c *ResultCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
