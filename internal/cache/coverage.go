// Package cache shares computed coverage responses between replicas through
// Redis. Every catalogue change bumps a generation counter, and entries are
// keyed by generation, so stale responses are never read back and simply
// expire.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/starford/layerline/internal/timeline"
)

const (
	genKey    = "layerline:coverage:gen"
	keyPrefix = "layerline:coverage:"
)

// Open returns a Redis client for addr, or nil when addr is empty.
func Open(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// Coverage is a Redis-backed coverage response cache. A Coverage with a nil
// client is disabled: Get always misses and Put and Bump do nothing.
type Coverage struct {
	rc     *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCoverage wraps rc. ttl bounds how long an entry lives.
func NewCoverage(rc *redis.Client, ttl time.Duration, logger *slog.Logger) *Coverage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coverage{rc: rc, ttl: ttl, logger: logger}
}

// Enabled reports whether the cache talks to Redis.
func (c *Coverage) Enabled() bool {
	return c != nil && c.rc != nil && c.ttl > 0
}

// Ping checks the Redis connection. A disabled cache is always healthy.
func (c *Coverage) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rc.Ping(ctx).Err()
}

// Get returns the cached response for ids and axis.
func (c *Coverage) Get(ctx context.Context, ids []string, axis timeline.Axis) ([]timeline.LayerCoverage, bool) {
	if !c.Enabled() {
		return nil, false
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("coverage cache: read generation", slog.String("error", err.Error()))
		return nil, false
	}
	data, err := c.rc.Get(ctx, Key(gen, ids, axis)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("coverage cache: get", slog.String("error", err.Error()))
		}
		return nil, false
	}
	var cov []timeline.LayerCoverage
	if err := json.Unmarshal(data, &cov); err != nil {
		c.logger.Warn("coverage cache: decode", slog.String("error", err.Error()))
		return nil, false
	}
	return cov, true
}

// Put stores cov for ids and axis under the current generation.
func (c *Coverage) Put(ctx context.Context, ids []string, axis timeline.Axis, cov []timeline.LayerCoverage) {
	if !c.Enabled() {
		return
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("coverage cache: read generation", slog.String("error", err.Error()))
		return
	}
	data, err := json.Marshal(cov)
	if err != nil {
		return
	}
	if err := c.rc.Set(ctx, Key(gen, ids, axis), data, c.ttl).Err(); err != nil {
		c.logger.Warn("coverage cache: set", slog.String("error", err.Error()))
	}
}

// Bump starts a new generation, orphaning every stored entry.
func (c *Coverage) Bump(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.rc.Incr(ctx, genKey).Err(); err != nil {
		c.logger.Warn("coverage cache: bump generation", slog.String("error", err.Error()))
	}
}

func (c *Coverage) generation(ctx context.Context) (int64, error) {
	gen, err := c.rc.Get(ctx, genKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Key derives the entry key for a request. Layer order does not matter and
// now is truncated to the minute, so requests a few seconds apart share an
// entry.
func Key(gen int64, ids []string, axis timeline.Axis) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	h := fnv.New64a()
	h.Write([]byte(strings.Join(sorted, ",")))
	for _, t := range []time.Time{axis.Front, axis.Back, axis.Now.Truncate(time.Minute)} {
		h.Write([]byte{0})
		h.Write([]byte(t.UTC().Format(time.RFC3339Nano)))
	}
	for _, f := range []float64{float64(axis.Zoom), axis.Width, axis.Position, axis.TransformX} {
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatFloat(f, 'g', -1, 64)))
	}
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + strconv.FormatUint(h.Sum64(), 16)
}
