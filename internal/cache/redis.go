package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/raaihank/lgpd-sentinel/internal/config"
	"github.com/raaihank/lgpd-sentinel/internal/logger"
	"github.com/raaihank/lgpd-sentinel/internal/privacy"
	"go.uber.org/zap"
)

// VerdictCache keeps model privacy verdicts in Redis so repeated texts do not
// pay for another model round-trip
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *logger.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache effectiveness
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	TotalKeys int64   `json:"total_keys"`
}

type entry struct {
	Verdict  privacy.Verdict `json:"verdict"`
	CachedAt time.Time       `json:"cached_at"`
}

// NewVerdictCache connects to Redis and verifies the connection
func NewVerdictCache(cfg config.CacheConfig, log *logger.Logger) (*VerdictCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	vc := newWithClient(redis.NewClient(opts), cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := vc.client.Ping(ctx).Err(); err != nil {
		vc.client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	vc.logger.Info("Verdict cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", vc.ttl))

	return vc, nil
}

func newWithClient(client *redis.Client, cfg config.CacheConfig, log *logger.Logger) *VerdictCache {
	if log == nil {
		log = logger.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VerdictCache{
		client: client,
		ttl:    ttl,
		prefix: cfg.KeyPrefix,
		logger: log.WithComponent("verdict-cache"),
	}
}

// Get returns a cached verdict. Redis errors and corrupt entries are misses.
func (vc *VerdictCache) Get(ctx context.Context, key string) (privacy.Verdict, bool) {
	data, err := vc.client.Get(ctx, vc.key(key)).Bytes()
	if err == redis.Nil {
		vc.misses.Add(1)
		return privacy.Verdict{}, false
	}
	if err != nil {
		vc.misses.Add(1)
		vc.logger.Warn("Cache lookup failed", zap.Error(err))
		return privacy.Verdict{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		vc.misses.Add(1)
		vc.logger.Warn("Dropping corrupt cache entry", zap.Error(err))
		vc.client.Del(ctx, vc.key(key))
		return privacy.Verdict{}, false
	}

	vc.hits.Add(1)
	return e.Verdict, true
}

// Set stores a verdict. Failures are logged and otherwise ignored.
func (vc *VerdictCache) Set(ctx context.Context, key string, v privacy.Verdict) {
	data, err := json.Marshal(entry{Verdict: v, CachedAt: time.Now().UTC()})
	if err != nil {
		vc.logger.Warn("Failed to encode verdict for caching", zap.Error(err))
		return
	}
	if err := vc.client.Set(ctx, vc.key(key), data, vc.ttl).Err(); err != nil {
		vc.logger.Warn("Failed to cache verdict", zap.Error(err))
	}
}

// Stats returns hit counters and the number of cached verdicts
func (vc *VerdictCache) Stats(ctx context.Context) Stats {
	s := Stats{Hits: vc.hits.Load(), Misses: vc.misses.Load()}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total) * 100
	}

	iter := vc.client.Scan(ctx, 0, vc.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		s.TotalKeys++
	}
	return s
}

// Clear removes every cached verdict
func (vc *VerdictCache) Clear(ctx context.Context) error {
	iter := vc.client.Scan(ctx, 0, vc.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := min(i+batchSize, len(keys))
		if err := vc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	vc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection
func (vc *VerdictCache) Close() error {
	if vc.client != nil {
		return vc.client.Close()
	}
	return nil
}

func (vc *VerdictCache) key(k string) string {
	return vc.prefix + k
}

// maskRedisURL hides the password in a Redis URL for logging
func maskRedisURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userinfo := url[:at]
	start := strings.Index(userinfo, "://") + len("://")
	if start < len("://") {
		start = 0
	}
	colon := strings.LastIndex(userinfo, ":")
	if colon < start {
		return url
	}
	return userinfo[:colon+1] + "***" + url[at:]
}
