// Package reccache caches ranked recommendation hits in a key-value store.
// Keys include the artifact version, so a new model never serves stale hits.
package reccache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/jobrec/internal/db"
	"github.com/kailas-cloud/jobrec/internal/domain"
	"github.com/kailas-cloud/jobrec/internal/domain/ranking"
	"github.com/kailas-cloud/jobrec/internal/domain/search/filter"
)

var cacheKeyPrefix = domain.KeyPrefix + "rec_cache:"

// hitSize is the encoded size of one hit: uint32 index + float64 score.
const hitSize = 12

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache stores ranked hits keyed by model version and request.
type Cache struct {
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(s store, ttl time.Duration, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Key derives the cache key for a request over normalized tokens.
func Key(version string, tokens []string, k int, f filter.Filter, minScore float64) string {
	h := sha256.New()
	for _, part := range []string{
		version,
		strings.Join(tokens, " "),
		strconv.Itoa(k),
		f.Key(),
		strconv.FormatFloat(minScore, 'g', -1, 64),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns cached hits. Any store or decode failure is a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]ranking.Hit, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached recommendations", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}
	hits, err := decodeHits(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached recommendations", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return nil, false
	}
	c.inc("hit")
	return hits, true
}

// Put stores hits. Failures are logged, never returned.
func (c *Cache) Put(ctx context.Context, key string, hits []ranking.Hit) {
	if err := c.store.SetWithTTL(ctx, key, encodeHits(hits), c.ttl); err != nil {
		c.logger.Warn("Failed to cache recommendations", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func encodeHits(hits []ranking.Hit) []byte {
	buf := make([]byte, len(hits)*hitSize)
	for i, h := range hits {
		binary.LittleEndian.PutUint32(buf[i*hitSize:], uint32(h.Index))
		binary.LittleEndian.PutUint64(buf[i*hitSize+4:], math.Float64bits(h.Score))
	}
	return buf
}

func decodeHits(data []byte) ([]ranking.Hit, error) {
	if len(data)%hitSize != 0 {
		return nil, fmt.Errorf("invalid recommendation cache data: len=%d (not multiple of %d)", len(data), hitSize)
	}
	hits := make([]ranking.Hit, len(data)/hitSize)
	for i := range hits {
		hits[i] = ranking.Hit{
			Index: int(binary.LittleEndian.Uint32(data[i*hitSize:])),
			Score: math.Float64frombits(binary.LittleEndian.Uint64(data[i*hitSize+4:])),
		}
	}
	return hits, nil
}
