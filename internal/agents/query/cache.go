package query

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ledger-assistant/internal/common/logger"
	"ledger-assistant/internal/common/metrics"
	"ledger-assistant/internal/entities"
)

// Cache stores serialized query results in Redis. Cache failures are
// logged and swallowed; a broken cache never fails a query.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCache wraps a Redis client with the configured TTL.
func NewCache(client *redis.Client, ttl time.Duration, log logger.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "query-cache"}),
	}
}

// cacheKeyBag is the subset of entity fields that determines a query's
// result. Anything conversational (raw text, notes, extractor extras) is
// excluded so rephrasings of the same question share an entry.
type cacheKeyBag struct {
	Properties  []string            `json:"properties,omitempty"`
	Tenants     []string            `json:"tenants,omitempty"`
	Year        []string            `json:"year,omitempty"`
	Quarter     []string            `json:"quarter,omitempty"`
	Month       []string            `json:"month,omitempty"`
	Periods     []string            `json:"periods,omitempty"`
	Operation   string              `json:"operation,omitempty"`
	Target      string              `json:"target,omitempty"`
	Metric      string              `json:"metric,omitempty"`
	SubQueries  []entities.SubQuery `json:"sub_queries,omitempty"`
	IsPortfolio bool                `json:"is_portfolio,omitempty"`
}

// cacheKey hashes the result-determining fields. Scalar-vs-list shape of the
// period fields does not change the answer, so only the values are keyed.
// Analytics answers are determined by the detected plan rather than the
// structured fields alone, so the key carries the resolved operation,
// target, and metric; rephrasings with the same plan still share an entry.
func cacheKey(intent entities.Intent, bag entities.Bag) string {
	kb := cacheKeyBag{
		Properties:  bag.Properties,
		Tenants:     bag.Tenants,
		Year:        bag.Year.Values,
		Quarter:     bag.Quarter.Values,
		Month:       bag.Month.Values,
		Periods:     bag.Periods,
		Operation:   bag.Operation,
		Metric:      bag.Metric,
		SubQueries:  bag.SubQueries,
		IsPortfolio: bag.IsPortfolio,
	}
	if intent == entities.IntentAnalyticsQuery {
		kb.Operation, kb.Target, kb.Metric = analyticsPlan(bag)
	}
	payload, err := json.Marshal(kb)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("query:%s:%s", intent, hex.EncodeToString(sum[:16]))
}

func (e *Engine) cacheGet(ctx context.Context, intent entities.Intent, bag entities.Bag) (*entities.QueryResult, bool) {
	if e.cache == nil || e.cache.client == nil {
		return nil, false
	}
	key := cacheKey(intent, bag)
	if key == "" {
		return nil, false
	}

	raw, err := e.cache.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			e.cache.logger.WithError(err).Warn("query cache lookup failed", map[string]interface{}{"key": key})
		}
		metrics.QueryCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	var res entities.QueryResult
	if err := json.Unmarshal(raw, &res); err != nil {
		e.cache.logger.WithError(err).Warn("query cache entry corrupt, dropping", map[string]interface{}{"key": key})
		e.cache.client.Del(ctx, key)
		metrics.QueryCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.QueryCacheHits.WithLabelValues("hit").Inc()
	return &res, true
}

func (e *Engine) cacheSet(ctx context.Context, intent entities.Intent, bag entities.Bag, res *entities.QueryResult) {
	if e.cache == nil || e.cache.client == nil {
		return
	}
	key := cacheKey(intent, bag)
	if key == "" {
		return
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := e.cache.client.Set(ctx, key, raw, e.cache.ttl).Err(); err != nil {
		e.cache.logger.WithError(err).Warn("query cache store failed", map[string]interface{}{"key": key})
	}
}
