package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

// PriceCache holds the latest known price per (market, platform, outcome)
// leg with a TTL. The opportunity validator reads it to reject
// opportunities whose entry prices have drifted, so an absent entry means
// "no current price known", not zero.
type PriceCache struct {
	cache  *ristretto.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// PriceCacheConfig holds configuration for the price cache.
type PriceCacheConfig struct {
	NumCounters int64 // keys to track frequency for (10x max items)
	MaxItems    int64
	TTL         time.Duration
	Logger      *zap.Logger
}

// NewPriceCache creates a ristretto-backed price cache.
func NewPriceCache(cfg *PriceCacheConfig) (*PriceCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxItems,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &PriceCache{
		cache:  cache,
		ttl:    cfg.TTL,
		logger: cfg.Logger,
	}, nil
}

// Record stores the tick's price under its leg key.
func (p *PriceCache) Record(tick *types.PriceTick) {
	key := legKey(tick.ConditionID, tick.Platform, tick.Outcome)
	// Cost 1: we count entries, not bytes.
	if p.cache.SetWithTTL(key, tick.PriceCents, 1, p.ttl) {
		PriceSetsTotal.Inc()
	}
}

// Get returns the latest known price in cents for a leg.
func (p *PriceCache) Get(conditionID, platform, outcome string) (int, bool) {
	value, found := p.cache.Get(legKey(conditionID, platform, outcome))
	if !found {
		PriceMissesTotal.Inc()
		return 0, false
	}

	PriceHitsTotal.Inc()

	cents, ok := value.(int)
	if !ok {
		p.logger.Warn("price-cache-bad-value-type",
			zap.String("condition-id", conditionID),
			zap.String("outcome", outcome))
		return 0, false
	}

	return cents, true
}

// Wait blocks until buffered writes have been applied. Ristretto applies
// sets asynchronously; callers that read their own writes need this.
func (p *PriceCache) Wait() {
	p.cache.Wait()
}

// Clear drops all cached prices.
func (p *PriceCache) Clear() {
	p.cache.Clear()
}

// Close releases cache resources.
func (p *PriceCache) Close() {
	p.cache.Close()
}

func legKey(conditionID, platform, outcome string) string {
	return conditionID + "/" + platform + "/" + outcome
}
