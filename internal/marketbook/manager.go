// Package marketbook assembles per-market snapshots from the feed's leg
// ticks. A detector pass needs a complete shape (both sides of a binary,
// every outcome of a multi, all five quotes of a three-way), so the book
// buffers quotes until the shape fills in, then emits a snapshot.
package marketbook

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/jmlago/prediction-arb/pkg/cache"
	"github.com/jmlago/prediction-arb/pkg/types"
	"go.uber.org/zap"
)

type legQuote struct {
	priceCents   int
	liquidityUSD float64
	updatedAt    time.Time
}

type book struct {
	meta   *types.MarketMeta
	quotes map[string]legQuote // key: platform + "/" + outcome
}

// maxPendingTicksPerMarket bounds the ticks buffered for a market whose
// metadata has not arrived yet.
const maxPendingTicksPerMarket = 32

// Manager holds the current quote state for all known markets.
type Manager struct {
	mu         sync.RWMutex
	logger     *zap.Logger
	prices     *cache.PriceCache
	books      map[string]*book // key: condition ID
	pending    map[string][]*types.PriceTick
	tickChan   <-chan *types.PriceTick
	metaChan   <-chan *types.MarketMeta
	updateChan chan *types.MarketSnapshot
	ctx        context.Context
	wg         sync.WaitGroup
}

// Config holds marketbook configuration.
type Config struct {
	Logger     *zap.Logger
	Prices     *cache.PriceCache
	TickChan   <-chan *types.PriceTick
	MetaChan   <-chan *types.MarketMeta
	BufferSize int
}

// New creates a new marketbook manager.
func New(cfg *Config) *Manager {
	return &Manager{
		logger:     cfg.Logger,
		prices:     cfg.Prices,
		books:      make(map[string]*book),
		pending:    make(map[string][]*types.PriceTick),
		tickChan:   cfg.TickChan,
		metaChan:   cfg.MetaChan,
		updateChan: make(chan *types.MarketSnapshot, cfg.BufferSize),
	}
}

// Start begins consuming ticks and metadata.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx = ctx
	m.logger.Info("marketbook-starting")

	m.wg.Add(1)
	go m.consumeLoop()

	return nil
}

func (m *Manager) consumeLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("marketbook-stopping")
			close(m.updateChan)
			return

		case meta, ok := <-m.metaChan:
			if !ok {
				return
			}
			m.registerMarket(meta)

		case tick, ok := <-m.tickChan:
			if !ok {
				return
			}
			m.applyTick(tick)
		}
	}
}

// registerMarket records a market's shape so its ticks can be assembled.
// Ticks buffered before the metadata arrived are replayed into the new
// book, so meta/tick arrival order does not matter.
func (m *Manager) registerMarket(meta *types.MarketMeta) {
	m.mu.Lock()

	existing, known := m.books[meta.ConditionID]
	if known {
		existing.meta = meta
		m.mu.Unlock()
		return
	}

	b := &book{
		meta:   meta,
		quotes: make(map[string]legQuote),
	}
	m.books[meta.ConditionID] = b
	MarketsTracked.Set(float64(len(m.books)))

	buffered := m.pending[meta.ConditionID]
	delete(m.pending, meta.ConditionID)
	for _, tick := range buffered {
		b.quotes[tick.Platform+"/"+tick.Outcome] = legQuote{
			priceCents:   tick.PriceCents,
			liquidityUSD: tick.LiquidityUSD,
			updatedAt:    time.Now(),
		}
	}

	var snap *types.MarketSnapshot
	if len(buffered) > 0 {
		snap = m.assembleLocked(b)
	}
	m.mu.Unlock()

	m.logger.Info("market-registered",
		zap.String("condition-id", meta.ConditionID),
		zap.String("shape", string(meta.Shape)),
		zap.Int("replayed-ticks", len(buffered)))

	if snap != nil {
		m.emit(snap)
	}
}

// applyTick stores the quote, refreshes the price cache, and emits a
// snapshot if the market's shape is now complete.
func (m *Manager) applyTick(tick *types.PriceTick) {
	TicksProcessedTotal.Inc()

	if m.prices != nil {
		m.prices.Record(tick)
	}

	m.mu.Lock()
	b, known := m.books[tick.ConditionID]
	if !known {
		// Ticks for markets without metadata cannot be shaped yet;
		// buffer them until the meta arrives. Past the cap the oldest
		// buffered tick is dropped as orphaned.
		queue := append(m.pending[tick.ConditionID], tick)
		if len(queue) > maxPendingTicksPerMarket {
			queue = queue[1:]
			TicksOrphanedTotal.Inc()
		}
		m.pending[tick.ConditionID] = queue
		m.mu.Unlock()
		return
	}

	b.quotes[tick.Platform+"/"+tick.Outcome] = legQuote{
		priceCents:   tick.PriceCents,
		liquidityUSD: tick.LiquidityUSD,
		updatedAt:    time.Now(),
	}
	snap := m.assembleLocked(b)
	m.mu.Unlock()

	if snap == nil {
		return
	}
	m.emit(snap)
}

func (m *Manager) emit(snap *types.MarketSnapshot) {
	select {
	case m.updateChan <- snap:
	default:
		m.logger.Warn("snapshot-channel-full",
			zap.String("condition-id", snap.ConditionID()))
		SnapshotsDroppedTotal.Inc()
	}
}

// Snapshot returns the current snapshot for a market if its shape is
// complete.
func (m *Manager) Snapshot(conditionID string) (*types.MarketSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, known := m.books[conditionID]
	if !known {
		return nil, false
	}

	snap := m.assembleLocked(b)
	return snap, snap != nil
}

// UpdateChan returns the channel of completed snapshots.
func (m *Manager) UpdateChan() <-chan *types.MarketSnapshot {
	return m.updateChan
}

// Close waits for the consume loop to stop.
func (m *Manager) Close() error {
	m.wg.Wait()
	m.logger.Info("marketbook-closed")
	return nil
}

// assembleLocked builds the snapshot for the book's shape, or nil while
// any required quote is still missing.
func (m *Manager) assembleLocked(b *book) *types.MarketSnapshot {
	meta := b.meta
	now := time.Now()

	switch meta.Shape {
	case types.ShapeSingleMarket:
		yes, okYes := b.quotes["polymarket/YES"]
		no, okNo := b.quotes["polymarket/NO"]
		if !okYes || !okNo {
			return nil
		}
		return &types.MarketSnapshot{
			Shape: types.ShapeSingleMarket,
			Single: &types.SingleMarket{
				ConditionID:   meta.ConditionID,
				Question:      meta.Question,
				YesPriceCents: yes.priceCents,
				NoPriceCents:  no.priceCents,
				LiquidityUSD:  math.Min(yes.liquidityUSD, no.liquidityUSD),
			},
			UpdatedAt: now,
		}

	case types.ShapeCrossPlatform:
		pYes, ok1 := b.quotes["polymarket/YES"]
		pNo, ok2 := b.quotes["polymarket/NO"]
		lYes, ok3 := b.quotes["limitless/YES"]
		lNo, ok4 := b.quotes["limitless/NO"]
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil
		}
		return &types.MarketSnapshot{
			Shape: types.ShapeCrossPlatform,
			Cross: &types.CrossPlatformPair{
				ConditionID:            meta.ConditionID,
				Question:               meta.Question,
				PolymarketYesCents:     pYes.priceCents,
				PolymarketNoCents:      pNo.priceCents,
				LimitlessYesCents:      lYes.priceCents,
				LimitlessNoCents:       lNo.priceCents,
				PolymarketLiquidityUSD: math.Min(pYes.liquidityUSD, pNo.liquidityUSD),
				LimitlessLiquidityUSD:  math.Min(lYes.liquidityUSD, lNo.liquidityUSD),
			},
			UpdatedAt: now,
		}

	case types.ShapeMultiOutcome:
		outcomes := make([]types.OutcomePrice, 0, len(meta.Outcomes))
		for _, name := range meta.Outcomes {
			quote, ok := b.quotes["polymarket/"+name]
			if !ok {
				return nil
			}
			outcomes = append(outcomes, types.OutcomePrice{
				Name:          name,
				YesPriceCents: quote.priceCents,
				LiquidityUSD:  quote.liquidityUSD,
			})
		}
		return &types.MarketSnapshot{
			Shape: types.ShapeMultiOutcome,
			Multi: &types.MultiOutcomeMarket{
				ConditionID: meta.ConditionID,
				Question:    meta.Question,
				Category:    meta.Category,
				Outcomes:    outcomes,
			},
			UpdatedAt: now,
		}

	case types.ShapeThreeWay:
		home, ok1 := b.quotes["polymarket/HOME"]
		homeNo, ok2 := b.quotes["polymarket/HOME_NO"]
		away, ok3 := b.quotes["polymarket/AWAY"]
		awayNo, ok4 := b.quotes["polymarket/AWAY_NO"]
		draw, ok5 := b.quotes["polymarket/DRAW"]
		if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
			return nil
		}
		liquidity := home.liquidityUSD
		for _, q := range []legQuote{homeNo, away, awayNo, draw} {
			liquidity = math.Min(liquidity, q.liquidityUSD)
		}
		return &types.MarketSnapshot{
			Shape: types.ShapeThreeWay,
			ThreeWay: &types.ThreeWayMarket{
				ConditionID:  meta.ConditionID,
				Question:     meta.Question,
				HomeTeam:     types.TeamQuote{YesPriceCents: home.priceCents, NoPriceCents: homeNo.priceCents},
				AwayTeam:     types.TeamQuote{YesPriceCents: away.priceCents, NoPriceCents: awayNo.priceCents},
				DrawYesCents: draw.priceCents,
				LiquidityUSD: liquidity,
			},
			UpdatedAt: now,
		}

	default:
		return nil
	}
}
