package arbitrage

import (
	"fmt"
	"math"
	"time"

	"github.com/jmlago/prediction-arb/pkg/cache"
	"go.uber.org/zap"
)

// DefaultMaxStale is how old an opportunity may be before execution is
// no longer trusted against the snapshot it was computed from.
const DefaultMaxStale = time.Second

// maxPriceDriftRatio rejects execution when a leg's current price has
// moved more than 1% from the recorded entry price.
const maxPriceDriftRatio = 0.01

// RejectReason says why the validator refused an opportunity.
type RejectReason string

const (
	RejectNone       RejectReason = ""
	RejectStale      RejectReason = "stale"
	RejectPriceDrift RejectReason = "price_drift"
)

// ValidationResult is the validator's verdict. Confidence is the score
// recomputed at validation time from the opportunity's current factors.
type ValidationResult struct {
	Valid      bool
	Reason     RejectReason
	Detail     string
	Confidence float64
}

// Validator revalidates an opportunity's freshness against wall-clock age
// and the latest known leg prices before execution.
type Validator struct {
	prices   *cache.PriceCache
	maxStale time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// ValidatorConfig holds validator configuration.
type ValidatorConfig struct {
	Prices   *cache.PriceCache
	MaxStale time.Duration // zero means DefaultMaxStale
	Logger   *zap.Logger
	Now      func() time.Time // override for tests; nil means time.Now
}

// NewValidator creates a new opportunity validator.
func NewValidator(cfg ValidatorConfig) (*Validator, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	maxStale := cfg.MaxStale
	if maxStale == 0 {
		maxStale = DefaultMaxStale
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Validator{
		prices:   cfg.Prices,
		maxStale: maxStale,
		logger:   cfg.Logger,
		now:      now,
	}, nil
}

// Validate rejects opportunities computed from a now-stale snapshot:
// either too old outright, or with a leg whose known current price has
// drifted more than 1% from the recorded entry.
func (v *Validator) Validate(opp *Opportunity) ValidationResult {
	age := v.now().Sub(opp.DetectedAt)
	if age > v.maxStale {
		ValidationsRejectedTotal.WithLabelValues(string(RejectStale)).Inc()
		v.logger.Debug("opportunity-stale",
			zap.String("opportunity-id", opp.ID),
			zap.Duration("age", age),
			zap.Duration("max-stale", v.maxStale))
		return ValidationResult{
			Valid:  false,
			Reason: RejectStale,
			Detail: fmt.Sprintf("age %s exceeds %s", age, v.maxStale),
		}
	}

	if v.prices != nil {
		for _, leg := range opp.Legs {
			current, known := v.prices.Get(leg.MarketID, leg.Platform, leg.Outcome)
			if !known {
				// No current price is not a rejection; the staleness
				// gate already bounds how old the entry price can be.
				continue
			}

			drift := math.Abs(float64(current-leg.PriceCents)) / float64(leg.PriceCents)
			if drift > maxPriceDriftRatio {
				ValidationsRejectedTotal.WithLabelValues(string(RejectPriceDrift)).Inc()
				v.logger.Debug("opportunity-price-drifted",
					zap.String("opportunity-id", opp.ID),
					zap.String("outcome", leg.Outcome),
					zap.Int("entry-cents", leg.PriceCents),
					zap.Int("current-cents", current))
				return ValidationResult{
					Valid:  false,
					Reason: RejectPriceDrift,
					Detail: fmt.Sprintf("%s leg moved %dc -> %dc", leg.Outcome, leg.PriceCents, current),
				}
			}
		}
	}

	ValidationsAcceptedTotal.Inc()

	return ValidationResult{
		Valid:      true,
		Confidence: CalculateConfidence(opp.NetProfitUSD, opp.LiquidityUSD, opp.RiskScore, opp.SlippageEstimate),
	}
}
