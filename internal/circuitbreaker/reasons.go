package circuitbreaker

import "fmt"

// ReasonCode tags why a trade was rejected. Callers match on the code;
// the numeric context is for logs and operators.
type ReasonCode string

const (
	ReasonBreakerOpen               ReasonCode = "breaker_open"
	ReasonDailyLossExceeded         ReasonCode = "daily_loss_exceeded"
	ReasonPerTradeLossExceeded      ReasonCode = "per_trade_loss_exceeded"
	ReasonPerMarketPositionExceeded ReasonCode = "per_market_position_exceeded"
	ReasonTotalPositionExceeded     ReasonCode = "total_position_exceeded"
)

// Reason carries the rejection code plus the limit and the value that
// breached it, both in USD.
type Reason struct {
	Code     ReasonCode
	LimitUSD float64
	ValueUSD float64
}

func (r Reason) String() string {
	if r.Code == ReasonBreakerOpen {
		return string(r.Code)
	}
	return fmt.Sprintf("%s: %.2f exceeds limit %.2f", r.Code, r.ValueUSD, r.LimitUSD)
}

// Verdict is the result of a trade validation. Reason is nil when
// CanExecute is true.
type Verdict struct {
	CanExecute bool
	Reason     *Reason
}

func approve() Verdict {
	return Verdict{CanExecute: true}
}

func reject(code ReasonCode, limitUSD, valueUSD float64) Verdict {
	return Verdict{
		CanExecute: false,
		Reason:     &Reason{Code: code, LimitUSD: limitUSD, ValueUSD: valueUSD},
	}
}
