package positions

import "math"

// PortfolioPnL is the portfolio-level P&L aggregation.
type PortfolioPnL struct {
	UnrealizedPnLUSD float64
	RealizedPnLUSD   float64
	TotalPnLUSD      float64
	OpenPositions    int
	SettledPositions int
	OpenPairs        int
}

// PerformanceMetrics summarizes the settled-pair history.
type PerformanceMetrics struct {
	TotalTrades    int
	Wins           int
	Losses         int
	WinRate        float64
	ProfitFactor   float64
	AvgWinUSD      float64
	AvgLossUSD     float64
	LargestWinUSD  float64
	LargestLossUSD float64
}

// CalculatePortfolioPnL aggregates across active positions and realized
// history. Positions that have settled but not yet been closed out count
// as realized: their price is final.
func (t *Tracker) CalculatePortfolioPnL() PortfolioPnL {
	t.mu.Lock()
	defer t.mu.Unlock()

	var result PortfolioPnL
	for _, pos := range t.positions {
		if pos.SettledAt != nil {
			result.SettledPositions++
			result.RealizedPnLUSD += pos.UnrealizedPnLUSD
			continue
		}
		result.OpenPositions++
		result.UnrealizedPnLUSD += pos.UnrealizedPnLUSD
	}

	for i := range t.closed {
		result.RealizedPnLUSD += t.closed[i].RealizedPnLUSD
	}

	for _, pair := range t.pairs {
		if pair.Status == PairStatusOpen {
			result.OpenPairs++
		}
	}

	result.TotalPnLUSD = result.UnrealizedPnLUSD + result.RealizedPnLUSD
	return result
}

// GetPerformanceMetrics computes win/loss statistics by filtering the
// finished-pair history on each call. Fine at hundreds of pairs; a
// higher-throughput deployment would maintain running aggregates.
func (t *Tracker) GetPerformanceMetrics() PerformanceMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	var m PerformanceMetrics
	var grossWinUSD, grossLossUSD float64

	for _, pair := range t.pairs {
		if pair.Status == PairStatusOpen {
			continue
		}

		m.TotalTrades++
		pnl := pair.RealizedPnLUSD

		if pnl > 0 {
			m.Wins++
			grossWinUSD += pnl
			if pnl > m.LargestWinUSD {
				m.LargestWinUSD = pnl
			}
		} else if pnl < 0 {
			m.Losses++
			grossLossUSD += -pnl
			if -pnl > m.LargestLossUSD {
				m.LargestLossUSD = -pnl
			}
		}
	}

	if m.TotalTrades > 0 {
		m.WinRate = float64(m.Wins) / float64(m.TotalTrades)
	}
	if m.Wins > 0 {
		m.AvgWinUSD = grossWinUSD / float64(m.Wins)
	}
	if m.Losses > 0 {
		m.AvgLossUSD = grossLossUSD / float64(m.Losses)
	}

	switch {
	case grossLossUSD > 0:
		m.ProfitFactor = grossWinUSD / grossLossUSD
	case grossWinUSD > 0:
		m.ProfitFactor = math.Inf(1)
	}

	return m
}
