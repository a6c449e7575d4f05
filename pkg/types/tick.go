package types

// PriceTick is one live price update from the market data transport.
// The transport itself is an external collaborator; this is the decoded
// payload the engine consumes.
type PriceTick struct {
	ConditionID  string  `json:"condition_id"`
	TokenID      string  `json:"token_id"`
	Platform     string  `json:"platform"`
	Outcome      string  `json:"outcome"`
	PriceCents   int     `json:"price"`
	LiquidityUSD float64 `json:"liquidity"`
	Timestamp    int64   `json:"timestamp"`
}

// SettlementEvent announces that a market resolved to a final outcome.
type SettlementEvent struct {
	ConditionID    string `json:"condition_id"`
	WinningOutcome string `json:"winning_outcome"`
	Timestamp      int64  `json:"timestamp"`
}

// MarketMeta describes a market's shape so the book knows how to
// assemble snapshots from its ticks.
type MarketMeta struct {
	ConditionID string      `json:"condition_id"`
	Question    string      `json:"question"`
	Category    string      `json:"category"`
	Shape       MarketShape `json:"shape"`
	Outcomes    []string    `json:"outcomes,omitempty"`
}
