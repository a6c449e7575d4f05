package storage

import (
	"context"

	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/pkg/types"
)

// Storage is the interface for persisting detection and execution records.
type Storage interface {
	// StoreOpportunity stores a detected arbitrage opportunity.
	StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error

	// StoreFill stores an executed fill.
	StoreFill(ctx context.Context, fill types.FillRecord) error

	// StoreSettlement stores a market settlement record.
	StoreSettlement(ctx context.Context, rec types.SettlementRecord) error

	// Close closes the storage connection.
	Close() error
}
