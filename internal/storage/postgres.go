package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jmlago/prediction-arb/internal/arbitrage"
	"github.com/jmlago/prediction-arb/pkg/types"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores a detected opportunity. Legs are serialized
// into a JSONB column so every strategy shape fits one schema.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	legs, err := json.Marshal(opp.Legs)
	if err != nil {
		return fmt.Errorf("marshal legs: %w", err)
	}

	query := `
		INSERT INTO opportunities (
			id, strategy, market_id, legs, total_cost_cents, fees_cents,
			gross_profit_usd, net_profit_usd, min_trade_size_usd,
			max_trade_size_usd, liquidity_usd, slippage_estimate,
			risk_score, confidence, status, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err = p.db.ExecContext(ctx, query,
		opp.ID,
		string(opp.Strategy),
		opp.MarketID,
		legs,
		opp.TotalCostCents,
		opp.FeesCents,
		opp.GrossProfitUSD,
		opp.NetProfitUSD,
		opp.MinTradeSizeUSD,
		opp.MaxTradeSizeUSD,
		opp.LiquidityUSD,
		opp.SlippageEstimate,
		opp.RiskScore,
		opp.Confidence,
		string(opp.Status),
		opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("strategy", string(opp.Strategy)))

	return nil
}

// StoreFill stores an executed fill.
func (p *PostgresStorage) StoreFill(ctx context.Context, fill types.FillRecord) error {
	query := `
		INSERT INTO fills (
			id, order_id, market_id, platform, outcome, side,
			price_cents, size, fee_usd, filled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		fill.ID,
		fill.OrderID,
		fill.MarketID,
		fill.Platform,
		fill.Outcome,
		fill.Side,
		fill.PriceCents,
		fill.Size,
		fill.FeeUSD,
		fill.FilledAt,
	)
	if err != nil {
		return fmt.Errorf("insert fill: %w", err)
	}

	p.logger.Debug("fill-stored",
		zap.String("fill-id", fill.ID),
		zap.String("market-id", fill.MarketID))

	return nil
}

// StoreSettlement stores a market settlement record.
func (p *PostgresStorage) StoreSettlement(ctx context.Context, rec types.SettlementRecord) error {
	query := `
		INSERT INTO settlements (
			id, market_id, winning_outcome, expected_payout_usd,
			actual_payout_usd, settled_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		rec.ID,
		rec.MarketID,
		rec.WinningOutcome,
		rec.ExpectedPayoutUSD,
		rec.ActualPayoutUSD,
		rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("insert settlement: %w", err)
	}

	p.logger.Debug("settlement-stored",
		zap.String("market-id", rec.MarketID),
		zap.String("winning-outcome", rec.WinningOutcome))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
