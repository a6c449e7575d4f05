package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmlago/prediction-arb/internal/circuitbreaker"
	"github.com/jmlago/prediction-arb/internal/positions"
	"go.uber.org/zap"
)

// StatusHandler serves the operator API: breaker state, portfolio P&L,
// open positions and pairs.
type StatusHandler struct {
	breaker *circuitbreaker.Breaker
	tracker *positions.Tracker
	logger  *zap.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(breaker *circuitbreaker.Breaker, tracker *positions.Tracker, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		breaker: breaker,
		tracker: tracker,
		logger:  logger,
	}
}

// BreakerStatus is the JSON view of the circuit breaker.
type BreakerStatus struct {
	State                  string  `json:"state"`
	CanTrade               bool    `json:"can_trade"`
	ErrorCount             int     `json:"error_count"`
	ConsecutiveErrors      int     `json:"consecutive_errors"`
	DailyPnLUSD            float64 `json:"daily_pnl_usd"`
	RemainingLossBudgetUSD float64 `json:"remaining_loss_budget_usd"`
	OpenPositionCount      int     `json:"open_position_count"`
	TotalPositionUSD       float64 `json:"total_position_usd"`
	TripReason             string  `json:"trip_reason,omitempty"`
}

// PortfolioStatus is the JSON view of tracker-level P&L.
type PortfolioStatus struct {
	UnrealizedPnLUSD float64 `json:"unrealized_pnl_usd"`
	RealizedPnLUSD   float64 `json:"realized_pnl_usd"`
	TotalPnLUSD      float64 `json:"total_pnl_usd"`
	OpenPositions    int     `json:"open_positions"`
	SettledPositions int     `json:"settled_positions"`
	OpenPairs        int     `json:"open_pairs"`
}

// StatusResponse is the combined /api/status payload.
type StatusResponse struct {
	Breaker   BreakerStatus   `json:"breaker"`
	Portfolio PortfolioStatus `json:"portfolio"`
}

// PositionView is the JSON view of one open leg.
type PositionView struct {
	ID                string     `json:"id"`
	MarketID          string     `json:"market_id"`
	Platform          string     `json:"platform"`
	Outcome           string     `json:"outcome"`
	Quantity          float64    `json:"quantity"`
	EntryPriceCents   int        `json:"entry_price_cents"`
	CurrentPriceCents int        `json:"current_price_cents"`
	CostBasisUSD      float64    `json:"cost_basis_usd"`
	CurrentValueUSD   float64    `json:"current_value_usd"`
	UnrealizedPnLUSD  float64    `json:"unrealized_pnl_usd"`
	PairID            string     `json:"pair_id,omitempty"`
	OpenedAt          time.Time  `json:"opened_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}

// PairView is the JSON view of one arbitrage pair.
type PairView struct {
	ID              string  `json:"id"`
	Strategy        string  `json:"strategy"`
	Status          string  `json:"status"`
	EntryCostUSD    float64 `json:"entry_cost_usd"`
	CurrentValueUSD float64 `json:"current_value_usd"`
	NetPnLUSD       float64 `json:"net_pnl_usd"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleStatus handles GET /api/status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.breaker.GetStatus()
	pnl := h.tracker.CalculatePortfolioPnL()

	resp := StatusResponse{
		Breaker: BreakerStatus{
			State:                  string(status.State),
			CanTrade:               status.CanTrade,
			ErrorCount:             status.ErrorCount,
			ConsecutiveErrors:      status.ConsecutiveErrors,
			DailyPnLUSD:            status.DailyPnLUSD,
			RemainingLossBudgetUSD: status.RemainingLossBudgetUSD,
			OpenPositionCount:      status.OpenPositionCount,
			TotalPositionUSD:       status.TotalPositionUSD,
			TripReason:             status.TripReason,
		},
		Portfolio: PortfolioStatus{
			UnrealizedPnLUSD: pnl.UnrealizedPnLUSD,
			RealizedPnLUSD:   pnl.RealizedPnLUSD,
			TotalPnLUSD:      pnl.TotalPnLUSD,
			OpenPositions:    pnl.OpenPositions,
			SettledPositions: pnl.SettledPositions,
			OpenPairs:        pnl.OpenPairs,
		},
	}

	h.writeJSON(w, resp)
}

// HandlePositions handles GET /api/positions requests.
func (h *StatusHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	active := h.tracker.ActivePositionList()

	views := make([]PositionView, 0, len(active))
	for _, pos := range active {
		views = append(views, PositionView{
			ID:                pos.ID,
			MarketID:          pos.MarketID,
			Platform:          pos.Platform,
			Outcome:           pos.Outcome,
			Quantity:          pos.Quantity,
			EntryPriceCents:   pos.EntryPriceCents,
			CurrentPriceCents: pos.CurrentPriceCents,
			CostBasisUSD:      pos.CostBasisUSD,
			CurrentValueUSD:   pos.CurrentValueUSD,
			UnrealizedPnLUSD:  pos.UnrealizedPnLUSD,
			PairID:            pos.PairID,
			OpenedAt:          pos.OpenedAt,
			SettledAt:         pos.SettledAt,
		})
	}

	h.writeJSON(w, views)
}

// HandlePairs handles GET /api/pairs requests.
func (h *StatusHandler) HandlePairs(w http.ResponseWriter, r *http.Request) {
	pairs := h.tracker.Pairs()

	views := make([]PairView, 0, len(pairs))
	for _, snap := range pairs {
		views = append(views, PairView{
			ID:              snap.ID,
			Strategy:        snap.Strategy,
			Status:          string(snap.Status),
			EntryCostUSD:    snap.EntryCostUSD,
			CurrentValueUSD: snap.CurrentValueUSD,
			NetPnLUSD:       snap.NetPnLUSD,
		})
	}

	h.writeJSON(w, views)
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *StatusHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{Error: message}
	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		h.logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
