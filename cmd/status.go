package cmd

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmlago/prediction-arb/pkg/httpserver"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running engine for breaker and portfolio state",
	RunE:  runStatus,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringP("addr", "a", "http://localhost:8080", "Address of the running engine")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(addr + "/api/status")
	if err != nil {
		return fmt.Errorf("query engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var status httpserver.StatusResponse
	err = json.Unmarshal(body, &status)
	if err != nil {
		return fmt.Errorf("parse response: %w", err)
	}

	fmt.Printf("Circuit breaker\n")
	fmt.Printf("  State:            %s\n", status.Breaker.State)
	fmt.Printf("  Can trade:        %t\n", status.Breaker.CanTrade)
	fmt.Printf("  Daily P&L:        $%.2f\n", status.Breaker.DailyPnLUSD)
	fmt.Printf("  Loss budget left: $%.2f\n", status.Breaker.RemainingLossBudgetUSD)
	fmt.Printf("  Open positions:   %d ($%.2f)\n", status.Breaker.OpenPositionCount, status.Breaker.TotalPositionUSD)
	if status.Breaker.TripReason != "" {
		fmt.Printf("  Trip reason:      %s\n", status.Breaker.TripReason)
	}

	fmt.Printf("Portfolio\n")
	fmt.Printf("  Unrealized P&L:   $%.2f\n", status.Portfolio.UnrealizedPnLUSD)
	fmt.Printf("  Realized P&L:     $%.2f\n", status.Portfolio.RealizedPnLUSD)
	fmt.Printf("  Total P&L:        $%.2f\n", status.Portfolio.TotalPnLUSD)
	fmt.Printf("  Open positions:   %d\n", status.Portfolio.OpenPositions)
	fmt.Printf("  Settled:          %d\n", status.Portfolio.SettledPositions)
	fmt.Printf("  Open pairs:       %d\n", status.Portfolio.OpenPairs)

	return nil
}
