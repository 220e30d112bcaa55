package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/wonny/pvpforecast/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a formatted section header
func PrintHeader(title string) {
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", title)
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintJSON prints v as indented JSON
func PrintJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// PrintSummary prints a reconciliation summary table
func PrintSummary(s *contracts.ReconciliationSummary) {
	PrintHeader("Reconciliation Report")
	fmt.Printf("  Forecasts   : %d\n", s.Total)
	fmt.Printf("  Reconciled  : %d (%.1f%%)\n", s.Reconciled, s.Coverage()*100)
	fmt.Printf("  Pending     : %d\n", s.Pending)
	if s.Reconciled > 0 {
		fmt.Println("───────────────────────────────────────────────────────────")
		fmt.Printf("  %-10s %12s %12s\n", "pipeline", "MAE", "bias")
		fmt.Printf("  %-10s %12.4f %12.4f\n", "A", s.MAEA, s.BiasA)
		fmt.Printf("  %-10s %12.4f %12.4f\n", "B", s.MAEB, s.BiasB)
	}
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// parseKeyArgs parses "<sku> <time_key>" positional args
func parseKeyArgs(args []string) (contracts.Key, error) {
	tk, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return contracts.Key{}, fmt.Errorf("time_key must be an integer: %q", args[1])
	}
	if args[0] == "" {
		return contracts.Key{}, fmt.Errorf("sku is required")
	}
	return contracts.Key{SKU: args[0], TimeKey: tk}, nil
}
