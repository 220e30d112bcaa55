package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/pvpforecast/pkg/config"
)

// forecastCmd represents the forecast command group
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "예측 생성/정산/조회",
	Long: `API 서버 없이 예측 생명주기 연산을 직접 실행합니다.

Subcommands:
  run      - 예측 생성 (sku, time_key)
  actuals  - 실제 가격 정산
  get      - 저장된 예측 조회
  report   - 정산 요약

원장 스키마는 실행 전에 자동으로 생성됩니다 (pvp migrate 불필요).

Example:
  go run ./cmd/pvp forecast run X1 20240101
  go run ./cmd/pvp forecast actuals X1 20240101 9.8 10.2
  go run ./cmd/pvp forecast get X1 20240101
  go run ./cmd/pvp forecast report`,
}

var (
	forecastRunCmd = &cobra.Command{
		Use:   "run <sku> <time_key>",
		Short: "예측 생성",
		Args:  cobra.ExactArgs(2),
		RunE:  runForecast,
	}

	forecastActualsCmd = &cobra.Command{
		Use:   "actuals <sku> <time_key> <actual_A> <actual_B>",
		Short: "실제 가격 정산",
		Args:  cobra.ExactArgs(4),
		RunE:  runActuals,
	}

	forecastGetCmd = &cobra.Command{
		Use:   "get <sku> <time_key>",
		Short: "예측 조회",
		Args:  cobra.ExactArgs(2),
		RunE:  runGetForecast,
	}

	forecastReportCmd = &cobra.Command{
		Use:   "report",
		Short: "정산 요약",
		RunE:  runReport,
	}
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.AddCommand(forecastRunCmd)
	forecastCmd.AddCommand(forecastActualsCmd)
	forecastCmd.AddCommand(forecastGetCmd)
	forecastCmd.AddCommand(forecastReportCmd)
}

// buildLedgerDeps buildDeps 후 원장 스키마 보장 (새 SQLite 파일에서도 바로 실행 가능)
func buildLedgerDeps(ctx context.Context, cfg *config.Config, withService bool) (*deps, error) {
	d, err := buildDeps(ctx, cfg, withService)
	if err != nil {
		return nil, err
	}
	if err := d.ledger.Migrate(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return d, nil
}

func runForecast(cmd *cobra.Command, args []string) error {
	key, err := parseKeyArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := buildLedgerDeps(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer d.Close()

	result, err := d.service.Forecast(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("❌ forecast %s: %w", key, err)
	}
	return PrintJSON(result)
}

func runActuals(cmd *cobra.Command, args []string) error {
	key, err := parseKeyArgs(args)
	if err != nil {
		return err
	}
	actualA, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("actual_A must be a number: %q", args[2])
	}
	actualB, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("actual_B must be a number: %q", args[3])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := buildLedgerDeps(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer d.Close()

	result, err := d.service.RecordActuals(cmd.Context(), key, actualA, actualB)
	if err != nil {
		return fmt.Errorf("❌ record actuals %s: %w", key, err)
	}
	return PrintJSON(result)
}

func runGetForecast(cmd *cobra.Command, args []string) error {
	key, err := parseKeyArgs(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := buildLedgerDeps(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer d.Close()

	f, err := d.ledger.GetForecast(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("❌ get %s: %w", key, err)
	}
	return PrintJSON(f)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := buildLedgerDeps(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer d.Close()

	s, err := d.ledger.Summary(cmd.Context())
	if err != nil {
		return fmt.Errorf("❌ summary: %w", err)
	}
	PrintSummary(s)
	return nil
}
