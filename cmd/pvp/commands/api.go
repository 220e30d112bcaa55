package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/pvpforecast/internal/api"
	"github.com/wonny/pvpforecast/internal/api/handlers"
	"github.com/wonny/pvpforecast/internal/scheduler"
	"github.com/wonny/pvpforecast/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 원장 스키마 확인 (migrate)
- 파이프라인 A/B 매니페스트 로드
- HTTP API 서버 시작
- (선택) 정산 리포트 스케줄러 동시 실행

Endpoints:
  POST /forecast_prices/              - 예측 생성
  POST /actual_prices/                - 실제 가격 정산
  GET  /forecasts/{sku}/{time_key}    - 예측 조회
  GET  /forecasts/summary             - 정산 요약
  GET  /health                        - Health check
  GET  /metrics                       - Prometheus metrics

Example:
  go run ./cmd/pvp api
  go run ./cmd/pvp api --port 8080 --with-scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort          string
	apiWithScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
	apiCmd.Flags().BoolVar(&apiWithScheduler, "with-scheduler", false, "정산 리포트 스케줄러 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== PVP Forecast API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 2. Wire dependencies
	d, err := buildDeps(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer d.Close()
	log := d.log

	// 3. Ensure ledger schema
	if err := d.ledger.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate ledger: %w", err)
	}

	// 4. Create handlers
	var recorder handlers.OutcomeRecorder
	if d.metrics != nil {
		recorder = d.metrics
	}
	forecastHandler := handlers.NewForecastHandler(d.service, recorder, log,
		handlers.WithStrictStatus(cfg.StrictHTTPStatus))
	healthHandler := handlers.NewHealthHandler(d.health, d.healthTables(), d.redis, d.pipelines, log)

	// 5. Create router
	router := api.NewRouter(api.RouterDeps{
		Forecast: forecastHandler,
		Health:   healthHandler,
		Metrics:  d.metrics,
		Limiter:  d.limiter(),
		Logger:   log,
	})

	// 6. Optional report scheduler
	var sched *scheduler.Scheduler
	if apiWithScheduler {
		sched = scheduler.New(log)
		var sink jobs.SummarySink
		if d.metrics != nil {
			sink = d.metrics
		}
		if err := sched.AddJob(jobs.NewReconciliationReportJob(d.service, sink, cfg.ReportSchedule, log)); err != nil {
			return err
		}
		sched.Start()
	}

	// 7. Serve until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.New(cfg, log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	err = server.Run(ctx)

	if sched != nil {
		sched.Stop()
	}
	return err
}
