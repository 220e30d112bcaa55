package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/config"
)

const forecastColumns = `sku, time_key, pvp_pred_a, pvp_pred_b, pvp_actual_a, pvp_actual_b,
	created_at, reconciled_at, reconcile_count`

// PostgresLedger Postgres 기반 ledger
type PostgresLedger struct {
	pool   *pgxpool.Pool
	policy string
	log    zerolog.Logger
}

// NewPostgresLedger 새 ledger 생성
func NewPostgresLedger(pool *pgxpool.Pool, policy string, log zerolog.Logger) (*PostgresLedger, error) {
	p, err := validatePolicy(policy)
	if err != nil {
		return nil, err
	}
	return &PostgresLedger{
		pool:   pool,
		policy: p,
		log:    log.With().Str("component", "ledger.postgres").Logger(),
	}, nil
}

// Migrate forecasts 테이블 생성 (idempotent)
func (l *PostgresLedger) Migrate(ctx context.Context) error {
	schema, err := loadSchema("postgres.sql")
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(schema) {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// CreateForecast 단일 INSERT. PK 위반은 ErrForecastExists
func (l *PostgresLedger) CreateForecast(ctx context.Context, key contracts.Key, predA, predB float64) (*contracts.Forecast, error) {
	query := `
		INSERT INTO forecasts (sku, time_key, pvp_pred_a, pvp_pred_b)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + forecastColumns

	f, err := scanForecastPG(l.pool.QueryRow(ctx, query, key.SKU, key.TimeKey, predA, predB))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrForecastExists
		}
		return nil, fmt.Errorf("insert forecast %s: %w", key, err)
	}
	return f, nil
}

// RecordActuals 단일 UPDATE ... RETURNING. 0행이면 ErrForecastNotFound
func (l *PostgresLedger) RecordActuals(ctx context.Context, key contracts.Key, actualA, actualB float64) (*contracts.Forecast, error) {
	query := `
		UPDATE forecasts
		SET pvp_actual_a = $3,
			pvp_actual_b = $4,
			reconciled_at = now(),
			reconcile_count = reconcile_count + 1
		WHERE sku = $1 AND time_key = $2`
	if l.policy == config.ActualsReject {
		query += ` AND pvp_actual_a IS NULL`
	}
	query += ` RETURNING ` + forecastColumns

	f, err := scanForecastPG(l.pool.QueryRow(ctx, query, key.SKU, key.TimeKey, actualA, actualB))
	if errors.Is(err, pgx.ErrNoRows) {
		if l.policy == config.ActualsReject {
			if _, getErr := l.GetForecast(ctx, key); getErr == nil {
				return nil, ErrActualsRecorded
			}
		}
		return nil, ErrForecastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update actuals %s: %w", key, err)
	}

	if f.ReconcileCount > 1 {
		l.log.Warn().
			Str("key", key.String()).
			Int("reconcile_count", f.ReconcileCount).
			Msg("actuals overwritten")
	}
	return f, nil
}

// GetForecast 키로 조회
func (l *PostgresLedger) GetForecast(ctx context.Context, key contracts.Key) (*contracts.Forecast, error) {
	query := `SELECT ` + forecastColumns + ` FROM forecasts WHERE sku = $1 AND time_key = $2`

	f, err := scanForecastPG(l.pool.QueryRow(ctx, query, key.SKU, key.TimeKey))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrForecastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get forecast %s: %w", key, err)
	}
	return f, nil
}

// Summary 예측 vs 실제 집계
func (l *PostgresLedger) Summary(ctx context.Context) (*contracts.ReconciliationSummary, error) {
	var s contracts.ReconciliationSummary
	err := l.pool.QueryRow(ctx, summaryQuery).Scan(
		&s.Total, &s.Reconciled, &s.MAEA, &s.MAEB, &s.BiasA, &s.BiasB,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize forecasts: %w", err)
	}
	s.Pending = s.Total - s.Reconciled
	s.ComputedAt = time.Now()
	return &s, nil
}

func scanForecastPG(row pgx.Row) (*contracts.Forecast, error) {
	var f contracts.Forecast
	err := row.Scan(
		&f.SKU, &f.TimeKey, &f.PredA, &f.PredB, &f.ActualA, &f.ActualB,
		&f.CreatedAt, &f.ReconciledAt, &f.ReconcileCount,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
