package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/config"
)

// SQLiteLedger SQLite 기반 ledger (단일 writer)
type SQLiteLedger struct {
	db     *sql.DB
	policy string
	now    func() time.Time
	log    zerolog.Logger
}

// NewSQLiteLedger 새 ledger 생성
func NewSQLiteLedger(db *sql.DB, policy string, log zerolog.Logger) (*SQLiteLedger, error) {
	p, err := validatePolicy(policy)
	if err != nil {
		return nil, err
	}
	return &SQLiteLedger{
		db:     db,
		policy: p,
		now:    time.Now,
		log:    log.With().Str("component", "ledger.sqlite").Logger(),
	}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Migrate forecasts 테이블 생성 (idempotent)
func (l *SQLiteLedger) Migrate(ctx context.Context) error {
	schema, err := loadSchema("sqlite.sql")
	if err != nil {
		return err
	}
	for _, stmt := range splitStatements(schema) {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// CreateForecast 단일 INSERT. PK 위반은 ErrForecastExists
func (l *SQLiteLedger) CreateForecast(ctx context.Context, key contracts.Key, predA, predB float64) (*contracts.Forecast, error) {
	createdAt := toMillis(l.now())

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO forecasts (sku, time_key, pvp_pred_a, pvp_pred_b, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.SKU, key.TimeKey, predA, predB, createdAt,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, ErrForecastExists
		}
		return nil, fmt.Errorf("insert forecast %s: %w", key, err)
	}

	return &contracts.Forecast{
		SKU:       key.SKU,
		TimeKey:   key.TimeKey,
		PredA:     predA,
		PredB:     predB,
		CreatedAt: fromMillis(createdAt),
	}, nil
}

// RecordActuals 단일 UPDATE ... RETURNING. 0행이면 ErrForecastNotFound
func (l *SQLiteLedger) RecordActuals(ctx context.Context, key contracts.Key, actualA, actualB float64) (*contracts.Forecast, error) {
	query := `
		UPDATE forecasts
		SET pvp_actual_a = ?,
			pvp_actual_b = ?,
			reconciled_at = ?,
			reconcile_count = reconcile_count + 1
		WHERE sku = ? AND time_key = ?`
	if l.policy == config.ActualsReject {
		query += ` AND pvp_actual_a IS NULL`
	}
	query += ` RETURNING ` + forecastColumns

	row := l.db.QueryRowContext(ctx, query, actualA, actualB, toMillis(l.now()), key.SKU, key.TimeKey)
	f, err := scanForecastSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
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
func (l *SQLiteLedger) GetForecast(ctx context.Context, key contracts.Key) (*contracts.Forecast, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+forecastColumns+` FROM forecasts WHERE sku = ? AND time_key = ?`,
		key.SKU, key.TimeKey,
	)
	f, err := scanForecastSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrForecastNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get forecast %s: %w", key, err)
	}
	return f, nil
}

// Summary 예측 vs 실제 집계
func (l *SQLiteLedger) Summary(ctx context.Context) (*contracts.ReconciliationSummary, error) {
	var s contracts.ReconciliationSummary
	err := l.db.QueryRowContext(ctx, summaryQuery).Scan(
		&s.Total, &s.Reconciled, &s.MAEA, &s.MAEB, &s.BiasA, &s.BiasB,
	)
	if err != nil {
		return nil, fmt.Errorf("summarize forecasts: %w", err)
	}
	s.Pending = s.Total - s.Reconciled
	s.ComputedAt = l.now()
	return &s, nil
}

func scanForecastSQLite(row *sql.Row) (*contracts.Forecast, error) {
	var (
		f            contracts.Forecast
		actualA      sql.NullFloat64
		actualB      sql.NullFloat64
		createdAt    int64
		reconciledAt sql.NullInt64
	)
	err := row.Scan(
		&f.SKU, &f.TimeKey, &f.PredA, &f.PredB, &actualA, &actualB,
		&createdAt, &reconciledAt, &f.ReconcileCount,
	)
	if err != nil {
		return nil, err
	}

	if actualA.Valid {
		f.ActualA = &actualA.Float64
	}
	if actualB.Valid {
		f.ActualB = &actualB.Float64
	}
	f.CreatedAt = fromMillis(createdAt)
	if reconciledAt.Valid {
		t := fromMillis(reconciledAt.Int64)
		f.ReconciledAt = &t
	}
	return &f, nil
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "forecasts.")
}
