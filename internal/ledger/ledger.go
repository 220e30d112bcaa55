package ledger

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/config"
)

// Table ledger 테이블 이름 (schema/*.sql과 일치)
const Table = "forecasts"

//go:embed schema/*.sql
var schemaFS embed.FS

var (
	// ErrForecastExists 같은 키의 forecast가 이미 생성됨 (동시성 결과, 안전하게 무시 가능)
	ErrForecastExists = errors.New("forecast already exists")
	// ErrForecastNotFound 키에 해당하는 forecast 없음
	ErrForecastNotFound = errors.New("forecast not found")
	// ErrActualsRecorded reject 정책에서 두 번째 actuals 제출
	ErrActualsRecorded = errors.New("actuals already recorded")
)

// Ledger forecast 레코드 저장소
// ⭐ SSOT: 키당 1회 생성은 저장소의 PRIMARY KEY 제약으로만 보장 (프로세스 내 락 없음)
type Ledger interface {
	// CreateForecast inserts the record; a duplicate key yields ErrForecastExists
	CreateForecast(ctx context.Context, key contracts.Key, predA, predB float64) (*contracts.Forecast, error)
	// RecordActuals sets both actual fields; a missing key yields ErrForecastNotFound
	RecordActuals(ctx context.Context, key contracts.Key, actualA, actualB float64) (*contracts.Forecast, error)
	GetForecast(ctx context.Context, key contracts.Key) (*contracts.Forecast, error)
	Summary(ctx context.Context) (*contracts.ReconciliationSummary, error)
	Migrate(ctx context.Context) error
}

func validatePolicy(policy string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", config.ActualsOverwrite:
		return config.ActualsOverwrite, nil
	case config.ActualsReject:
		return config.ActualsReject, nil
	}
	return "", fmt.Errorf("unknown actuals policy %q", policy)
}

func loadSchema(name string) (string, error) {
	data, err := schemaFS.ReadFile("schema/" + name)
	if err != nil {
		return "", fmt.Errorf("read schema %s: %w", name, err)
	}
	return string(data), nil
}

// splitStatements SQL 파일을 세미콜론 단위로 분리
func splitStatements(schema string) []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

const summaryQuery = `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN pvp_actual_a IS NOT NULL AND pvp_actual_b IS NOT NULL THEN 1 ELSE 0 END), 0),
		COALESCE(AVG(ABS(pvp_actual_a - pvp_pred_a)), 0),
		COALESCE(AVG(ABS(pvp_actual_b - pvp_pred_b)), 0),
		COALESCE(AVG(pvp_actual_a - pvp_pred_a), 0),
		COALESCE(AVG(pvp_actual_b - pvp_pred_b), 0)
	FROM forecasts`
