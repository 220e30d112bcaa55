package features

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/pvpforecast/internal/contracts"
)

// PostgresStore reads feature rows from a Postgres table
type PostgresStore struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgresStore 새 저장소 생성. table은 "schema.table" 형식 허용
func NewPostgresStore(pool *pgxpool.Pool, table string) (*PostgresStore, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("features table is required")
	}

	ident := pgx.Identifier(strings.Split(table, "."))
	query := fmt.Sprintf(`SELECT * FROM %s WHERE sku = $1 AND time_key = $2 LIMIT 1`, ident.Sanitize())

	return &PostgresStore{pool: pool, query: query}, nil
}

// Fetch 키로 feature row 조회
func (s *PostgresStore) Fetch(ctx context.Context, key contracts.Key) (Row, error) {
	rows, err := s.pool.Query(ctx, s.query, key.SKU, key.TimeKey)
	if err != nil {
		return nil, err
	}

	values, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeaturesNotFound
		}
		return nil, err
	}

	row := make(Row, len(values))
	for col, v := range values {
		normalized, err := normalizePG(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		row[col] = normalized
	}
	return row, nil
}

// normalizePG numeric 컬럼을 float64로 변환
func normalizePG(v any) (any, error) {
	switch n := v.(type) {
	case pgtype.Numeric:
		if !n.Valid {
			return nil, nil
		}
		f, err := n.Float64Value()
		if err != nil {
			return nil, err
		}
		return f.Float64, nil
	}
	return v, nil
}
