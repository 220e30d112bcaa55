package features

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/wonny/pvpforecast/internal/contracts"
)

// SQLiteStore reads feature rows from a SQLite table
type SQLiteStore struct {
	db    *sql.DB
	query string
}

// NewSQLiteStore 새 저장소 생성
func NewSQLiteStore(db *sql.DB, table string) (*SQLiteStore, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("features table is required")
	}

	query := fmt.Sprintf(`SELECT * FROM %s WHERE sku = ? AND time_key = ? LIMIT 1`, quoteIdent(table))
	return &SQLiteStore{db: db, query: query}, nil
}

// Fetch 키로 feature row 조회
func (s *SQLiteStore) Fetch(ctx context.Context, key contracts.Key) (Row, error) {
	rows, err := s.db.QueryContext(ctx, s.query, key.SKU, key.TimeKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrFeaturesNotFound
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
