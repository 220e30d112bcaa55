package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wonny/pvpforecast/pkg/config"
)

// SQLite wraps a single-writer SQLite handle
// ⭐ SSOT: SQLite 연결은 여기서만 생성
type SQLite struct {
	DB *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at path.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// SQLite는 writer가 하나뿐이고 :memory: DB는 커넥션마다 별개이므로 1개로 고정
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return &SQLite{DB: db}, nil
}

// Close closes the underlying handle
func (s *SQLite) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// HealthCheck pings the database and checks that each table can be queried
func (s *SQLite) HealthCheck(ctx context.Context, tables ...string) (*HealthStatus, error) {
	status := &HealthStatus{
		Driver:    config.DriverSQLite,
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := s.DB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	if err := checkTables(ctx, status, tables, s.probeTable); err != nil {
		status.Error = err.Error()
		return status, err
	}

	status.Healthy = true
	return status, nil
}

func (s *SQLite) probeTable(ctx context.Context, table string) error {
	rows, err := s.DB.QueryContext(ctx, `SELECT 1 FROM "`+strings.ReplaceAll(table, `"`, `""`)+`" LIMIT 0`)
	if err != nil {
		return err
	}
	return rows.Close()
}
