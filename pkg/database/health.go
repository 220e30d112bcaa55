package database

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus 저장소 상태: 연결 응답과 서비스가 의존하는 테이블 도달 여부
type HealthStatus struct {
	Driver       string        `json:"driver"`
	Healthy      bool          `json:"healthy"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Tables       []TableStatus `json:"tables,omitempty"`
	Stats        *PoolStats    `json:"stats,omitempty"`
}

// TableStatus 테이블 하나의 조회 가능 여부
type TableStatus struct {
	Name      string `json:"name"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// checkTables runs probe against each table. The first failure is returned
// after every table has been recorded.
func checkTables(ctx context.Context, status *HealthStatus, tables []string, probe func(context.Context, string) error) error {
	var firstErr error
	for _, table := range tables {
		ts := TableStatus{Name: table, Reachable: true}
		if err := probe(ctx, table); err != nil {
			ts.Reachable = false
			ts.Error = err.Error()
			if firstErr == nil {
				firstErr = fmt.Errorf("table %s unreachable: %w", table, err)
			}
		}
		status.Tables = append(status.Tables, ts)
	}
	return firstErr
}
