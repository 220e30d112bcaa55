package scheduler

import (
	"context"
	"time"
)

// Job cron으로 실행되는 작업 (현재는 정산 리포트)
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string
	Run(ctx context.Context) error
	// Schedule is a cron expression with a seconds field, e.g. "0 */15 * * * *"
	Schedule() string
}

// JobResult 한 번의 실행 결과 (재시도 포함)
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobStatus 작업별 누적 상태. 결과 목록은 보관하지 않음
type JobStatus struct {
	JobName   string     `json:"job_name"`
	Schedule  string     `json:"schedule"`
	Runs      int        `json:"runs"`
	Failures  int        `json:"failures"`
	LastRun   *JobResult `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

func (st *JobStatus) record(result JobResult) {
	st.Runs++
	if !result.Success {
		st.Failures++
		st.LastError = result.Error
	}
	st.LastRun = &result
}
