package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/pvpforecast/internal/contracts"
	"github.com/wonny/pvpforecast/pkg/logger"
)

// SummarySource 원장 요약 조회
type SummarySource interface {
	Summary(ctx context.Context) (*contracts.ReconciliationSummary, error)
}

// SummarySink 요약 게이지 갱신 (metrics)
type SummarySink interface {
	SetSummary(s *contracts.ReconciliationSummary)
}

// ReconciliationReportJob summarizes forecast accuracy on a schedule
type ReconciliationReportJob struct {
	source   SummarySource
	sink     SummarySink
	schedule string
	logger   *logger.Logger

	mu   sync.Mutex
	last *contracts.ReconciliationSummary
}

// NewReconciliationReportJob creates the report job. sink may be nil
func NewReconciliationReportJob(source SummarySource, sink SummarySink, schedule string, log *logger.Logger) *ReconciliationReportJob {
	return &ReconciliationReportJob{
		source:   source,
		sink:     sink,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ReconciliationReportJob) Name() string {
	return "reconciliation_report"
}

// Schedule returns the configured cron schedule
func (j *ReconciliationReportJob) Schedule() string {
	return j.schedule
}

// Run computes the summary, logs it and publishes it to the sink
func (j *ReconciliationReportJob) Run(ctx context.Context) error {
	s, err := j.source.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summarize ledger: %w", err)
	}

	if j.sink != nil {
		j.sink.SetSummary(s)
	}

	fields := map[string]interface{}{
		"total":      s.Total,
		"reconciled": s.Reconciled,
		"pending":    s.Pending,
		"coverage":   s.Coverage(),
	}
	if s.Reconciled > 0 {
		fields["mae_a"] = s.MAEA
		fields["mae_b"] = s.MAEB
		fields["bias_a"] = s.BiasA
		fields["bias_b"] = s.BiasB
	}
	j.logger.WithFields(fields).Info("Reconciliation report")

	j.mu.Lock()
	j.last = s
	j.mu.Unlock()
	return nil
}

// Last returns the most recent summary, nil before the first run
func (j *ReconciliationReportJob) Last() *contracts.ReconciliationSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
