package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/pvpforecast/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }

func (j *countingJob) Run(ctx context.Context) error {
	if j.calls.Add(1) <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func TestAddJob_Duplicate(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "report", schedule: "0 0 * * * *"}))
	assert.Error(t, s.AddJob(&countingJob{name: "report", schedule: "0 0 * * * *"}))
	assert.Equal(t, []string{"report"}, s.GetAllJobs())
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := New(logger.Nop())
	assert.Error(t, s.AddJob(&countingJob{name: "bad", schedule: "not a cron"}))
	assert.Empty(t, s.GetAllJobs())
}

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	s := New(logger.Nop(), WithRetry(3, time.Millisecond))
	job := &countingJob{name: "report", schedule: "@hourly", failures: 2}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "report")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, int32(3), job.calls.Load())

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Runs)
	assert.Equal(t, 0, status[0].Failures)
	require.NotNil(t, status[0].LastRun)
	assert.True(t, status[0].LastRun.Success)
}

func TestRunJob_ExhaustsRetries(t *testing.T) {
	s := New(logger.Nop(), WithRetry(1, time.Millisecond))
	job := &countingJob{name: "report", schedule: "@hourly", failures: 100}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "report")
	assert.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transient", result.Error)
	assert.Equal(t, int32(2), job.calls.Load())

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, 1, status[0].Failures)
	assert.Equal(t, "transient", status[0].LastError)
}

func TestRunJob_Unknown(t *testing.T) {
	s := New(logger.Nop())
	_, err := s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "report", schedule: "@hourly"}))

	require.NoError(t, s.RemoveJob("report"))
	assert.Empty(t, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("report"))
}

func TestStatus_KeepsCountersNotResults(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, time.Millisecond))
	job := &countingJob{name: "report", schedule: "@hourly", failures: 1}
	require.NoError(t, s.AddJob(job))
	require.NoError(t, s.AddJob(&countingJob{name: "audit", schedule: "@daily"}))

	_, err := s.RunJob(context.Background(), "report")
	assert.Error(t, err)
	for i := 0; i < 3; i++ {
		_, err = s.RunJob(context.Background(), "report")
		require.NoError(t, err)
	}

	status := s.Status()
	require.Len(t, status, 2)
	assert.Equal(t, "audit", status[0].JobName)
	assert.Equal(t, 0, status[0].Runs)
	assert.Nil(t, status[0].LastRun)

	report := status[1]
	assert.Equal(t, "@hourly", report.Schedule)
	assert.Equal(t, 4, report.Runs)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, "transient", report.LastError)
	assert.True(t, report.LastRun.Success)

	require.NoError(t, s.RemoveJob("report"))
	assert.Len(t, s.Status(), 1)
}
