package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	return NewGormRepository(initTestDB(t), WithRepositoryClock(func() time.Time { return t0 }))
}

func TestGormRepository_CreateScheduleDefaultsAndConflict(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s := &Schedule{OrgID: "org-1", AgentID: "agent-1", ScheduleType: ScheduleTypeInterval, IntervalValue: 1, IntervalUnit: IntervalHour}
	created, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ScheduleStatusPendingApproval, got.Status)
	assert.Equal(t, "UTC", got.Timezone)
	assert.Equal(t, DefaultRetryConfig(), got.RetryConfig)

	dup := &Schedule{ID: s.ID, OrgID: "org-1", AgentID: "other", ScheduleType: ScheduleTypeInterval, IntervalValue: 1, IntervalUnit: IntervalHour}
	created, err = repo.CreateSchedule(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)

	got, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "agent-1", got.AgentID)
}

func TestGormRepository_ZeroMaxRetriesIsStored(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	s := intervalSchedule(nil)
	s.RetryConfig.MaxRetries = 0
	_, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RetryConfig.MaxRetries)
	assert.Equal(t, int64(60_000), got.RetryConfig.RetryDelayMs)
}

func TestGormRepository_GetDueSchedules(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	due := intervalSchedule(timePtr(t0.Add(-time.Minute)))
	exact := intervalSchedule(timePtr(t0))
	future := intervalSchedule(timePtr(t0.Add(time.Minute)))
	paused := intervalSchedule(timePtr(t0.Add(-time.Hour)))
	paused.Status = ScheduleStatusPaused
	noNext := intervalSchedule(nil)
	for _, s := range []*Schedule{due, exact, future, paused, noNext} {
		_, err := repo.CreateSchedule(ctx, s)
		require.NoError(t, err)
	}

	got, err := repo.GetDueSchedules(ctx, t0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, due.ID, got[0].ID)
	assert.Equal(t, exact.ID, got[1].ID)
}

func TestGormRepository_ExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := intervalSchedule(nil)
	_, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)

	_, err = repo.GetLatestExecution(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	exec, err := repo.CreateExecution(ctx, s.ID, s.OrgID, t0, 1)
	require.NoError(t, err)
	assert.Equal(t, ExecutionPending, exec.Status)

	require.NoError(t, repo.StartExecution(ctx, exec.ID, "act-1"))
	retryAt := t0.Add(time.Minute)
	require.NoError(t, repo.FailExecution(ctx, exec.ID, "timeout", true, &retryAt))

	got, err := repo.GetExecutionByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionRetrying, got.Status)
	assert.Equal(t, 1, got.RetryAttempt)
	assert.Equal(t, "timeout", got.ErrorMessage)
	require.NotNil(t, got.NextRetryAt)
	assert.True(t, retryAt.Equal(*got.NextRetryAt))
	assert.Nil(t, got.CompletedAt)

	retryable, err := repo.GetRetryableExecutions(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, retryable)
	retryable, err = repo.GetRetryableExecutions(ctx, retryAt)
	require.NoError(t, err)
	require.Len(t, retryable, 1)

	require.NoError(t, repo.StartExecution(ctx, exec.ID, "act-2"))
	require.NoError(t, repo.SucceedExecution(ctx, exec.ID, "done"))

	got, err = repo.GetExecutionByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionSucceeded, got.Status)
	assert.Equal(t, "act-2", got.ActivityID)
	assert.Equal(t, "done", got.ResultSummary)
	assert.Empty(t, got.ErrorMessage)
	assert.Nil(t, got.NextRetryAt)
	assert.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, repo.StartExecution(ctx, exec.ID, "act-3"), ErrNotStartable)
	assert.ErrorIs(t, repo.StartExecution(ctx, uuid.NewString(), "act-3"), ErrNotFound)

	latest, err := repo.GetLatestExecution(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, exec.ID, latest.ID)
}

func TestGormRepository_TerminalFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	exec, err := repo.CreateExecution(ctx, uuid.NewString(), "org-1", t0, 1)
	require.NoError(t, err)
	require.NoError(t, repo.StartExecution(ctx, exec.ID, "act"))
	require.NoError(t, repo.FailExecution(ctx, exec.ID, "bad prompt", false, nil))

	got, err := repo.GetExecutionByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionFailed, got.Status)
	assert.Equal(t, 0, got.RetryAttempt)
	assert.NotNil(t, got.CompletedAt)
}

func TestGormRepository_ExecutionNumberIsUnique(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	scheduleID := uuid.NewString()

	_, err := repo.CreateExecution(ctx, scheduleID, "org-1", t0, 1)
	require.NoError(t, err)
	_, err = repo.CreateExecution(ctx, scheduleID, "org-1", t0, 1)
	assert.Error(t, err)
	_, err = repo.CreateExecution(ctx, uuid.NewString(), "org-1", t0, 1)
	assert.NoError(t, err)
}

func TestGormRepository_CancelExecution(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	exec, err := repo.CreateExecution(ctx, uuid.NewString(), "org-1", t0, 1)
	require.NoError(t, err)
	require.NoError(t, repo.StartExecution(ctx, exec.ID, "act"))

	canceled, err := repo.CancelExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.True(t, canceled)

	canceled, err = repo.CancelExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.False(t, canceled)

	// 进行中的处理器随后返回成功，取消状态保持不变
	require.NoError(t, repo.SucceedExecution(ctx, exec.ID, "late"))
	got, err := repo.GetExecutionByID(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, ExecutionCanceled, got.Status)

	_, err = repo.CancelExecution(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_RecordFailureTripsBreaker(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := intervalSchedule(nil)
	_, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)

	marked, err := repo.RecordFailure(ctx, s.ID, 2, "first", t0)
	require.NoError(t, err)
	assert.False(t, marked)

	marked, err = repo.RecordFailure(ctx, s.ID, 2, "second", t0)
	require.NoError(t, err)
	assert.True(t, marked)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ScheduleStatusFailed, got.Status)
	assert.Equal(t, 2, got.ConsecutiveFailures)
	assert.Equal(t, "second", got.LastError)

	marked, err = repo.RecordFailure(ctx, s.ID, 2, "third", t0)
	require.NoError(t, err)
	assert.False(t, marked, "已熔断的调度不会重复标记")

	_, err = repo.RecordFailure(ctx, uuid.NewString(), 2, "x", t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_RecordFailureBreakerDisabled(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := intervalSchedule(nil)
	_, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		marked, err := repo.RecordFailure(ctx, s.ID, 0, "boom", t0)
		require.NoError(t, err)
		assert.False(t, marked)
	}
	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ScheduleStatusActive, got.Status)
	assert.Equal(t, 5, got.ConsecutiveFailures)
}

func TestGormRepository_RecordSuccessResets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := intervalSchedule(nil)
	_, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)

	_, err = repo.RecordFailure(ctx, s.ID, 3, "boom", t0)
	require.NoError(t, err)
	require.NoError(t, repo.RecordSuccess(ctx, s.ID, t0.Add(time.Minute)))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ConsecutiveFailures)
	assert.Empty(t, got.LastError)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, t0.Add(time.Minute).Equal(*got.LastRunAt))
}

func TestGormRepository_ScheduleStatusAndNextRun(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	s := intervalSchedule(timePtr(t0))
	_, err := repo.CreateSchedule(ctx, s)
	require.NoError(t, err)

	_, err = repo.GetByIDForOrg(ctx, s.ID, "org-other")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.UpdateNextRun(ctx, s.ID, nil))
	got, err := repo.GetByIDForOrg(ctx, s.ID, s.OrgID)
	require.NoError(t, err)
	assert.Nil(t, got.NextRunAt)

	require.NoError(t, repo.MarkCompleted(ctx, s.ID))
	active, err := repo.ListActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, repo.UpdateStatus(ctx, s.ID, ScheduleStatusActive))
	active, err = repo.ListActiveSchedules(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.NewString(), ScheduleStatusPaused), ErrNotFound)
}

func TestGormRepository_ListExecutions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	scheduleID := uuid.NewString()
	for n := 1; n <= 5; n++ {
		_, err := repo.CreateExecution(ctx, scheduleID, "org-1", t0, n)
		require.NoError(t, err)
	}

	got, err := repo.ListExecutions(ctx, scheduleID, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 5, got[0].ExecutionNumber)
	assert.Equal(t, 3, got[2].ExecutionNumber)
}
