package scheduler

import (
	"context"
	"time"
)

// Repository 调度与执行记录的持久化接口
type Repository interface {
	// GetDueSchedules 返回 active 且 next_run_at <= before 的调度
	GetDueSchedules(ctx context.Context, before time.Time) ([]*Schedule, error)
	// GetRetryableExecutions 返回 retrying 且 next_retry_at <= now 的执行
	GetRetryableExecutions(ctx context.Context, now time.Time) ([]*ScheduleExecution, error)

	CreateExecution(ctx context.Context, scheduleID, orgID string, firedAt time.Time, executionNumber int) (*ScheduleExecution, error)
	// StartExecution 将 pending/retrying 的执行标记为 running，否则返回 ErrNotStartable
	StartExecution(ctx context.Context, id, activityID string) error
	SucceedExecution(ctx context.Context, id, summary string) error
	// FailExecution shouldRetry 为真时进入 retrying 并累加 retry_attempt，否则进入 failed
	FailExecution(ctx context.Context, id, errMsg string, shouldRetry bool, nextRetryAt *time.Time) error

	RecordSuccess(ctx context.Context, scheduleID string, ranAt time.Time) error
	// RecordFailure 累加连续失败次数，达到 maxRetries 时把调度标记为 failed
	RecordFailure(ctx context.Context, scheduleID string, maxRetries int, lastError string, ranAt time.Time) (markedAsFailed bool, err error)
	UpdateNextRun(ctx context.Context, scheduleID string, nextRunAt *time.Time) error
	MarkCompleted(ctx context.Context, scheduleID string) error

	// GetLatestExecution 调度从未触发过时返回 ErrNotFound
	GetLatestExecution(ctx context.Context, scheduleID string) (*ScheduleExecution, error)
	GetExecutionByID(ctx context.Context, id string) (*ScheduleExecution, error)
	// CancelExecution 仅取消非终态执行，返回是否实际取消
	CancelExecution(ctx context.Context, id string) (bool, error)
	GetByIDForOrg(ctx context.Context, scheduleID, orgID string) (*Schedule, error)

	// CreateSchedule 插入调度，ID 已存在时不覆盖，返回是否新建
	CreateSchedule(ctx context.Context, schedule *Schedule) (bool, error)
	GetByID(ctx context.Context, scheduleID string) (*Schedule, error)
	ListActiveSchedules(ctx context.Context) ([]*Schedule, error)
	UpdateStatus(ctx context.Context, scheduleID string, status ScheduleStatus) error
	ResetFailures(ctx context.Context, scheduleID string) error
	ListExecutions(ctx context.Context, scheduleID string, limit int) ([]*ScheduleExecution, error)
}
