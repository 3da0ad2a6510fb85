package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agentorch/internal/common"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository 基于 GORM 的 Repository 实现，支持 PostgreSQL 与 SQLite
type GormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// RepositoryOption GormRepository 可选项
type RepositoryOption func(*GormRepository)

// WithRepositoryClock 替换写入 started_at/completed_at 时使用的时钟
func WithRepositoryClock(now func() time.Time) RepositoryOption {
	return func(r *GormRepository) { r.now = now }
}

// NewGormRepository 创建 GORM 调度仓储
func NewGormRepository(db *gorm.DB, opts ...RepositoryOption) *GormRepository {
	r := &GormRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ Repository = (*GormRepository)(nil)

var (
	cancelableStatuses = []string{string(ExecutionPending), string(ExecutionRunning), string(ExecutionRetrying)}
	startableStatuses  = []string{string(ExecutionPending), string(ExecutionRetrying)}
	runningStatuses    = []string{string(ExecutionRunning)}
)

func (r *GormRepository) timestamp() time.Time {
	return r.now().UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GetDueSchedules 获取到期调度
func (r *GormRepository) GetDueSchedules(ctx context.Context, before time.Time) ([]*Schedule, error) {
	var schedules []*Schedule
	err := r.db.WithContext(ctx).
		Scopes(common.WithStatus(string(ScheduleStatusActive)), common.DueBy("next_run_at", before)).
		Order("next_run_at ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("查询到期调度失败: %w", err)
	}
	return schedules, nil
}

// GetRetryableExecutions 获取到达重试时间的执行
func (r *GormRepository) GetRetryableExecutions(ctx context.Context, now time.Time) ([]*ScheduleExecution, error) {
	var executions []*ScheduleExecution
	err := r.db.WithContext(ctx).
		Scopes(common.WithStatus(string(ExecutionRetrying)), common.DueBy("next_retry_at", now)).
		Order("next_retry_at ASC").
		Find(&executions).Error
	if err != nil {
		return nil, fmt.Errorf("查询待重试执行失败: %w", err)
	}
	return executions, nil
}

// CreateExecution 创建 pending 执行记录
func (r *GormRepository) CreateExecution(ctx context.Context, scheduleID, orgID string, firedAt time.Time, executionNumber int) (*ScheduleExecution, error) {
	exec := &ScheduleExecution{
		ID:              uuid.NewString(),
		ScheduleID:      scheduleID,
		OrgID:           orgID,
		ExecutionNumber: executionNumber,
		Status:          ExecutionPending,
		FiredAt:         firedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		return nil, fmt.Errorf("创建执行记录失败: %w", err)
	}
	return exec, nil
}

// transition 仅当执行处于 from 之一时更新；未命中时区分“不存在”与“状态不符”
func (r *GormRepository) transition(ctx context.Context, id string, from []string, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&ScheduleExecution{}).
		Where("id = ?", id).
		Scopes(common.WithStatus(from...)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&ScheduleExecution{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// StartExecution 标记执行开始
func (r *GormRepository) StartExecution(ctx context.Context, id, activityID string) error {
	ok, err := r.transition(ctx, id, startableStatuses, map[string]interface{}{
		"status":        string(ExecutionRunning),
		"activity_id":   activityID,
		"started_at":    r.timestamp(),
		"next_retry_at": nil,
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotStartable
	}
	return nil
}

// SucceedExecution 标记执行成功；执行已被取消时保持 canceled
func (r *GormRepository) SucceedExecution(ctx context.Context, id, summary string) error {
	_, err := r.transition(ctx, id, runningStatuses, map[string]interface{}{
		"status":         string(ExecutionSucceeded),
		"result_summary": summary,
		"error_message":  "",
		"completed_at":   r.timestamp(),
		"next_retry_at":  nil,
	})
	return err
}

// FailExecution 标记执行失败或待重试
func (r *GormRepository) FailExecution(ctx context.Context, id, errMsg string, shouldRetry bool, nextRetryAt *time.Time) error {
	updates := map[string]interface{}{
		"error_message": errMsg,
	}
	if shouldRetry {
		updates["status"] = string(ExecutionRetrying)
		updates["retry_attempt"] = gorm.Expr("retry_attempt + 1")
		updates["next_retry_at"] = utcPtr(nextRetryAt)
	} else {
		updates["status"] = string(ExecutionFailed)
		updates["completed_at"] = r.timestamp()
		updates["next_retry_at"] = nil
	}
	_, err := r.transition(ctx, id, runningStatuses, updates)
	return err
}

// RecordSuccess 清零连续失败并记录最近运行时间
func (r *GormRepository) RecordSuccess(ctx context.Context, scheduleID string, ranAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&Schedule{}).
		Where("id = ?", scheduleID).
		Updates(map[string]interface{}{
			"consecutive_failures": 0,
			"last_error":           "",
			"last_run_at":          ranAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordFailure 累加连续失败，达到阈值时熔断
func (r *GormRepository) RecordFailure(ctx context.Context, scheduleID string, maxRetries int, lastError string, ranAt time.Time) (bool, error) {
	marked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Schedule{}).
			Where("id = ?", scheduleID).
			Updates(map[string]interface{}{
				"consecutive_failures": gorm.Expr("consecutive_failures + 1"),
				"last_error":           lastError,
				"last_run_at":          ranAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if maxRetries <= 0 {
			return nil
		}

		var current Schedule
		if err := tx.Select("id", "consecutive_failures", "status").Where("id = ?", scheduleID).First(&current).Error; err != nil {
			return notFound(err)
		}
		if current.ConsecutiveFailures < maxRetries {
			return nil
		}

		result = tx.Model(&Schedule{}).
			Where("id = ? AND status IN ?", scheduleID, []string{string(ScheduleStatusActive), string(ScheduleStatusPaused)}).
			Update("status", string(ScheduleStatusFailed))
		if result.Error != nil {
			return result.Error
		}
		marked = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

// UpdateNextRun 更新下次运行时间，nil 表示不再有计划运行
func (r *GormRepository) UpdateNextRun(ctx context.Context, scheduleID string, nextRunAt *time.Time) error {
	return r.db.WithContext(ctx).Model(&Schedule{}).
		Where("id = ?", scheduleID).
		Update("next_run_at", utcPtr(nextRunAt)).Error
}

// MarkCompleted 一次性调度执行成功后归档
func (r *GormRepository) MarkCompleted(ctx context.Context, scheduleID string) error {
	return r.db.WithContext(ctx).Model(&Schedule{}).
		Where("id = ?", scheduleID).
		Updates(map[string]interface{}{
			"status":      string(ScheduleStatusCompleted),
			"next_run_at": nil,
		}).Error
}

// GetLatestExecution 获取编号最大的执行
func (r *GormRepository) GetLatestExecution(ctx context.Context, scheduleID string) (*ScheduleExecution, error) {
	var exec ScheduleExecution
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("execution_number DESC").
		First(&exec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &exec, nil
}

// GetExecutionByID 获取执行记录
func (r *GormRepository) GetExecutionByID(ctx context.Context, id string) (*ScheduleExecution, error) {
	var exec ScheduleExecution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error; err != nil {
		return nil, notFound(err)
	}
	return &exec, nil
}

// CancelExecution 取消未结束的执行
func (r *GormRepository) CancelExecution(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, cancelableStatuses, map[string]interface{}{
		"status":        string(ExecutionCanceled),
		"completed_at":  r.timestamp(),
		"next_retry_at": nil,
	})
}

// GetByIDForOrg 按组织获取调度
func (r *GormRepository) GetByIDForOrg(ctx context.Context, scheduleID, orgID string) (*Schedule, error) {
	var schedule Schedule
	err := r.db.WithContext(ctx).
		Scopes(common.ByOrg(orgID)).
		Where("id = ?", scheduleID).
		First(&schedule).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &schedule, nil
}

// CreateSchedule 创建调度，ID 冲突时跳过
func (r *GormRepository) CreateSchedule(ctx context.Context, schedule *Schedule) (bool, error) {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = ScheduleStatusPendingApproval
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}
	if schedule.RetryConfig == (RetryConfig{}) {
		schedule.RetryConfig = DefaultRetryConfig()
	}
	schedule.NextRunAt = utcPtr(schedule.NextRunAt)
	schedule.LastRunAt = utcPtr(schedule.LastRunAt)
	schedule.OneTimeAt = utcPtr(schedule.OneTimeAt)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(schedule)
	if result.Error != nil {
		return false, fmt.Errorf("创建调度失败: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetByID 获取调度
func (r *GormRepository) GetByID(ctx context.Context, scheduleID string) (*Schedule, error) {
	var schedule Schedule
	if err := r.db.WithContext(ctx).Where("id = ?", scheduleID).First(&schedule).Error; err != nil {
		return nil, notFound(err)
	}
	return &schedule, nil
}

// ListActiveSchedules 获取全部 active 调度
func (r *GormRepository) ListActiveSchedules(ctx context.Context) ([]*Schedule, error) {
	var schedules []*Schedule
	err := r.db.WithContext(ctx).
		Scopes(common.WithStatus(string(ScheduleStatusActive))).
		Order("created_at ASC").
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("查询活跃调度失败: %w", err)
	}
	return schedules, nil
}

// UpdateStatus 更新调度状态
func (r *GormRepository) UpdateStatus(ctx context.Context, scheduleID string, status ScheduleStatus) error {
	result := r.db.WithContext(ctx).Model(&Schedule{}).
		Where("id = ?", scheduleID).
		Update("status", string(status))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetFailures 清零连续失败计数
func (r *GormRepository) ResetFailures(ctx context.Context, scheduleID string) error {
	return r.db.WithContext(ctx).Model(&Schedule{}).
		Where("id = ?", scheduleID).
		Updates(map[string]interface{}{
			"consecutive_failures": 0,
			"last_error":           "",
		}).Error
}

// ListExecutions 按编号倒序列出执行记录
func (r *GormRepository) ListExecutions(ctx context.Context, scheduleID string, limit int) ([]*ScheduleExecution, error) {
	var executions []*ScheduleExecution
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Order("execution_number DESC").
		Scopes(common.Paginate(limit, 20)).
		Find(&executions).Error
	if err != nil {
		return nil, fmt.Errorf("查询执行记录失败: %w", err)
	}
	return executions, nil
}
