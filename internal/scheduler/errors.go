package scheduler

import "errors"

var (
	// ErrNotFound 调度或执行记录不存在
	ErrNotFound = errors.New("scheduler: not found")
	// ErrNotCancelable 执行已处于终态
	ErrNotCancelable = errors.New("scheduler: execution is not cancelable")
	// ErrNotStartable 执行不处于 pending/retrying，可能已被其他实例接管
	ErrNotStartable = errors.New("scheduler: execution is not startable")
	// ErrInvalidCron cron 表达式或时区无法解析
	ErrInvalidCron = errors.New("scheduler: invalid cron expression")
	// ErrInvalidInterval 间隔配置无效
	ErrInvalidInterval = errors.New("scheduler: invalid interval")
	// ErrScheduleCompleted 一次性调度已完成，不能恢复
	ErrScheduleCompleted = errors.New("scheduler: schedule already completed")
	// ErrUnknownScheduleType 未知触发方式
	ErrUnknownScheduleType = errors.New("scheduler: unknown schedule type")
)
