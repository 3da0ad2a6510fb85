package scheduler

import (
	"time"

	"gorm.io/datatypes"
)

// ScheduleType 触发方式
type ScheduleType string

const (
	ScheduleTypeCron     ScheduleType = "cron"
	ScheduleTypeInterval ScheduleType = "interval"
	ScheduleTypeOneTime  ScheduleType = "one_time"
)

// ScheduleStatus 调度状态
type ScheduleStatus string

const (
	ScheduleStatusPendingApproval ScheduleStatus = "pending_approval"
	ScheduleStatusActive          ScheduleStatus = "active"
	ScheduleStatusPaused          ScheduleStatus = "paused"
	ScheduleStatusFailed          ScheduleStatus = "failed"
	ScheduleStatusCompleted       ScheduleStatus = "completed"
)

// ExecutionStatus 单次执行状态
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionRetrying  ExecutionStatus = "retrying"
	ExecutionSucceeded ExecutionStatus = "succeeded"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionCanceled  ExecutionStatus = "canceled"
)

// IsTerminal 终态不可再取消或重试
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionSucceeded || s == ExecutionFailed || s == ExecutionCanceled
}

// RetryConfig 重试与熔断策略
type RetryConfig struct {
	MaxRetries        int     `json:"maxRetries" gorm:"not null"`
	RetryDelayMs      int64   `json:"retryDelayMs" gorm:"not null"`
	BackoffMultiplier float64 `json:"backoffMultiplier" gorm:"not null"`
	MaxRetryDelayMs   int64   `json:"maxRetryDelayMs" gorm:"not null"`
}

// DefaultRetryConfig 默认重试策略：最多 3 次，60s 起步，翻倍，上限 1 小时
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		RetryDelayMs:      60_000,
		BackoffMultiplier: 2,
		MaxRetryDelayMs:   3_600_000,
	}
}

// Schedule 绑定到某个智能体与提示词的触发定义
type Schedule struct {
	ID       string `json:"id" gorm:"primaryKey;type:uuid"`
	OrgID    string `json:"orgId" gorm:"size:100;not null;index"`
	AgentID  string `json:"agentId" gorm:"size:100;not null;index"`
	AgentURL string `json:"agentUrl" gorm:"size:500"`
	Name     string `json:"name" gorm:"size:255"`
	Prompt   string `json:"prompt" gorm:"type:text"`

	ScheduleType   ScheduleType `json:"scheduleType" gorm:"size:20;not null"`
	CronExpression string       `json:"cronExpression,omitempty" gorm:"size:100"`
	IntervalValue  int          `json:"intervalValue,omitempty"`
	IntervalUnit   IntervalUnit `json:"intervalUnit,omitempty" gorm:"size:20"`
	OneTimeAt      *time.Time   `json:"oneTimeAt,omitempty"`
	Timezone       string       `json:"timezone" gorm:"size:64;not null;default:UTC"`

	Status      ScheduleStatus `json:"status" gorm:"size:30;not null;default:pending_approval;index"`
	RetryConfig RetryConfig    `json:"retryConfig" gorm:"embedded;embeddedPrefix:retry_"`

	NextRunAt           *time.Time `json:"nextRunAt,omitempty" gorm:"index"`
	LastRunAt           *time.Time `json:"lastRunAt,omitempty"`
	ConsecutiveFailures int        `json:"consecutiveFailures" gorm:"not null;default:0"`
	LastError           string     `json:"lastError,omitempty" gorm:"type:text"`

	Metadata datatypes.JSONMap `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 表名
func (Schedule) TableName() string { return "agent_schedules" }

// ScheduleExecution 一次触发尝试
type ScheduleExecution struct {
	ID              string          `json:"id" gorm:"primaryKey;type:uuid"`
	ScheduleID      string          `json:"scheduleId" gorm:"type:uuid;not null;uniqueIndex:idx_schedule_execution_number,priority:1"`
	OrgID           string          `json:"orgId" gorm:"size:100;not null;index"`
	ExecutionNumber int             `json:"executionNumber" gorm:"not null;uniqueIndex:idx_schedule_execution_number,priority:2"`
	Status          ExecutionStatus `json:"status" gorm:"size:20;not null;default:pending;index"`
	RetryAttempt    int             `json:"retryAttempt" gorm:"not null;default:0"`
	ActivityID      string          `json:"activityId,omitempty" gorm:"size:100;index"`

	FiredAt     time.Time  `json:"firedAt" gorm:"not null"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	NextRetryAt *time.Time `json:"nextRetryAt,omitempty" gorm:"index"`

	ResultSummary string `json:"resultSummary,omitempty" gorm:"type:text"`
	ErrorMessage  string `json:"errorMessage,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 表名
func (ScheduleExecution) TableName() string { return "agent_schedule_executions" }

// Models 需要自动迁移的模型
func Models() []interface{} {
	return []interface{}{&Schedule{}, &ScheduleExecution{}}
}
