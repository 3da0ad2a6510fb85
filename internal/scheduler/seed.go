package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedSchedule YAML 中的一条调度定义
type SeedSchedule struct {
	ID             string         `yaml:"id"`
	OrgID          string         `yaml:"org_id"`
	AgentID        string         `yaml:"agent_id"`
	AgentURL       string         `yaml:"agent_url"`
	Name           string         `yaml:"name"`
	Prompt         string         `yaml:"prompt"`
	ScheduleType   ScheduleType   `yaml:"schedule_type"`
	CronExpression string         `yaml:"cron_expression"`
	IntervalValue  int            `yaml:"interval_value"`
	IntervalUnit   IntervalUnit   `yaml:"interval_unit"`
	OneTimeAt      *time.Time     `yaml:"one_time_at"`
	Timezone       string         `yaml:"timezone"`
	Status         ScheduleStatus `yaml:"status"`
	Retry          *struct {
		MaxRetries        *int     `yaml:"max_retries"`
		RetryDelayMs      *int64   `yaml:"retry_delay_ms"`
		BackoffMultiplier *float64 `yaml:"backoff_multiplier"`
		MaxRetryDelayMs   *int64   `yaml:"max_retry_delay_ms"`
	} `yaml:"retry"`
	Metadata map[string]interface{} `yaml:"metadata"`
}

type seedFile struct {
	Schedules []SeedSchedule `yaml:"schedules"`
}

// SeedDefaults 种子文件未指定字段时的默认值
type SeedDefaults struct {
	Timezone string
	Retry    RetryConfig
}

// LoadSeedFile 读取 YAML 调度定义并校验
// 未写 status 的调度视为 active：运维写进种子文件即代表已审批
func LoadSeedFile(path string, defaults SeedDefaults) ([]*Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取调度种子文件失败: %w", err)
	}
	return ParseSeed(raw, defaults)
}

// ParseSeed 解析 YAML 调度定义
func ParseSeed(raw []byte, defaults SeedDefaults) ([]*Schedule, error) {
	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("解析调度种子文件失败: %w", err)
	}

	schedules := make([]*Schedule, 0, len(file.Schedules))
	for i, item := range file.Schedules {
		schedule, err := item.toSchedule(defaults)
		if err != nil {
			return nil, fmt.Errorf("第 %d 条调度无效: %w", i+1, err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func (item SeedSchedule) toSchedule(defaults SeedDefaults) (*Schedule, error) {
	if item.ID == "" || item.OrgID == "" || item.AgentID == "" {
		return nil, fmt.Errorf("id、org_id、agent_id 不能为空")
	}

	schedule := &Schedule{
		ID:             item.ID,
		OrgID:          item.OrgID,
		AgentID:        item.AgentID,
		AgentURL:       item.AgentURL,
		Name:           item.Name,
		Prompt:         item.Prompt,
		ScheduleType:   item.ScheduleType,
		CronExpression: item.CronExpression,
		IntervalValue:  item.IntervalValue,
		IntervalUnit:   item.IntervalUnit,
		OneTimeAt:      item.OneTimeAt,
		Timezone:       item.Timezone,
		Status:         item.Status,
		RetryConfig:    defaults.Retry,
		Metadata:       item.Metadata,
	}
	if schedule.Timezone == "" {
		schedule.Timezone = defaults.Timezone
	}
	if schedule.Timezone == "" {
		schedule.Timezone = "UTC"
	}
	if schedule.Status == "" {
		schedule.Status = ScheduleStatusActive
	}
	if r := item.Retry; r != nil {
		if r.MaxRetries != nil {
			schedule.RetryConfig.MaxRetries = *r.MaxRetries
		}
		if r.RetryDelayMs != nil {
			schedule.RetryConfig.RetryDelayMs = *r.RetryDelayMs
		}
		if r.BackoffMultiplier != nil {
			schedule.RetryConfig.BackoffMultiplier = *r.BackoffMultiplier
		}
		if r.MaxRetryDelayMs != nil {
			schedule.RetryConfig.MaxRetryDelayMs = *r.MaxRetryDelayMs
		}
	}

	switch schedule.ScheduleType {
	case ScheduleTypeCron:
		if _, err := ParseCron(schedule.CronExpression, schedule.Timezone); err != nil {
			return nil, err
		}
	case ScheduleTypeInterval:
		if _, err := IntervalDuration(schedule.IntervalValue, schedule.IntervalUnit); err != nil {
			return nil, err
		}
	case ScheduleTypeOneTime:
		if schedule.OneTimeAt == nil {
			return nil, fmt.Errorf("one_time 调度缺少 one_time_at")
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduleType, schedule.ScheduleType)
	}
	return schedule, nil
}

// SeedSchedules 写入种子调度，已存在的 ID 保持不变；新建调度的 next_run_at 从 now 起算
func SeedSchedules(ctx context.Context, repo Repository, schedules []*Schedule, now time.Time, log *zap.Logger) (int, error) {
	created := 0
	for _, schedule := range schedules {
		if schedule.NextRunAt == nil {
			next, err := CalculateNextRun(schedule, now)
			if err != nil {
				return created, fmt.Errorf("计算调度 %s 下次运行时间失败: %w", schedule.ID, err)
			}
			schedule.NextRunAt = next
		}
		ok, err := repo.CreateSchedule(ctx, schedule)
		if err != nil {
			return created, err
		}
		if ok {
			created++
			if log != nil {
				log.Info("导入种子调度", zap.String("schedule_id", schedule.ID), zap.String("name", schedule.Name))
			}
		}
	}
	return created, nil
}
