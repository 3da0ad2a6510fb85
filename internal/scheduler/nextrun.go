package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// IntervalUnit 间隔单位，单复数均可
type IntervalUnit string

const (
	IntervalMinute IntervalUnit = "minute"
	IntervalHour   IntervalUnit = "hour"
	IntervalDay    IntervalUnit = "day"
	IntervalWeek   IntervalUnit = "week"
)

var unitDurations = map[IntervalUnit]time.Duration{
	IntervalMinute: time.Minute,
	IntervalHour:   time.Hour,
	IntervalDay:    24 * time.Hour,
	IntervalWeek:   7 * 24 * time.Hour,
}

// cronParser 标准 5 段表达式，外加 @daily 等描述符
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// IntervalDuration 计算 value × unit，无效配置返回 ErrInvalidInterval
func IntervalDuration(value int, unit IntervalUnit) (time.Duration, error) {
	base, ok := unitDurations[IntervalUnit(strings.TrimSuffix(strings.ToLower(string(unit)), "s"))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidInterval, unit)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidInterval, value)
	}
	return time.Duration(value) * base, nil
}

// cronSpec 把时区编码进表达式，交给 robfig 解析
func cronSpec(expr, timezone string) string {
	expr = strings.TrimSpace(expr)
	if timezone == "" || strings.HasPrefix(expr, "CRON_TZ=") || strings.HasPrefix(expr, "TZ=") {
		return expr
	}
	return "CRON_TZ=" + timezone + " " + expr
}

// ParseCron 按时区解析 cron 表达式
func ParseCron(expr, timezone string) (cron.Schedule, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidCron)
	}
	sched, err := cronParser.Parse(cronSpec(expr, timezone))
	if err != nil {
		return nil, fmt.Errorf("%w: %q (%s): %v", ErrInvalidCron, expr, timezone, err)
	}
	return sched, nil
}

// CalculateNextRun 计算调度下一次运行时间，不会修改 schedule
//
//	cron:     表达式在 schedule 时区下 now 之后的第一个时刻
//	interval: (LastRunAt 或 now) + value × unit
//	one_time: OneTimeAt 仍在未来时返回它，否则 nil
func CalculateNextRun(schedule *Schedule, now time.Time) (*time.Time, error) {
	switch schedule.ScheduleType {
	case ScheduleTypeCron:
		sched, err := ParseCron(schedule.CronExpression, schedule.Timezone)
		if err != nil {
			return nil, err
		}
		next := sched.Next(now)
		if next.IsZero() {
			return nil, nil
		}
		next = next.UTC()
		return &next, nil

	case ScheduleTypeInterval:
		period, err := IntervalDuration(schedule.IntervalValue, schedule.IntervalUnit)
		if err != nil {
			return nil, err
		}
		base := now
		if schedule.LastRunAt != nil {
			base = *schedule.LastRunAt
		}
		next := base.Add(period).UTC()
		return &next, nil

	case ScheduleTypeOneTime:
		if schedule.OneTimeAt == nil || !schedule.OneTimeAt.After(now) {
			return nil, nil
		}
		next := schedule.OneTimeAt.UTC()
		return &next, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheduleType, schedule.ScheduleType)
	}
}
