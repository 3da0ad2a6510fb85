package metrics

import (
	"context"
	"database/sql"
	"time"
)

// DBStatsCollector 定期采集数据库连接池指标
type DBStatsCollector struct {
	db       *sql.DB
	interval time.Duration
}

// NewDBStatsCollector 创建连接池指标采集器
func NewDBStatsCollector(db *sql.DB, interval time.Duration) *DBStatsCollector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &DBStatsCollector{db: db, interval: interval}
}

// Run 阻塞运行，直到 ctx 取消
func (c *DBStatsCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.CollectOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce()
		}
	}
}

// CollectOnce 采集一次
func (c *DBStatsCollector) CollectOnce() {
	if c.db == nil {
		return
	}
	stats := c.db.Stats()
	DBConnections.WithLabelValues("open").Set(float64(stats.OpenConnections))
	DBConnections.WithLabelValues("in_use").Set(float64(stats.InUse))
	DBConnections.WithLabelValues("idle").Set(float64(stats.Idle))
}

// RecordScheduleExecution 记录一次执行处理器调用
// 在调用处理器前后包装，返回 fn 的结果
func RecordScheduleExecution(scheduleType string, fn func() (bool, error)) (bool, error) {
	ScheduleExecutionsRunning.Inc()
	defer ScheduleExecutionsRunning.Dec()

	start := time.Now()
	ok, err := fn()
	ScheduleExecutionDuration.WithLabelValues(scheduleType).Observe(time.Since(start).Seconds())

	status := "succeeded"
	if err != nil || !ok {
		status = "failed"
	}
	ScheduleExecutionsTotal.WithLabelValues(scheduleType, status).Inc()
	return ok, err
}
