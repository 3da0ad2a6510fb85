package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// initTestDB 创建内存数据库并迁移调度表
func initTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:scheduler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

// fakeClock 手动推进的时钟，定时器只记录不自动触发
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	initial   time.Duration
	period    time.Duration
	repeating bool
	fn        func()
	stopped   atomic.Bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.add(&fakeTimer{initial: d, fn: f})
}

func (c *fakeClock) Every(initial, period time.Duration, f func()) Timer {
	return c.add(&fakeTimer{initial: initial, period: period, repeating: true, fn: f})
}

func (c *fakeClock) add(t *fakeTimer) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) last() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return nil
	}
	return c.timers[len(c.timers)-1]
}

func (c *fakeClock) activeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped.Load() {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() { t.stopped.Store(true) }

// Fire 模拟定时器到期
func (t *fakeTimer) Fire() {
	if !t.stopped.Load() {
		t.fn()
	}
}

// countingHandler 记录调用次数并返回预设结果
type countingHandler struct {
	calls atomic.Int32
	fn    func(req ExecutionRequest) (ExecutionResult, error)
}

func (h *countingHandler) Handle(_ context.Context, req ExecutionRequest) (ExecutionResult, error) {
	h.calls.Add(1)
	if h.fn == nil {
		return ExecutionResult{Success: true, Summary: "ok"}, nil
	}
	return h.fn(req)
}

type harness struct {
	repo    *GormRepository
	clock   *fakeClock
	sched   *Scheduler
	handler *countingHandler
}

func newHarness(t *testing.T, fn func(req ExecutionRequest) (ExecutionResult, error)) *harness {
	t.Helper()
	h := &harness{
		repo:    NewGormRepository(initTestDB(t)),
		clock:   newFakeClock(t0),
		handler: &countingHandler{fn: fn},
	}
	h.sched = New(Config{
		Repository: h.repo,
		Handler:    h.handler,
		Logger:     zaptest.NewLogger(t),
		Clock:      h.clock,
	})
	t.Cleanup(h.sched.Stop)
	return h
}

func (h *harness) create(t *testing.T, s *Schedule) *Schedule {
	t.Helper()
	created, err := h.repo.CreateSchedule(context.Background(), s)
	require.NoError(t, err)
	require.True(t, created)
	return s
}

func (h *harness) reload(t *testing.T, id string) *Schedule {
	t.Helper()
	s, err := h.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return s
}

func intervalSchedule(next *time.Time) *Schedule {
	return &Schedule{
		ID:            uuid.NewString(),
		OrgID:         "org-1",
		AgentID:       "agent-1",
		Name:          "interval",
		Prompt:        "check inbox",
		ScheduleType:  ScheduleTypeInterval,
		IntervalValue: 5,
		IntervalUnit:  IntervalMinute,
		Timezone:      "UTC",
		Status:        ScheduleStatusActive,
		RetryConfig:   DefaultRetryConfig(),
		NextRunAt:     next,
	}
}

func cronSchedule(expr string) *Schedule {
	s := intervalSchedule(nil)
	s.Name = "cron"
	s.ScheduleType = ScheduleTypeCron
	s.CronExpression = expr
	s.IntervalValue = 0
	s.IntervalUnit = ""
	return s
}

func oneTimeSchedule(at time.Time) *Schedule {
	s := intervalSchedule(&at)
	s.Name = "one-time"
	s.ScheduleType = ScheduleTypeOneTime
	s.OneTimeAt = &at
	s.IntervalValue = 0
	s.IntervalUnit = ""
	return s
}

func timePtr(t time.Time) *time.Time { return &t }

func boolPtr(b bool) *bool { return &b }
