package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agentorch/internal/common"
	"agentorch/internal/logger"
	"agentorch/internal/metrics"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultPollInterval 兜底轮询周期
const DefaultPollInterval = 60 * time.Second

// Config 调度器依赖
type Config struct {
	Repository Repository
	// Handler 为 nil 时每次执行都视为成功
	Handler ExecutionHandler
	Logger  *zap.Logger
	Clock   Clock
	// PollInterval 兜底轮询周期，默认 60s
	PollInterval time.Duration
	// Location 调度未设置时区时使用，默认 UTC
	Location *time.Location
}

// registration 一个调度在本进程内的活动触发器
type registration struct {
	scheduleType ScheduleType
	timer        Timer
	cronID       cron.EntryID
}

// Scheduler 负责把 active 调度注册为定时器并驱动每次执行
//
// 触发语义为至少一次：定时器与兜底轮询可能重复触发同一调度，
// 每次触发都会生成独立的执行记录。
type Scheduler struct {
	repo         Repository
	handler      ExecutionHandler
	logger       *zap.Logger
	clock        Clock
	pollInterval time.Duration
	location     *time.Location
	tracer       trace.Tracer

	cron *cron.Cron

	mu        sync.Mutex
	entries   map[string]*registration
	pollTimer Timer
	started   bool
	stopped   bool

	ctx      context.Context
	cancel   context.CancelFunc
	inflight sync.WaitGroup

	numbering *common.KeyedMutex
}

// New 创建调度器
func New(cfg Config) *Scheduler {
	l := logger.OrNop(cfg.Logger).Named("scheduler")

	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{l: l}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		repo:         cfg.Repository,
		handler:      cfg.Handler,
		logger:       l,
		clock:        clock,
		pollInterval: poll,
		location:     loc,
		tracer:       otel.Tracer("agentorch/internal/scheduler"),
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		entries:   make(map[string]*registration),
		ctx:       ctx,
		cancel:    cancel,
		numbering: common.NewKeyedMutex(),
	}
}

// Start 注册全部 active 调度，启动 cron 与兜底轮询
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return errors.New("scheduler: already stopped")
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	schedules, err := s.repo.ListActiveSchedules(ctx)
	if err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return fmt.Errorf("加载活跃调度失败: %w", err)
	}
	registered := 0
	for _, sched := range schedules {
		if err := s.RegisterSchedule(sched); err != nil {
			continue
		}
		registered++
	}

	s.cron.Start()

	s.mu.Lock()
	s.pollTimer = s.clock.Every(s.pollInterval, s.pollInterval, func() {
		s.track(s.poll)
	})
	s.mu.Unlock()

	s.logger.Info("调度器已启动",
		zap.Int("active_schedules", len(schedules)),
		zap.Int("registered", registered),
		zap.Duration("poll_interval", s.pollInterval),
	)
	return nil
}

// Stop 停止轮询、cron 与全部定时器，等待进行中的执行返回；可重复调用
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	if s.pollTimer != nil {
		s.pollTimer.Stop()
		s.pollTimer = nil
	}
	for id, reg := range s.entries {
		s.stopRegistration(reg)
		delete(s.entries, id)
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.cancel()
	s.inflight.Wait()
	s.logger.Info("调度器已停止")
}

// RegisterSchedule 为调度安装触发器；已注册的先卸载，非 active 调度只卸载
func (s *Scheduler) RegisterSchedule(schedule *Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[schedule.ID]; ok {
		s.stopRegistration(existing)
		delete(s.entries, schedule.ID)
	}
	if s.stopped || schedule.Status != ScheduleStatusActive {
		return nil
	}

	id, orgID := schedule.ID, schedule.OrgID
	fire := func() { s.track(func(ctx context.Context) { s.fire(ctx, id, orgID) }) }

	reg := &registration{scheduleType: schedule.ScheduleType}
	switch schedule.ScheduleType {
	case ScheduleTypeCron:
		entryID, err := s.cron.AddFunc(cronSpec(schedule.CronExpression, s.timezone(schedule)), fire)
		if err != nil {
			s.logger.Error("注册 cron 调度失败",
				zap.String("schedule_id", id),
				zap.String("cron", schedule.CronExpression),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %v", ErrInvalidCron, err)
		}
		reg.cronID = entryID

	case ScheduleTypeInterval:
		period, err := IntervalDuration(schedule.IntervalValue, schedule.IntervalUnit)
		if err != nil {
			s.logger.Error("注册间隔调度失败", zap.String("schedule_id", id), zap.Error(err))
			return err
		}
		initial := period
		if schedule.NextRunAt != nil {
			initial = schedule.NextRunAt.Sub(s.clock.Now())
			if initial < 0 {
				initial = 0
			}
		}
		reg.timer = s.clock.Every(initial, period, fire)

	case ScheduleTypeOneTime:
		if schedule.OneTimeAt == nil {
			s.logger.Error("一次性调度缺少 oneTimeAt", zap.String("schedule_id", id))
			return fmt.Errorf("scheduler: one_time schedule %s has no oneTimeAt", id)
		}
		delay := schedule.OneTimeAt.Sub(s.clock.Now())
		if delay < 0 {
			delay = 0
		}
		reg.timer = s.clock.AfterFunc(delay, fire)

	default:
		s.logger.Error("未知触发方式", zap.String("schedule_id", id), zap.String("type", string(schedule.ScheduleType)))
		return fmt.Errorf("%w: %q", ErrUnknownScheduleType, schedule.ScheduleType)
	}

	s.entries[id] = reg
	metrics.ScheduleTimersRegistered.WithLabelValues(string(reg.scheduleType)).Inc()
	s.logger.Debug("调度已注册", zap.String("schedule_id", id), zap.String("type", string(reg.scheduleType)))
	return nil
}

// UnregisterSchedule 卸载调度的触发器，未注册时无操作
func (s *Scheduler) UnregisterSchedule(scheduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.entries[scheduleID]
	if !ok {
		return
	}
	s.stopRegistration(reg)
	delete(s.entries, scheduleID)
}

// stopRegistration 调用方持有 s.mu
func (s *Scheduler) stopRegistration(reg *registration) {
	if reg.timer != nil {
		reg.timer.Stop()
	}
	if reg.cronID != 0 {
		s.cron.Remove(reg.cronID)
	}
	metrics.ScheduleTimersRegistered.WithLabelValues(string(reg.scheduleType)).Dec()
}

// IsRegistered 调度是否有活动触发器
func (s *Scheduler) IsRegistered(scheduleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[scheduleID]
	return ok
}

// RegisteredCount 活动触发器数量
func (s *Scheduler) RegisteredCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TriggerManualRun 立即执行一次，不影响已注册的触发器
func (s *Scheduler) TriggerManualRun(ctx context.Context, schedule *Schedule) (*ScheduleExecution, error) {
	s.logger.Info("手动触发调度", zap.String("schedule_id", schedule.ID), zap.String("org_id", schedule.OrgID))
	return s.ExecuteSchedule(ctx, schedule)
}

// TriggerManualRunByID 按 ID 加载调度并立即执行，组织不匹配时返回 ErrNotFound
func (s *Scheduler) TriggerManualRunByID(ctx context.Context, scheduleID, orgID string) (*ScheduleExecution, error) {
	schedule, err := s.repo.GetByIDForOrg(ctx, scheduleID, orgID)
	if err != nil {
		return nil, err
	}
	return s.TriggerManualRun(ctx, schedule)
}

// ExecuteSchedule 创建执行记录、调用处理器并落库结果，返回最终的执行记录
func (s *Scheduler) ExecuteSchedule(ctx context.Context, schedule *Schedule) (*ScheduleExecution, error) {
	firedAt := s.clock.Now()

	exec, err := s.createExecution(ctx, schedule, firedAt)
	if err != nil {
		return nil, err
	}

	activityID := uuid.NewString()
	if err := s.repo.StartExecution(ctx, exec.ID, activityID); err != nil {
		// pending 记录不会被轮询拾取，这里直接取消
		if _, cancelErr := s.repo.CancelExecution(ctx, exec.ID); cancelErr != nil {
			s.logger.Error("取消未启动的执行失败", zap.String("execution_id", exec.ID), zap.Error(cancelErr))
		}
		return nil, fmt.Errorf("标记执行开始失败: %w", err)
	}
	exec.Status = ExecutionRunning
	exec.ActivityID = activityID

	return s.run(ctx, schedule, exec, firedAt)
}

// createExecution 同一调度的编号在本进程内串行分配
func (s *Scheduler) createExecution(ctx context.Context, schedule *Schedule, firedAt time.Time) (*ScheduleExecution, error) {
	unlock := s.numbering.Lock(schedule.ID)
	defer unlock()

	number := 1
	latest, err := s.repo.GetLatestExecution(ctx, schedule.ID)
	switch {
	case err == nil:
		number = latest.ExecutionNumber + 1
	case errors.Is(err, ErrNotFound):
	default:
		return nil, fmt.Errorf("读取最近执行失败: %w", err)
	}

	exec, err := s.repo.CreateExecution(ctx, schedule.ID, schedule.OrgID, firedAt, number)
	if err != nil {
		return nil, err
	}
	return exec, nil
}

// run 调用处理器并进入成功或失败分支，exec 必须已处于 running
func (s *Scheduler) run(ctx context.Context, schedule *Schedule, exec *ScheduleExecution, firedAt time.Time) (*ScheduleExecution, error) {
	ctx, span := s.tracer.Start(ctx, "Scheduler.ExecuteSchedule")
	defer span.End()
	span.SetAttributes(
		attribute.String("schedule.id", schedule.ID),
		attribute.String("schedule.type", string(schedule.ScheduleType)),
		attribute.String("org.id", schedule.OrgID),
		attribute.String("execution.id", exec.ID),
		attribute.Int("execution.number", exec.ExecutionNumber),
		attribute.Int("execution.retry_attempt", exec.RetryAttempt),
		attribute.String("activity.id", exec.ActivityID),
	)

	log := logger.WithContext(ctx, s.logger).With(
		zap.String("schedule_id", schedule.ID),
		zap.String("execution_id", exec.ID),
		zap.Int("execution_number", exec.ExecutionNumber),
		zap.String("activity_id", exec.ActivityID),
	)

	result, handlerErr := s.invoke(ctx, schedule, exec)

	var err error
	if handlerErr == nil && result.Success {
		err = s.onSuccess(ctx, log, schedule, exec, result.Summary, firedAt)
	} else {
		msg, retryable := describeFailure(result, handlerErr)
		span.SetStatus(codes.Error, msg)
		if handlerErr != nil {
			span.RecordError(handlerErr)
		}
		err = s.onFailure(ctx, log, schedule, exec, msg, retryable, firedAt)
	}
	if err != nil {
		span.RecordError(err)
		log.Error("落库执行结果失败", zap.Error(err))
		return nil, err
	}

	final, err := s.repo.GetExecutionByID(ctx, exec.ID)
	if err != nil {
		return nil, fmt.Errorf("读取执行记录失败: %w", err)
	}
	return final, nil
}

// invoke 调用处理器并记录指标
func (s *Scheduler) invoke(ctx context.Context, schedule *Schedule, exec *ScheduleExecution) (result ExecutionResult, err error) {
	if s.handler == nil {
		return ExecutionResult{Success: true, Summary: "no execution handler configured"}, nil
	}

	req := ExecutionRequest{Schedule: *schedule, Execution: *exec, ActivityID: exec.ActivityID}
	_, _ = metrics.RecordScheduleExecution(string(schedule.ScheduleType), func() (bool, error) {
		result, err = s.safeHandle(ctx, req)
		return result.Success, err
	})
	return result, err
}

// safeHandle panic 被捕获为不可重试错误
func (s *Scheduler) safeHandle(ctx context.Context, req ExecutionRequest) (result ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("执行处理器 panic",
				zap.String("schedule_id", req.Schedule.ID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			result = ExecutionResult{}
			err = Permanent(fmt.Errorf("execution handler panic: %v", r))
		}
	}()
	return s.handler.Handle(ctx, req)
}

// describeFailure 返回落库的错误信息与是否可重试
func describeFailure(result ExecutionResult, err error) (string, bool) {
	if err != nil {
		if result.Retryable != nil {
			return err.Error(), *result.Retryable
		}
		return err.Error(), ClassifyError(err)
	}
	msg := result.Error
	if msg == "" {
		msg = "execution handler reported failure"
	}
	if result.Retryable != nil {
		return msg, *result.Retryable
	}
	return msg, ClassifyMessage(msg)
}

func (s *Scheduler) onSuccess(ctx context.Context, log *zap.Logger, schedule *Schedule, exec *ScheduleExecution, summary string, firedAt time.Time) error {
	if err := s.repo.SucceedExecution(ctx, exec.ID, summary); err != nil {
		return fmt.Errorf("标记执行成功失败: %w", err)
	}
	if err := s.repo.RecordSuccess(ctx, schedule.ID, firedAt); err != nil {
		return fmt.Errorf("记录调度成功失败: %w", err)
	}

	if schedule.ScheduleType == ScheduleTypeOneTime {
		if err := s.repo.MarkCompleted(ctx, schedule.ID); err != nil {
			return fmt.Errorf("归档一次性调度失败: %w", err)
		}
		s.UnregisterSchedule(schedule.ID)
		log.Info("一次性调度已完成")
		return nil
	}

	if err := s.advanceNextRun(ctx, log, schedule, firedAt); err != nil {
		return err
	}
	log.Info("调度执行成功")
	return nil
}

func (s *Scheduler) onFailure(ctx context.Context, log *zap.Logger, schedule *Schedule, exec *ScheduleExecution, msg string, retryable bool, firedAt time.Time) error {
	cfg := schedule.RetryConfig
	currentAttempt := exec.RetryAttempt + 1
	shouldRetry := retryable && currentAttempt < cfg.MaxRetries

	var nextRetryAt *time.Time
	if shouldRetry {
		at := s.clock.Now().Add(RetryDelay(cfg, currentAttempt))
		nextRetryAt = &at
		metrics.ScheduleRetriesTotal.Inc()
	}

	if err := s.repo.FailExecution(ctx, exec.ID, msg, shouldRetry, nextRetryAt); err != nil {
		return fmt.Errorf("标记执行失败失败: %w", err)
	}

	log.Warn("调度执行失败",
		zap.String("error", msg),
		zap.Bool("retryable", retryable),
		zap.Int("attempt", currentAttempt),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("will_retry", shouldRetry),
	)

	marked, err := s.repo.RecordFailure(ctx, schedule.ID, cfg.MaxRetries, msg, firedAt)
	if err != nil {
		return fmt.Errorf("记录调度失败失败: %w", err)
	}
	if marked {
		metrics.ScheduleCircuitBreaksTotal.Inc()
		s.UnregisterSchedule(schedule.ID)
		log.Warn("连续失败达到上限，调度已熔断", zap.Int("max_retries", cfg.MaxRetries))
		return nil
	}

	if !shouldRetry && schedule.Status == ScheduleStatusActive {
		return s.advanceNextRun(ctx, log, schedule, firedAt)
	}
	return nil
}

// advanceNextRun 以本次触发时间为基准推进 next_run_at；表达式无效时置空并记录日志
func (s *Scheduler) advanceNextRun(ctx context.Context, log *zap.Logger, schedule *Schedule, firedAt time.Time) error {
	next := *schedule
	next.LastRunAt = &firedAt
	next.Timezone = s.timezone(schedule)

	nextRunAt, err := CalculateNextRun(&next, s.clock.Now())
	if err != nil {
		log.Error("计算下次运行时间失败", zap.Error(err))
		nextRunAt = nil
	}
	if err := s.repo.UpdateNextRun(ctx, schedule.ID, nextRunAt); err != nil {
		return fmt.Errorf("更新下次运行时间失败: %w", err)
	}
	return nil
}

// CancelExecution 取消 pending/running/retrying 执行；不会中断进行中的处理器
func (s *Scheduler) CancelExecution(ctx context.Context, executionID string) error {
	canceled, err := s.repo.CancelExecution(ctx, executionID)
	if err != nil {
		return err
	}
	if !canceled {
		return ErrNotCancelable
	}
	s.logger.Info("执行已取消", zap.String("execution_id", executionID))
	return nil
}

// PauseSchedule 暂停调度并卸载触发器
func (s *Scheduler) PauseSchedule(ctx context.Context, scheduleID, orgID string) (*Schedule, error) {
	schedule, err := s.repo.GetByIDForOrg(ctx, scheduleID, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, scheduleID, ScheduleStatusPaused); err != nil {
		return nil, err
	}
	s.UnregisterSchedule(scheduleID)
	schedule.Status = ScheduleStatusPaused
	s.logger.Info("调度已暂停", zap.String("schedule_id", scheduleID))
	return schedule, nil
}

// ResumeSchedule 恢复暂停或已熔断的调度：清零失败计数、重算下次运行并重新注册
func (s *Scheduler) ResumeSchedule(ctx context.Context, scheduleID, orgID string) (*Schedule, error) {
	schedule, err := s.repo.GetByIDForOrg(ctx, scheduleID, orgID)
	if err != nil {
		return nil, err
	}
	if schedule.Status == ScheduleStatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrScheduleCompleted, scheduleID)
	}

	if err := s.repo.ResetFailures(ctx, scheduleID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, scheduleID, ScheduleStatusActive); err != nil {
		return nil, err
	}

	fresh := *schedule
	fresh.LastRunAt = nil
	fresh.Timezone = s.timezone(schedule)
	nextRunAt, err := CalculateNextRun(&fresh, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateNextRun(ctx, scheduleID, nextRunAt); err != nil {
		return nil, err
	}

	schedule.Status = ScheduleStatusActive
	schedule.ConsecutiveFailures = 0
	schedule.LastError = ""
	schedule.NextRunAt = nextRunAt
	if err := s.RegisterSchedule(schedule); err != nil {
		return nil, err
	}
	s.logger.Info("调度已恢复", zap.String("schedule_id", scheduleID))
	return schedule, nil
}

// fire 定时器回调：重新读取调度，仍为 active 才执行
func (s *Scheduler) fire(ctx context.Context, scheduleID, orgID string) {
	schedule, err := s.repo.GetByIDForOrg(ctx, scheduleID, orgID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Warn("调度已不存在，卸载触发器", zap.String("schedule_id", scheduleID))
			s.UnregisterSchedule(scheduleID)
			return
		}
		s.logger.Error("读取调度失败", zap.String("schedule_id", scheduleID), zap.Error(err))
		return
	}
	if schedule.Status != ScheduleStatusActive {
		s.logger.Info("调度不再处于 active，卸载触发器",
			zap.String("schedule_id", scheduleID),
			zap.String("status", string(schedule.Status)),
		)
		s.UnregisterSchedule(scheduleID)
		return
	}
	if _, err := s.ExecuteSchedule(ctx, schedule); err != nil {
		s.logger.Error("调度执行失败", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}

// poll 兜底轮询：补跑未注册的到期调度，重放到期重试
func (s *Scheduler) poll(ctx context.Context) {
	now := s.clock.Now()

	due, err := s.repo.GetDueSchedules(ctx, now)
	if err != nil {
		s.logger.Error("查询到期调度失败", zap.Error(err))
	}
	for _, schedule := range due {
		if s.IsRegistered(schedule.ID) {
			continue
		}
		metrics.SchedulePollsTotal.WithLabelValues("due").Inc()
		s.logger.Info("轮询补跑到期调度", zap.String("schedule_id", schedule.ID))
		if _, err := s.ExecuteSchedule(ctx, schedule); err != nil {
			s.logger.Error("补跑调度失败", zap.String("schedule_id", schedule.ID), zap.Error(err))
		}
		fresh, err := s.repo.GetByID(ctx, schedule.ID)
		if err != nil {
			s.logger.Error("重新读取调度失败", zap.String("schedule_id", schedule.ID), zap.Error(err))
			continue
		}
		_ = s.RegisterSchedule(fresh)
	}

	retries, err := s.repo.GetRetryableExecutions(ctx, now)
	if err != nil {
		s.logger.Error("查询待重试执行失败", zap.Error(err))
		return
	}
	for _, exec := range retries {
		s.retry(ctx, exec)
	}
}

// retry 重放一次待重试执行；调度已非 active 时取消该执行
func (s *Scheduler) retry(ctx context.Context, exec *ScheduleExecution) {
	log := s.logger.With(zap.String("execution_id", exec.ID), zap.String("schedule_id", exec.ScheduleID))

	schedule, err := s.repo.GetByIDForOrg(ctx, exec.ScheduleID, exec.OrgID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		log.Error("读取调度失败", zap.Error(err))
		return
	}
	if schedule == nil || schedule.Status != ScheduleStatusActive {
		if _, err := s.repo.CancelExecution(ctx, exec.ID); err != nil {
			log.Error("取消失效调度的重试失败", zap.Error(err))
			return
		}
		log.Info("调度已非 active，取消待重试执行")
		return
	}

	activityID := uuid.NewString()
	if err := s.repo.StartExecution(ctx, exec.ID, activityID); err != nil {
		if errors.Is(err, ErrNotStartable) {
			log.Debug("执行已被其他实例接管")
			return
		}
		log.Error("标记重试开始失败", zap.Error(err))
		return
	}
	exec.Status = ExecutionRunning
	exec.ActivityID = activityID

	metrics.SchedulePollsTotal.WithLabelValues("retry").Inc()
	log.Info("重放待重试执行", zap.Int("retry_attempt", exec.RetryAttempt))
	if _, err := s.run(ctx, schedule, exec, s.clock.Now()); err != nil {
		log.Error("重试执行失败", zap.Error(err))
	}
}

// track 在调度器存活期间运行 fn，Stop 会等待其返回
func (s *Scheduler) track(fn func(ctx context.Context)) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	fn(s.ctx)
}

func (s *Scheduler) timezone(schedule *Schedule) string {
	if schedule.Timezone != "" {
		return schedule.Timezone
	}
	return s.location.String()
}

// cronLogger 把 robfig/cron 的日志接到 zap
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, zap.Any("kv", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
